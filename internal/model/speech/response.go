package speech

import "time"

// Transcript is the outcome of transcribing one clip.
type Transcript struct {
	SessionID string    `json:"sessionId,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadResponse is the body of POST /api/upload-audio.
type UploadResponse struct {
	OK         bool   `json:"ok"`
	AudioURL   string `json:"audioUrl"`
	Transcript string `json:"transcript"`
}

// RecognitionFrame is one JSON frame pushed by a streaming recognition
// endpoint. Only frames with IsFinal set carry a usable hypothesis.
type RecognitionFrame struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error,omitempty"`
}
