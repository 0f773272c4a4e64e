package speech

import "io"

// TranscribeRequest asks a transcriber to turn an uploaded clip into text.
type TranscribeRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // webm, wav, mp3, ...
	Language  string    `json:"language"` // en, pa, te, bn
}
