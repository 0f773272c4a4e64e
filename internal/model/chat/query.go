package chat

// Modality records whether a query was typed or spoken.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// ModalityFor picks text whenever typed text is present.
func ModalityFor(text string) Modality {
	if text != "" {
		return ModalityText
	}
	return ModalityVoice
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	SessionID string   `json:"sessionId,omitempty"`
	Text      string   `json:"text,omitempty"`
	AudioURL  string   `json:"audioUrl,omitempty"`
	Language  string   `json:"language,omitempty"`
	Modality  Modality `json:"modality"`
}

// Empty reports whether the request carries neither text nor audio.
func (r QueryRequest) Empty() bool {
	return r.Text == "" && r.AudioURL == ""
}

// QueryResponse is the normalized answer returned to chat clients.
type QueryResponse struct {
	SessionID   string   `json:"sessionId"`
	Answer      string   `json:"answer"`
	Confidence  int      `json:"confidence"`
	Sources     []Source `json:"sources"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ClampConfidence forces a score into [0,100].
func ClampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
