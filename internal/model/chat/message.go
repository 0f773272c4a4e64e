package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source is a document reference the answer service attached to a reply.
type Source struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Page    int    `json:"page,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Message is one immutable turn in a conversation transcript.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"timestamp"`
	Confidence  *int      `json:"confidence,omitempty"`
	Sources     []Source  `json:"sources,omitempty"`
	AudioURL    string    `json:"audioUrl,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// HasConfidence reports whether the answer service scored this message.
func (m Message) HasConfidence() bool {
	return m.Confidence != nil
}
