package chat

// Session is a snapshot of one tab-scoped conversation. Messages are kept in
// memory only; the ID is the persisted one.
type Session struct {
	ID       string    `json:"sessionId"`
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}
