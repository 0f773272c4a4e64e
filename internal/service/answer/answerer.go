package answer

import (
	"context"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

// Query is what the gateway hands to an answer backend.
type Query struct {
	SessionID string
	Text      string
	Language  string
}

// Reply is an answer backend's raw result before normalization.
type Reply struct {
	Answer      string
	Confidence  int
	Sources     []chat.Source
	Suggestions []string
}

// Answerer produces an answer for a campus question.
type Answerer interface {
	Answer(ctx context.Context, q Query) (Reply, error)
	Name() string
}
