package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/escalation"
)

// Notifier is told about every accepted escalation.
type Notifier interface {
	Notify(ctx context.Context, rec model.Record) error
}

// Service accepts escalation requests and keeps them in memory.
type Service struct {
	mu        sync.RWMutex
	records   []model.Record
	notifiers []Notifier
	subs      map[int]chan model.Record
	nextSub   int
	log       *logger.Logger
}

// NewService builds the intake service with the given notifiers.
func NewService(log *logger.Logger, notifiers ...Notifier) *Service {
	return &Service{
		records:   make([]model.Record, 0, 16),
		notifiers: notifiers,
		subs:      make(map[int]chan model.Record),
		log:       logger.OrNop(log).With("component", "escalation"),
	}
}

// Submit validates and records req, then fans it out to notifiers. Notifier
// failures are logged and do not fail the submission.
func (s *Service) Submit(ctx context.Context, req model.Request) (model.Record, error) {
	if err := req.Validate(); err != nil {
		return model.Record{}, err
	}

	rec := model.Record{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Request:    req,
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	for id, ch := range s.subs {
		select {
		case ch <- rec:
		default:
			s.log.Warn("escalation subscriber lagging, dropping record", "subscriber", id, "id", rec.ID)
		}
	}
	s.mu.Unlock()

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, rec); err != nil {
			s.log.Warn("escalation notifier failed", "id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// Count returns how many escalations were accepted since start.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// List returns a copy of the accepted escalations, oldest first.
func (s *Service) List() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Subscribe streams escalations accepted after the call. Slow subscribers
// miss records rather than blocking Submit. The returned func unsubscribes.
func (s *Service) Subscribe(buffer int) (<-chan model.Record, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.Record, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
