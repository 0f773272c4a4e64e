package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/admin"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidStatus        = errors.New("invalid conversation status")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrSubmissionNotFound   = errors.New("volunteer submission not found")
	ErrInvalidAction        = errors.New("invalid volunteer action")
	ErrAlreadyReviewed      = errors.New("volunteer submission already reviewed")
)

// EscalationCounter reports how many escalations were received since start.
type EscalationCounter interface {
	Count() int
}

// HealthChecker probes the upstream answer service.
type HealthChecker interface {
	Health(ctx context.Context) bool
}

// DocumentIndexer forwards uploaded documents to the knowledge base.
type DocumentIndexer interface {
	Index(ctx context.Context, filename string, content io.Reader) error
}

// Overview is the dashboard summary.
type Overview struct {
	KPI                  model.KPI `json:"kpi"`
	PendingConversations int       `json:"pendingConversations"`
	PendingVolunteers    int       `json:"pendingVolunteers"`
	UpstreamHealthy      bool      `json:"upstreamHealthy"`
}

// Options wires the optional collaborators.
type Options struct {
	Escalations EscalationCounter
	Health      HealthChecker
	Indexer     DocumentIndexer
}

// Service serves the admin views from an in-memory copy of the seed data.
type Service struct {
	mu            sync.RWMutex
	kpi           model.KPI
	chart         []model.ChartPoint
	conversations []model.Conversation
	documents     []model.Document
	volunteers    []model.VolunteerSubmission

	opts   Options
	health singleflight.Group
	now    func() time.Time
	log    *logger.Logger
}

// NewService builds the admin service from ds.
func NewService(ds model.Dataset, opts Options, log *logger.Logger) *Service {
	return &Service{
		kpi:           ds.KPI,
		chart:         append([]model.ChartPoint(nil), ds.ChartData...),
		conversations: append([]model.Conversation(nil), ds.Conversations...),
		documents:     append([]model.Document(nil), ds.Documents...),
		volunteers:    append([]model.VolunteerSubmission(nil), ds.Volunteers...),
		opts:          opts,
		now:           time.Now,
		log:           logger.OrNop(log).With("component", "admin"),
	}
}

// Conversations lists conversations, newest first, optionally filtered by status.
func (s *Service) Conversations(status string) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// SetConversationStatus moves a conversation between pending and resolved.
func (s *Service) SetConversationStatus(id, status string) error {
	if status != model.StatusPending && status != model.StatusResolved {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].Status = status
			s.log.Info("conversation status updated", "conversation_id", id, "status", status)
			return nil
		}
	}
	return ErrConversationNotFound
}

// Documents lists documents whose name contains search, case-insensitively.
func (s *Service) Documents(search string) []model.Document {
	needle := strings.ToLower(strings.TrimSpace(search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if needle == "" || strings.Contains(strings.ToLower(d.Name), needle) {
			out = append(out, d)
		}
	}
	return out
}

// AddDocument records an uploaded document and forwards it to the indexer
// when one is configured.
func (s *Service) AddDocument(ctx context.Context, filename string, size int64, content io.Reader) (model.Document, error) {
	if s.opts.Indexer != nil {
		if err := s.opts.Indexer.Index(ctx, filename, content); err != nil {
			return model.Document{}, fmt.Errorf("index document: %w", err)
		}
	}

	doc := model.Document{
		ID:         "doc-" + uuid.NewString()[:8],
		Name:       filename,
		Type:       documentType(filename),
		UploadedAt: s.now().UTC(),
		Size:       size,
	}

	s.mu.Lock()
	s.documents = append(s.documents, doc)
	s.mu.Unlock()

	s.log.Info("document uploaded", "document_id", doc.ID, "name", filename, "bytes", size)
	return doc, nil
}

// DeleteDocument removes a document by id.
func (s *Service) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			s.log.Info("document deleted", "document_id", id)
			return nil
		}
	}
	return ErrDocumentNotFound
}

// KPI returns the headline numbers and the trend chart.
func (s *Service) KPI() (model.KPI, []model.ChartPoint) {
	s.mu.RLock()
	kpi := s.kpi
	chart := append([]model.ChartPoint(nil), s.chart...)
	s.mu.RUnlock()

	if s.opts.Escalations != nil {
		kpi.Escalations += s.opts.Escalations.Count()
	}
	return kpi, chart
}

// Volunteers returns the review queue.
func (s *Service) Volunteers() []model.VolunteerSubmission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.VolunteerSubmission(nil), s.volunteers...)
}

// ReviewVolunteer approves or rejects a pending submission.
func (s *Service) ReviewVolunteer(id, action string) error {
	var status string
	switch action {
	case "approve":
		status = model.VolunteerApproved
	case "reject":
		status = model.VolunteerRejected
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.volunteers {
		if s.volunteers[i].ID != id {
			continue
		}
		if s.volunteers[i].Status != model.VolunteerPending {
			return ErrAlreadyReviewed
		}
		s.volunteers[i].Status = status
		s.log.Info("volunteer submission reviewed", "submission_id", id, "status", status)
		return nil
	}
	return ErrSubmissionNotFound
}

// UpstreamHealthy probes the answer service. Concurrent callers share one
// probe. Without a checker the built-in answerer is always healthy.
func (s *Service) UpstreamHealthy(ctx context.Context) bool {
	if s.opts.Health == nil {
		return true
	}
	v, _, _ := s.health.Do("health", func() (interface{}, error) {
		return s.opts.Health.Health(ctx), nil
	})
	return v.(bool)
}

// Overview gathers the dashboard summary concurrently.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.KPI, _ = s.KPI()
		return nil
	})
	g.Go(func() error {
		out.PendingConversations = len(s.Conversations(model.StatusPending))
		return nil
	})
	g.Go(func() error {
		pending := 0
		for _, v := range s.Volunteers() {
			if v.Status == model.VolunteerPending {
				pending++
			}
		}
		out.PendingVolunteers = pending
		return nil
	})
	g.Go(func() error {
		out.UpstreamHealthy = s.UpstreamHealthy(gctx)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func documentType(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		return "FILE"
	}
	return strings.ToUpper(ext)
}
