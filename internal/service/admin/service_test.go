package admin

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/campus-sarthi/sarthi/backend/internal/model/admin"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

type slowHealth struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (h *slowHealth) Health(context.Context) bool {
	h.calls.Add(1)
	<-h.gate
	return false
}

type recordingIndexer struct {
	name string
	body string
	err  error
}

func (r *recordingIndexer) Index(_ context.Context, filename string, content io.Reader) error {
	r.name = filename
	b, _ := io.ReadAll(content)
	r.body = string(b)
	return r.err
}

func newSeeded(t *testing.T, opts Options) *Service {
	t.Helper()
	ds, err := model.Seed()
	require.NoError(t, err)
	return NewService(ds, opts, nil)
}

func TestConversationsFilterAndUpdate(t *testing.T) {
	svc := newSeeded(t, Options{})

	all := svc.Conversations("")
	require.Len(t, all, 3)
	assert.Equal(t, "conv-1", all[0].ID)

	pending := svc.Conversations(model.StatusPending)
	assert.Len(t, pending, 2)

	require.NoError(t, svc.SetConversationStatus("conv-1", model.StatusResolved))
	assert.Len(t, svc.Conversations(model.StatusPending), 1)

	assert.ErrorIs(t, svc.SetConversationStatus("conv-9", model.StatusResolved), ErrConversationNotFound)
	assert.ErrorIs(t, svc.SetConversationStatus("conv-1", "archived"), ErrInvalidStatus)
}

func TestDocumentsSearchAddDelete(t *testing.T) {
	idx := &recordingIndexer{}
	svc := newSeeded(t, Options{Indexer: idx})
	svc.now = func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }

	found := svc.Documents("CATALOG")
	require.Len(t, found, 1)
	assert.Equal(t, "doc-2", found[0].ID)

	doc, err := svc.AddDocument(context.Background(), "faq.txt", 42, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.ID, "doc-"))
	assert.Equal(t, "TXT", doc.Type)
	assert.Equal(t, int64(42), doc.Size)
	assert.Equal(t, "faq.txt", idx.name)
	assert.Equal(t, "hello", idx.body)
	assert.Len(t, svc.Documents(""), 6)

	require.NoError(t, svc.DeleteDocument(doc.ID))
	assert.Len(t, svc.Documents(""), 5)
	assert.ErrorIs(t, svc.DeleteDocument(doc.ID), ErrDocumentNotFound)
}

func TestAddDocumentIndexerFailure(t *testing.T) {
	svc := newSeeded(t, Options{Indexer: &recordingIndexer{err: errors.New("down")}})
	_, err := svc.AddDocument(context.Background(), "a.pdf", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Len(t, svc.Documents(""), 5)
}

func TestKPIAddsEscalations(t *testing.T) {
	svc := newSeeded(t, Options{Escalations: fixedCounter(4)})
	kpi, chart := svc.KPI()
	assert.Equal(t, 27, kpi.Escalations)
	assert.Len(t, chart, 7)
}

func TestReviewVolunteer(t *testing.T) {
	svc := newSeeded(t, Options{})

	require.NoError(t, svc.ReviewVolunteer("vol-1", "approve"))
	assert.Equal(t, model.VolunteerApproved, svc.Volunteers()[0].Status)

	assert.ErrorIs(t, svc.ReviewVolunteer("vol-1", "reject"), ErrAlreadyReviewed)
	assert.ErrorIs(t, svc.ReviewVolunteer("vol-2", "maybe"), ErrInvalidAction)
	assert.ErrorIs(t, svc.ReviewVolunteer("vol-x", "reject"), ErrSubmissionNotFound)
}

func TestUpstreamHealthSharesProbe(t *testing.T) {
	h := &slowHealth{gate: make(chan struct{})}
	svc := newSeeded(t, Options{Health: h})

	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.UpstreamHealthy(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(h.gate)
	wg.Wait()

	assert.LessOrEqual(t, h.calls.Load(), int32(5))
	for _, r := range results {
		assert.False(t, r)
	}
}

func TestOverview(t *testing.T) {
	svc := newSeeded(t, Options{Escalations: fixedCounter(1)})

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 24, ov.KPI.Escalations)
	assert.Equal(t, 2, ov.PendingConversations)
	assert.True(t, ov.UpstreamHealthy)
	assert.GreaterOrEqual(t, ov.PendingVolunteers, 1)
}
