package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/fakestore"
	"github.com/sumire/jobtracker/internal/projection"
	"github.com/sumire/jobtracker/internal/repository"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newJobService(t *testing.T, store *fakestore.Store, opts ...JobServiceOption) *JobService {
	t.Helper()
	jobs := repository.NewJobRepository(newStoreClient(t, store))
	opts = append([]JobServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewJobService(jobs, opts...)
}

func seedBoard(store *fakestore.Store) {
	store.SeedJob(map[string]any{"role": "Engineer", "companyName": "Acme", "location": "Remote", "status": "Applied", "dateApplied": "2024-01-01T00:00:00.000Z"})
	store.SeedJob(map[string]any{"role": "Analyst", "companyName": "TechCorp", "location": "NYC", "status": "Interviewed", "dateApplied": "2024-02-01T00:00:00.000Z"})
	store.SeedJob(map[string]any{"role": "Designer", "companyName": "Initech", "location": "SF", "status": "Declined", "dateApplied": "2023-12-01T00:00:00.000Z"})
}

func confirmAll(context.Context, domain.ID) bool { return true }

func TestBoardRefreshAndVisible(t *testing.T) {
	store := fakestore.New()
	seedBoard(store)
	board := newJobService(t, store).NewBoard(projection.Query{})

	assert.False(t, board.Loaded())
	require.NoError(t, board.Refresh(context.Background()))
	assert.True(t, board.Loaded())

	visible := board.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, "TechCorp", visible[0].CompanyName)
	assert.Equal(t, "Acme", visible[1].CompanyName)
	assert.Equal(t, "Initech", visible[2].CompanyName)

	board.SetQuery(projection.Query{Status: "Rejected"})
	visible = board.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Initech", visible[0].CompanyName)
	assert.Equal(t, domain.StatusDeclined, visible[0].Status)
}

func TestBoardRefreshFailureKeepsSnapshot(t *testing.T) {
	store := fakestore.New()
	seedBoard(store)
	board := newJobService(t, store).NewBoard(projection.Query{})
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	store.FailWith(503)
	err := board.Refresh(ctx)
	var serr *domain.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 503, serr.Code)
	assert.Len(t, board.All(), 3)
}

func TestBoardAddValidatesWithoutNetwork(t *testing.T) {
	tests := []struct {
		name   string
		fields JobFields
		field  string
	}{
		{name: "missing role", fields: JobFields{CompanyName: "Acme", Location: "Remote"}, field: "role"},
		{name: "blank company", fields: JobFields{Role: "Engineer", CompanyName: "  ", Location: "Remote"}, field: "companyName"},
		{name: "missing location", fields: JobFields{Role: "Engineer", CompanyName: "Acme"}, field: "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := fakestore.New()
			board := newJobService(t, store).NewBoard(projection.Query{})

			_, err := board.Add(context.Background(), tt.fields)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, store.Requests())
		})
	}
}

func TestBoardAdd(t *testing.T) {
	store := fakestore.New()
	board := newJobService(t, store).NewBoard(projection.Query{})

	created, err := board.Add(context.Background(), JobFields{
		Role:        " Engineer ",
		CompanyName: "Acme",
		Location:    "Remote",
		Status:      "interview",
		Details:     "referral",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Engineer", created.Role)
	assert.Equal(t, domain.StatusInterviewed, created.Status)
	assert.Equal(t, "2024-03-10T12:00:00.000Z", created.DateApplied)

	assert.Equal(t, []string{"POST /jobs", "GET /jobs"}, store.Requests())

	found, ok := board.Find(created.ID)
	require.True(t, ok)
	assert.Equal(t, "referral", found.Details)

	stored := store.Jobs()
	require.Len(t, stored, 1)
	assert.Equal(t, "Interviewed", stored[0]["status"])
}

func TestBoardAddNormalizesDate(t *testing.T) {
	store := fakestore.New()
	board := newJobService(t, store).NewBoard(projection.Query{})

	created, err := board.Add(context.Background(), JobFields{
		Role: "Engineer", CompanyName: "Acme", Location: "Remote", DateApplied: "2024-01-05",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05T00:00:00.000Z", created.DateApplied)

	created, err = board.Add(context.Background(), JobFields{
		Role: "Engineer", CompanyName: "Acme", Location: "Remote", DateApplied: "someday",
	})
	require.NoError(t, err)
	assert.Equal(t, "someday", created.DateApplied)
	assert.Equal(t, domain.DatePlaceholder, domain.FormatDate(created.DateApplied))
}

type recordingMirror struct {
	mu   sync.Mutex
	jobs []domain.Job
	err  error
}

func (m *recordingMirror) MirrorJob(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return m.err
}

func TestBoardAddMirrorsBestEffort(t *testing.T) {
	store := fakestore.New()
	mirror := &recordingMirror{err: errors.New("notion down")}
	board := newJobService(t, store, WithMirror(mirror)).NewBoard(projection.Query{})

	created, err := board.Add(context.Background(), JobFields{Role: "Engineer", CompanyName: "Acme", Location: "Remote"})
	require.NoError(t, err)
	require.Len(t, mirror.jobs, 1)
	assert.Equal(t, created.ID, mirror.jobs[0].ID)
}

func TestBoardEdit(t *testing.T) {
	store := fakestore.New()
	seedBoard(store)
	board := newJobService(t, store).NewBoard(projection.Query{})
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	updated, err := board.Edit(ctx, "1", JobFields{Role: "Senior Engineer", CompanyName: "Acme", Location: "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", updated.Role)
	// empty status and date keep the stored values
	assert.Equal(t, domain.StatusApplied, updated.Status)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", updated.DateApplied)

	found, ok := board.Find("1")
	require.True(t, ok)
	assert.Equal(t, "Berlin", found.Location)

	updated, err = board.Edit(ctx, "1", JobFields{Role: "Senior Engineer", CompanyName: "Acme", Location: "Berlin", Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, updated.Status)

	updated, err = board.Edit(ctx, "1", JobFields{Role: "Senior Engineer", CompanyName: "Acme", Location: "Berlin", Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)
}

func TestBoardEditNotFound(t *testing.T) {
	store := fakestore.New()
	board := newJobService(t, store).NewBoard(projection.Query{})

	_, err := board.Edit(context.Background(), "42", JobFields{Role: "x", CompanyName: "y", Location: "z"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBoardRemove(t *testing.T) {
	store := fakestore.New()
	seedBoard(store)
	board := newJobService(t, store).NewBoard(projection.Query{})
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	removed, err := board.Remove(ctx, "2", ConfirmFunc(func(context.Context, domain.ID) bool { return false }))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, board.All(), 3)

	before := len(store.Requests())
	removed, err = board.Remove(ctx, "2", ConfirmFunc(confirmAll))
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := board.Find("2")
	assert.False(t, ok)
	assert.Len(t, board.All(), 2)
	// removal does not refetch
	assert.Equal(t, []string{"DELETE /jobs/2"}, store.Requests()[before:])

	require.NoError(t, board.Refresh(ctx))
	assert.Len(t, board.All(), 2)
}

func TestBoardRemoveMissing(t *testing.T) {
	store := fakestore.New()
	board := newJobService(t, store).NewBoard(projection.Query{})

	removed, err := board.Remove(context.Background(), "9", ConfirmFunc(confirmAll))
	assert.False(t, removed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// gatedStore answers List calls in the order the test releases them.
type gatedStore struct {
	JobStore
	calls chan listCall
}

type listCall struct {
	ctx   context.Context
	reply chan []domain.Job
}

func (s *gatedStore) List(ctx context.Context) ([]domain.Job, error) {
	call := listCall{ctx: ctx, reply: make(chan []domain.Job)}
	s.calls <- call
	return <-call.reply, nil
}

func (s *gatedStore) Delete(context.Context, domain.ID) error { return nil }

func TestBoardDiscardsStaleRefresh(t *testing.T) {
	store := &gatedStore{calls: make(chan listCall)}
	board := NewJobService(store).NewBoard(projection.Query{})
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() { firstErr <- board.Refresh(ctx) }()
	first := <-store.calls

	secondErr := make(chan error, 1)
	go func() { secondErr <- board.Refresh(ctx) }()
	second := <-store.calls

	// the older request was cancelled when the newer one started
	assert.Error(t, first.ctx.Err())

	second.reply <- []domain.Job{{ID: "new", CompanyName: "Newer"}}
	require.NoError(t, <-secondErr)

	first.reply <- []domain.Job{{ID: "old", CompanyName: "Older"}}
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	jobs := board.All()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.ID("new"), jobs[0].ID)
}

func TestBoardRemoveSupersedesRefreshInFlight(t *testing.T) {
	store := &gatedStore{calls: make(chan listCall)}
	board := NewJobService(store).NewBoard(projection.Query{})
	ctx := context.Background()

	// load the first snapshot
	loaded := make(chan error, 1)
	go func() { loaded <- board.Refresh(ctx) }()
	(<-store.calls).reply <- []domain.Job{{ID: "1"}, {ID: "2"}}
	require.NoError(t, <-loaded)

	refreshErr := make(chan error, 1)
	go func() { refreshErr <- board.Refresh(ctx) }()
	pending := <-store.calls

	removed, err := board.Remove(ctx, "1", ConfirmFunc(confirmAll))
	require.NoError(t, err)
	require.True(t, removed)
	assert.Error(t, pending.ctx.Err())

	// the list was read before the delete landed
	pending.reply <- []domain.Job{{ID: "1"}, {ID: "2"}}
	assert.ErrorIs(t, <-refreshErr, ErrSuperseded)

	_, ok := board.Find("1")
	assert.False(t, ok)
	jobs := board.All()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.ID("2"), jobs[0].ID)
}

func TestFieldsOf(t *testing.T) {
	fields := FieldsOf(domain.Job{
		Role:        "Engineer",
		CompanyName: "Acme",
		Location:    "Remote",
		Status:      domain.StatusInterviewed,
		DateApplied: "2024-01-05T10:00:00.000Z",
		Details:     strings.Repeat("x", 3),
	})
	assert.Equal(t, "Interviewed", fields.Status)
	assert.Equal(t, "2024-01-05", fields.DateApplied)
	assert.Equal(t, "xxx", fields.Details)
}
