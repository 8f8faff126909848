package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/projection"
)

// ErrSuperseded is returned by a refresh whose response arrived after a newer
// refresh or a delete was started. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// JobStore defines the job data access interface consumed by JobService.
type JobStore interface {
	List(ctx context.Context) ([]domain.Job, error)
	Get(ctx context.Context, id domain.ID) (domain.Job, error)
	Create(ctx context.Context, job domain.Job) (domain.Job, error)
	Update(ctx context.Context, id domain.ID, job domain.Job) (domain.Job, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Mirror receives a copy of every newly added job.
type Mirror interface {
	MirrorJob(ctx context.Context, job domain.Job) error
}

// Confirmer asks the user whether a destructive action may proceed.
type Confirmer interface {
	Confirm(ctx context.Context, id domain.ID) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, id domain.ID) bool

func (f ConfirmFunc) Confirm(ctx context.Context, id domain.ID) bool { return f(ctx, id) }

// JobFields is the user-editable part of a job.
type JobFields struct {
	Role        string `json:"role" form:"role" validate:"required"`
	CompanyName string `json:"companyName" form:"companyName" validate:"required"`
	Location    string `json:"location" form:"location" validate:"required"`
	Status      string `json:"status" form:"status"`
	DateApplied string `json:"dateApplied" form:"dateApplied"`
	Details     string `json:"details" form:"details"`
}

func (f JobFields) trimmed() JobFields {
	return JobFields{
		Role:        strings.TrimSpace(f.Role),
		CompanyName: strings.TrimSpace(f.CompanyName),
		Location:    strings.TrimSpace(f.Location),
		Status:      strings.TrimSpace(f.Status),
		DateApplied: strings.TrimSpace(f.DateApplied),
		Details:     strings.TrimSpace(f.Details),
	}
}

// FieldsOf returns the editable fields of job, for pre-filling forms.
func FieldsOf(job domain.Job) JobFields {
	return JobFields{
		Role:        job.Role,
		CompanyName: job.CompanyName,
		Location:    job.Location,
		Status:      string(job.Status),
		DateApplied: domain.DateInput(job.DateApplied),
		Details:     job.Details,
	}
}

// JobServiceOption configures a JobService.
type JobServiceOption func(*JobService)

// WithMirror copies every added job to m.
func WithMirror(m Mirror) JobServiceOption {
	return func(s *JobService) { s.mirror = m }
}

// WithClock replaces time.Now for stamping new applications.
func WithClock(now func() time.Time) JobServiceOption {
	return func(s *JobService) { s.now = now }
}

// JobService coordinates job mutations against the record store.
type JobService struct {
	store    JobStore
	validate *Validator
	mirror   Mirror
	now      func() time.Time
}

// NewJobService creates a new JobService.
func NewJobService(store JobStore, opts ...JobServiceOption) *JobService {
	s := &JobService{
		store:    store,
		validate: NewValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a single job.
func (s *JobService) Get(ctx context.Context, id domain.ID) (domain.Job, error) {
	return s.store.Get(ctx, id)
}

// NewBoard creates the state of one list view.
func (s *JobService) NewBoard(q projection.Query) *Board {
	return &Board{svc: s, query: q}
}

// dateValue turns form input into the stored representation. Unparsable
// input is kept as typed and renders as the date placeholder.
func (s *JobService) dateValue(raw string) string {
	if raw == "" {
		return s.now().UTC().Format(domain.DateLayout)
	}
	if t, ok := domain.ParseDate(raw); ok {
		return t.UTC().Format(domain.DateLayout)
	}
	return raw
}

// Board is the state of one list view: the last successful fetch and the
// projection query applied to it.
type Board struct {
	svc *JobService

	mu     sync.Mutex
	jobs   []domain.Job
	loaded bool
	query  projection.Query
	gen    uint64
	cancel context.CancelFunc
}

// Refresh refetches the full collection. Starting a refresh cancels the one
// in flight; a response that arrives after a newer refresh started is
// dropped and ErrSuperseded returned.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	jobs, err := b.svc.store.List(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return ErrSuperseded
	}
	b.cancel = nil
	if err != nil {
		return err
	}
	b.jobs = jobs
	b.loaded = true
	return nil
}

// Loaded reports whether at least one refresh succeeded.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Query returns the current projection query.
func (b *Board) Query() projection.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SetQuery replaces the projection query. The snapshot is left alone.
func (b *Board) SetQuery(q projection.Query) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.query = q
}

// All returns a copy of the snapshot.
func (b *Board) All() []domain.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.jobs)
}

// Visible projects the snapshot through the current query.
func (b *Board) Visible() []domain.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return projection.Project(b.jobs, b.query)
}

// Find looks id up in the snapshot.
func (b *Board) Find(id domain.ID) (domain.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, j := range b.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return domain.Job{}, false
}

// Add validates fields, creates the job and refetches the collection. A
// validation failure never reaches the store. When the create succeeds but
// the refetch fails, the created job is returned together with the error.
func (b *Board) Add(ctx context.Context, fields JobFields) (domain.Job, error) {
	fields = fields.trimmed()
	if err := b.svc.validate.Validate(fields); err != nil {
		return domain.Job{}, err
	}

	created, err := b.svc.store.Create(ctx, domain.Job{
		Role:        fields.Role,
		CompanyName: fields.CompanyName,
		Location:    fields.Location,
		Status:      domain.ToCanonical(fields.Status),
		DateApplied: b.svc.dateValue(fields.DateApplied),
		Details:     fields.Details,
	})
	if err != nil {
		return domain.Job{}, fmt.Errorf("add job: %w", err)
	}

	if b.svc.mirror != nil {
		if err := b.svc.mirror.MirrorJob(ctx, created); err != nil {
			slog.WarnContext(ctx, "mirror new job failed", "job_id", created.ID, "error", err)
		}
	}

	if err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return created, fmt.Errorf("refresh after add: %w", err)
	}
	return created, nil
}

// Edit replaces the stored job with fields applied on top of it, then
// refetches. Empty status or date keep their current values.
func (b *Board) Edit(ctx context.Context, id domain.ID, fields JobFields) (domain.Job, error) {
	fields = fields.trimmed()
	if err := b.svc.validate.Validate(fields); err != nil {
		return domain.Job{}, err
	}

	current, ok := b.Find(id)
	if !ok {
		var err error
		current, err = b.svc.store.Get(ctx, id)
		if err != nil {
			return domain.Job{}, fmt.Errorf("edit job: %w", err)
		}
	}

	next := current
	next.Role = fields.Role
	next.CompanyName = fields.CompanyName
	next.Location = fields.Location
	next.Details = fields.Details
	if fields.Status != "" {
		next.Status = domain.ToCanonical(fields.Status)
	}
	if fields.DateApplied != "" {
		next.DateApplied = b.svc.dateValue(fields.DateApplied)
	}

	updated, err := b.svc.store.Update(ctx, id, next)
	if err != nil {
		return domain.Job{}, fmt.Errorf("edit job: %w", err)
	}

	if err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return updated, fmt.Errorf("refresh after edit: %w", err)
	}
	return updated, nil
}

// Remove deletes id once confirm agrees and drops it from the snapshot
// without refetching. Refreshes started before the delete completed are
// superseded. It reports whether the delete was issued.
func (b *Board) Remove(ctx context.Context, id domain.ID, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(ctx, id) {
		return false, nil
	}

	if err := b.svc.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// A refresh still in flight may have been answered before the delete.
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
	b.jobs = slices.DeleteFunc(b.jobs, func(j domain.Job) bool { return j.ID == id })
	return true, nil
}
