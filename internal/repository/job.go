package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sumire/jobtracker/internal/domain"
)

// jobRecord is the store's JSON shape, including the legacy field names some
// records were written with.
type jobRecord struct {
	ID          wireID `json:"id"`
	Role        string `json:"role,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status,omitempty"`
	DateApplied string `json:"dateApplied,omitempty"`
	Details     string `json:"details,omitempty"`

	// legacy
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r jobRecord) toDomain() domain.Job {
	j := domain.Job{
		ID:          r.ID.id,
		NumericID:   r.ID.numeric,
		Role:        firstNonEmpty(r.Role, r.Title),
		CompanyName: firstNonEmpty(r.CompanyName, r.Company),
		Location:    r.Location,
		Status:      domain.ToCanonical(r.Status),
		DateApplied: firstNonEmpty(r.DateApplied, r.Date),
		Details:     firstNonEmpty(r.Details, r.Description),
	}
	return j
}

// jobBody is what gets written back; canonical names only, never an id.
type jobBody struct {
	Role        string        `json:"role"`
	CompanyName string        `json:"companyName"`
	Location    string        `json:"location"`
	Status      domain.Status `json:"status"`
	DateApplied string        `json:"dateApplied"`
	Details     string        `json:"details"`
}

type jobReplaceBody struct {
	ID wireID `json:"id"`
	jobBody
}

// wireID is an id together with the JSON type the store used for it. Ids are
// written back exactly as they were read.
type wireID struct {
	id      domain.ID
	numeric bool
}

func (w *wireID) UnmarshalJSON(data []byte) error {
	if err := w.id.UnmarshalJSON(data); err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	w.numeric = len(data) > 0 && data[0] != '"' && w.id != ""
	return nil
}

func (w wireID) MarshalJSON() ([]byte, error) {
	if w.numeric && json.Valid([]byte(w.id)) {
		return []byte(w.id), nil
	}
	return json.Marshal(string(w.id))
}

func newJobBody(j domain.Job) jobBody {
	return jobBody{
		Role:        j.Role,
		CompanyName: j.CompanyName,
		Location:    j.Location,
		Status:      j.Status,
		DateApplied: j.DateApplied,
		Details:     j.Details,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// JobRepository accesses the /jobs collection of the record store.
type JobRepository struct {
	client *Client
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

func jobPath(id domain.ID) string {
	return "/jobs/" + url.PathEscape(id.String())
}

// List fetches the full collection.
func (r *JobRepository) List(ctx context.Context) ([]domain.Job, error) {
	var records []jobRecord
	if err := r.client.do(ctx, http.MethodGet, "/jobs", nil, nil, &records); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]domain.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, rec.toDomain())
	}
	return jobs, nil
}

// Get fetches one job. A missing id yields an error matching domain.ErrNotFound.
func (r *JobRepository) Get(ctx context.Context, id domain.ID) (domain.Job, error) {
	if id == "" {
		return domain.Job{}, fmt.Errorf("get job: %w", domain.ErrNotFound)
	}
	var rec jobRecord
	if err := r.client.do(ctx, http.MethodGet, jobPath(id), nil, nil, &rec); err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec.toDomain(), nil
}

// Create stores a new job and returns it with the id the store assigned.
func (r *JobRepository) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	var rec jobRecord
	if err := r.client.do(ctx, http.MethodPost, "/jobs", nil, newJobBody(job), &rec); err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	created := rec.toDomain()
	if created.ID == "" {
		return domain.Job{}, fmt.Errorf("create job: store returned no id")
	}
	return created, nil
}

// Update replaces the whole record stored under id.
func (r *JobRepository) Update(ctx context.Context, id domain.ID, job domain.Job) (domain.Job, error) {
	if id == "" {
		return domain.Job{}, fmt.Errorf("update job: %w", domain.ErrNotFound)
	}
	// The id keeps the JSON type the store read it with.
	body := jobReplaceBody{ID: wireID{id: id, numeric: job.NumericID && job.ID == id}, jobBody: newJobBody(job)}
	var rec jobRecord
	if err := r.client.do(ctx, http.MethodPut, jobPath(id), nil, body, &rec); err != nil {
		return domain.Job{}, fmt.Errorf("update job %s: %w", id, err)
	}
	updated := rec.toDomain()
	if updated.ID == "" {
		updated.ID = id
	}
	return updated, nil
}

// Delete removes the job stored under id.
func (r *JobRepository) Delete(ctx context.Context, id domain.ID) error {
	if id == "" {
		return fmt.Errorf("delete job: %w", domain.ErrNotFound)
	}
	if err := r.client.do(ctx, http.MethodDelete, jobPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
