package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/projection"
	"github.com/sumire/jobtracker/internal/service"
)

// JobHandler serves the application list, detail and mutation pages.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// List renders the projected list. The query string is the projection state.
func (h *JobHandler) List(c echo.Context) error {
	q := projection.ParseQuery(c.QueryParams())
	board := h.jobs.NewBoard(q)

	v := newView(c)
	v.Query = q
	v.Action = c.Request().URL.Path

	if err := board.Refresh(c.Request().Context()); err != nil {
		return h.renderLoadError(c, "jobs", v, err)
	}

	v.Jobs = jobViews(board.Visible(), domain.VocabularyCanonical)
	return c.Render(http.StatusOK, "jobs", v)
}

// Applied renders the applications that moved past pending, in tracker wording.
func (h *JobHandler) Applied(c echo.Context) error {
	q := projection.ParseQuery(c.QueryParams())
	board := h.jobs.NewBoard(q)

	v := newView(c)
	v.Query = q

	if err := board.Refresh(c.Request().Context()); err != nil {
		return h.renderLoadError(c, "applied", v, err)
	}

	v.Jobs = jobViews(projection.Progressed(board.Visible()), domain.VocabularyTracker)
	return c.Render(http.StatusOK, "applied", v)
}

// Show renders one application.
func (h *JobHandler) Show(c echo.Context) error {
	job, err := h.jobs.Get(c.Request().Context(), domain.ID(c.Param("id")))
	if err != nil {
		return h.notFoundOr(err, "That application does not exist.")
	}

	v := newView(c)
	jv := newJobView(job, domain.VocabularyCanonical)
	v.Job = &jv
	return c.Render(http.StatusOK, "job", v)
}

// New renders an empty add form.
func (h *JobHandler) New(c echo.Context) error {
	v := newView(c)
	v.Query = projection.ParseQuery(c.QueryParams())
	v.Action = "/jobs"
	v.Form = service.JobFields{Status: string(domain.StatusApplied)}
	return c.Render(http.StatusOK, "form", v)
}

// Create adds an application and returns to the list.
func (h *JobHandler) Create(c echo.Context) error {
	var fields service.JobFields
	if err := c.Bind(&fields); err != nil {
		return domain.ErrInvalidInput
	}
	q := returnQuery(c)

	board := h.jobs.NewBoard(q)
	created, err := board.Add(c.Request().Context(), fields)
	if err != nil {
		if created.ID == "" {
			v := newView(c)
			v.Query = q
			v.Action = "/jobs"
			v.Form = fields
			return h.renderFormError(c, v, err)
		}
		// The record exists; only the refetch failed.
		slog.WarnContext(c.Request().Context(), "list refresh after add failed", "job_id", created.ID, "error", err)
	}

	slog.InfoContext(c.Request().Context(), "job added", "job_id", created.ID)
	return c.Redirect(http.StatusSeeOther, listURL(q))
}

// EditForm renders the edit form pre-filled with the stored record.
func (h *JobHandler) EditForm(c echo.Context) error {
	id := domain.ID(c.Param("id"))
	job, err := h.jobs.Get(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOr(err, "That application does not exist.")
	}

	v := newView(c)
	jv := newJobView(job, domain.VocabularyCanonical)
	v.Job = &jv
	v.Query = projection.ParseQuery(c.QueryParams())
	v.Action = "/jobs/" + url.PathEscape(id.String()) + "/edit"
	v.Form = service.FieldsOf(job)
	return c.Render(http.StatusOK, "form", v)
}

// Update saves the edit form.
func (h *JobHandler) Update(c echo.Context) error {
	id := domain.ID(c.Param("id"))
	var fields service.JobFields
	if err := c.Bind(&fields); err != nil {
		return domain.ErrInvalidInput
	}
	q := returnQuery(c)

	board := h.jobs.NewBoard(q)
	updated, err := board.Edit(c.Request().Context(), id, fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return h.notFoundOr(err, "That application does not exist.")
		}
		if updated.ID == "" {
			v := newView(c)
			v.Job = &jobView{ID: id.String()}
			v.Query = q
			v.Action = "/jobs/" + url.PathEscape(id.String()) + "/edit"
			v.Form = fields
			return h.renderFormError(c, v, err)
		}
		slog.WarnContext(c.Request().Context(), "list refresh after edit failed", "job_id", id, "error", err)
	}

	return c.Redirect(http.StatusSeeOther, listURL(q))
}

// ConfirmDelete asks before deleting.
func (h *JobHandler) ConfirmDelete(c echo.Context) error {
	id := domain.ID(c.Param("id"))
	job, err := h.jobs.Get(c.Request().Context(), id)
	if err != nil {
		return h.notFoundOr(err, "That application does not exist.")
	}

	v := newView(c)
	jv := newJobView(job, domain.VocabularyCanonical)
	v.Job = &jv
	v.Query = projection.ParseQuery(c.QueryParams())
	v.Action = "/jobs/" + url.PathEscape(id.String()) + "/delete"
	return c.Render(http.StatusOK, "confirm", v)
}

// Delete removes the application once the confirmation form said yes.
func (h *JobHandler) Delete(c echo.Context) error {
	id := domain.ID(c.Param("id"))
	q := returnQuery(c)

	// The confirmation form names the record it was rendered for.
	confirmed := service.ConfirmFunc(func(_ context.Context, target domain.ID) bool {
		return c.FormValue("confirm") == "yes" && domain.ID(c.FormValue("id")) == target
	})

	board := h.jobs.NewBoard(q)
	removed, err := board.Remove(c.Request().Context(), id, confirmed)
	if err != nil {
		return h.notFoundOr(err, "That application was already deleted.")
	}
	if !removed {
		return c.Redirect(http.StatusSeeOther, "/jobs/"+url.PathEscape(id.String()))
	}

	slog.InfoContext(c.Request().Context(), "job deleted", "job_id", id)
	return c.Redirect(http.StatusSeeOther, listURL(q))
}

// APIList returns the projected list as JSON.
func (h *JobHandler) APIList(c echo.Context) error {
	q := projection.ParseQuery(c.QueryParams())
	board := h.jobs.NewBoard(q)
	if err := board.Refresh(c.Request().Context()); err != nil {
		return err
	}

	visible := board.Visible()
	return JSONList(c, http.StatusOK, visible, ListMeta{
		Total:   len(board.All()),
		Visible: len(visible),
		Query:   q.Encode(),
	})
}

func (h *JobHandler) renderLoadError(c echo.Context, page string, v view, err error) error {
	status, apiErr := mapError(err)
	slog.WarnContext(c.Request().Context(), "load jobs failed", "error", err)
	v.Error = "Could not load applications. " + apiErr.Message + "."
	return c.Render(status, page, v)
}

func (h *JobHandler) renderFormError(c echo.Context, v view, err error) error {
	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.WarnContext(c.Request().Context(), "save job failed", "error", err)
	}
	v.Error = apiErr.Message
	return c.Render(status, "form", v)
}

// notFoundOr turns a missing record into a 404 with msg and passes other
// failures to the error handler.
func (h *JobHandler) notFoundOr(err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg).SetInternal(err)
	}
	return err
}

// returnQuery reads the projection the form was opened from.
func returnQuery(c echo.Context) projection.Query {
	values, err := url.ParseQuery(c.FormValue("q"))
	if err != nil {
		return projection.ParseQuery(nil)
	}
	return projection.ParseQuery(values)
}

func listURL(q projection.Query) string {
	if enc := q.Encode(); enc != "" {
		return "/jobs?" + enc
	}
	return "/jobs"
}
