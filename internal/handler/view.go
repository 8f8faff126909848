package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/projection"
	"github.com/sumire/jobtracker/internal/service"
)

// jobView is a job prepared for display.
type jobView struct {
	ID          string
	Role        string
	CompanyName string
	Location    string
	Status      string
	Color       string
	Date        string
	Details     string
}

func newJobView(j domain.Job, vocab domain.Vocabulary) jobView {
	return jobView{
		ID:          j.ID.String(),
		Role:        j.Role,
		CompanyName: j.CompanyName,
		Location:    j.Location,
		Status:      j.Status.Display(vocab),
		Color:       j.Status.Color(),
		Date:        domain.FormatDate(j.DateApplied),
		Details:     j.Details,
	}
}

func jobViews(jobs []domain.Job, vocab domain.Vocabulary) []jobView {
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, newJobView(j, vocab))
	}
	return out
}

// view is the data every page template receives.
type view struct {
	Username string
	Error    string
	Message  string
	Login    string
	Action   string
	Query    projection.Query
	Statuses []domain.Status
	Jobs     []jobView
	Job      *jobView
	Form     service.JobFields
}

func newView(c echo.Context) view {
	v := view{Statuses: domain.Statuses}
	if sess, ok := SessionFrom(c); ok {
		v.Username = sess.Username
	}
	return v
}

func (v view) withMessage(msg string) view {
	v.Message = msg
	return v
}

// Suffix is the query string to append to links that keep the projection.
func (v view) Suffix() string {
	if enc := v.Query.Encode(); enc != "" {
		return "?" + enc
	}
	return ""
}
