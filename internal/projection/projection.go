// Package projection derives the displayed job list from a fetched collection.
//
// The projection is a pure function of the collection and a Query. The Query
// round-trips through URL query parameters so every list view can be
// bookmarked and shared.
package projection

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/sumire/jobtracker/internal/domain"
)

// SortOrder orders by dateApplied.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Query parameter names.
const (
	ParamStatus = "status"
	ParamSort   = "sort"
	ParamSearch = "search"
)

// Query is the externally visible projection state.
type Query struct {
	Status string
	Search string
	Sort   SortOrder
}

// ParseQuery reads a Query from URL parameters. Unknown sort values fall back
// to SortDesc.
func ParseQuery(v url.Values) Query {
	q := Query{
		Status: strings.TrimSpace(v.Get(ParamStatus)),
		Search: v.Get(ParamSearch),
		Sort:   SortOrder(v.Get(ParamSort)),
	}
	if q.Sort != SortAsc {
		q.Sort = SortDesc
	}
	return q
}

// Values encodes q, leaving out empty filters and the default sort.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set(ParamStatus, q.Status)
	}
	if q.Search != "" {
		v.Set(ParamSearch, q.Search)
	}
	if q.Sort == SortAsc {
		v.Set(ParamSort, string(SortAsc))
	}
	return v
}

// Encode is Values().Encode().
func (q Query) Encode() string {
	return q.Values().Encode()
}

// With returns q with one parameter replaced; an empty value clears it.
func (q Query) With(key, value string) Query {
	switch key {
	case ParamStatus:
		q.Status = value
	case ParamSearch:
		q.Search = value
	case ParamSort:
		q.Sort = SortOrder(value)
		if q.Sort != SortAsc {
			q.Sort = SortDesc
		}
	}
	return q
}

// Project filters and sorts jobs according to q. The input slice is never
// modified. Records without a parsable date sort as the oldest; equal dates
// keep their input order.
func Project(jobs []domain.Job, q Query) []domain.Job {
	needle := strings.ToLower(q.Search)
	status := domain.Status(q.Status)

	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if q.Status != "" && !status.Equivalent(j.Status) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(j.CompanyName), needle) &&
			!strings.Contains(strings.ToLower(j.Role), needle) {
			continue
		}
		out = append(out, j)
	}

	keys := make(map[int]time.Time, len(out))
	for i := range out {
		if t, ok := out[i].AppliedAt(); ok {
			keys[i] = t
		}
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		c := keys[a].Compare(keys[b])
		if q.Sort == SortAsc {
			return c
		}
		return -c
	})

	sorted := make([]domain.Job, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

// Progressed keeps the applications that moved past the pending stage, as the
// tracker vocabulary sees them.
func Progressed(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status.Display(domain.VocabularyTracker) != "pending" {
			out = append(out, j)
		}
	}
	return out
}
