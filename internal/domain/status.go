package domain

import "strings"

// Status is the canonical application status stored by the record store.
type Status string

const (
	StatusApplied     Status = "Applied"
	StatusInterviewed Status = "Interviewed"
	StatusRejected    Status = "Rejected"
	// StatusDeclined is written by some forms and ranks equal to StatusRejected.
	StatusDeclined Status = "Declined"
)

// Statuses lists the canonical values in the order forms offer them.
var Statuses = []Status{StatusApplied, StatusInterviewed, StatusRejected, StatusDeclined}

// Vocabulary selects how a status is presented.
type Vocabulary int

const (
	VocabularyCanonical Vocabulary = iota
	// VocabularyTracker is the pending/interview/declined wording of the
	// applied-jobs view.
	VocabularyTracker
)

// ParseStatus maps any known spelling, canonical or tracker, onto the
// canonical vocabulary. ok is false when the input was not recognised and the
// Applied fallback was used.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "applied", "pending":
		return StatusApplied, true
	case "interviewed", "interview":
		return StatusInterviewed, true
	case "rejected":
		return StatusRejected, true
	case "declined":
		return StatusDeclined, true
	default:
		return StatusApplied, false
	}
}

// ToCanonical is ParseStatus without the recognition flag.
func ToCanonical(raw string) Status {
	s, _ := ParseStatus(raw)
	return s
}

// IsRejection reports whether s is Rejected or its Declined synonym.
func (s Status) IsRejection() bool {
	return s == StatusRejected || s == StatusDeclined
}

// Equivalent reports whether two statuses mean the same thing for filtering.
func (s Status) Equivalent(other Status) bool {
	if s == other {
		return true
	}
	return s.IsRejection() && other.IsRejection()
}

// Display renders s in the given vocabulary.
func (s Status) Display(v Vocabulary) string {
	if v != VocabularyTracker {
		return string(s)
	}
	switch {
	case s == StatusInterviewed:
		return "interview"
	case s.IsRejection():
		return "declined"
	default:
		return "pending"
	}
}

// Color is the accent used by list and detail views.
func (s Status) Color() string {
	switch {
	case s == StatusApplied:
		return "orange"
	case s == StatusInterviewed:
		return "green"
	case s.IsRejection():
		return "red"
	default:
		return "gray"
	}
}
