package models

import (
	"fmt"

	dErrors "ons/pkg/domain-errors"
)

// Status is the lifecycle status of a DomainRecord.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDeleting Status = "deleting"
	StatusDeleted  Status = "deleted"
	// StatusRejected ends a claim whose transaction confirmed but can never verify.
	StatusRejected Status = "rejected"
	// StatusReview parks a deletion that neither verified nor cleanly failed.
	StatusReview Status = "review"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusActive, StatusRejected},
	StatusActive:   {StatusDeleting},
	StatusDeleting: {StatusDeleted, StatusActive, StatusReview},
	StatusReview:   {StatusDeleted, StatusActive},
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Guard returns an InvalidState error unless s may become next. Staying in
// the same status is always allowed.
func (s Status) Guard(next Status) error {
	if s == next || s.CanTransitionTo(next) {
		return nil
	}
	return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("%s cannot become %s", s, next))
}

// IsLive reports whether a record in this status holds its domain.
// Deleted and rejected rows are history only.
func (s Status) IsLive() bool {
	return s != StatusDeleted && s != StatusRejected
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDeleting, StatusDeleted, StatusRejected, StatusReview:
		return true
	}
	return false
}

// ParseStatus parses a wire status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}
