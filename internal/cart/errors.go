package cart

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation     = errors.New("booking request is incomplete")
	ErrConflict       = errors.New("selected time is unavailable")
	ErrFeedNotLoaded  = errors.New("reservations are still loading")
	ErrUnknownBooking = errors.New("unknown booking")
	ErrPastDate       = errors.New("date is in the past")
)

// FailureKind discriminates confirmation failures.
type FailureKind string

const (
	KindValidation  FailureKind = "validation"
	KindConflict    FailureKind = "conflict"
	KindUnavailable FailureKind = "unavailable"
)

// BookingIssue names one booking that blocks confirmation. BookingID is empty for
// cart-wide problems such as a missing date.
type BookingIssue struct {
	BookingID   string `json:"booking_id,omitempty"`
	Description string `json:"description,omitempty"`
	Problem     string `json:"problem"`
}

// ConfirmError is returned by Confirm when the cart cannot be sent.
type ConfirmError struct {
	Kind   FailureKind    `json:"kind"`
	Issues []BookingIssue `json:"issues"`
}

func (e *ConfirmError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Description != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", is.Description, is.Problem))
		} else {
			parts = append(parts, is.Problem)
		}
	}
	return fmt.Sprintf("confirm %s: %s", e.Kind, strings.Join(parts, "; "))
}

// Unwrap maps the kind onto the package sentinels for errors.Is.
func (e *ConfirmError) Unwrap() error {
	switch e.Kind {
	case KindConflict:
		return ErrConflict
	case KindUnavailable:
		return ErrFeedNotLoaded
	default:
		return ErrValidation
	}
}
