package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidChannel      = errors.New("invalid_channel")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrAmountExceedsLimit  = errors.New("amount_exceeds_limit")
	ErrInvalidReason       = errors.New("invalid_reason")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInsufficientCredits = errors.New("insufficient_credits")
)

// InsufficientCreditsError is the refusal returned by a deduction that does not fit.
// It matches ErrInsufficientCredits with errors.Is.
type InsufficientCreditsError struct {
	Channel   Channel
	Requested int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient_credits: channel=%s requested=%d available=%d", e.Channel, e.Requested, e.Available)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// IsValidationError reports caller errors that are raised before any store access.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTenant) ||
		errors.Is(err, ErrInvalidChannel) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAmountExceedsLimit) ||
		errors.Is(err, ErrInvalidReason) ||
		errors.Is(err, ErrInvalidPageToken)
}
