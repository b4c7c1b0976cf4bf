package service

import (
	"fmt"
	"strings"
	"time"

	"astra/internal/model"
)

// QuotaExceededError is the expected refusal when a window's allowance for an
// action is used up. ResetAt is the end of the current window.
type QuotaExceededError struct {
	Action  model.QuotaAction
	Limit   int
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s limit of %d reached, resets at %s", e.Action, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// StorageUnavailableError wraps a failure of the quota storage or tier
// resolution collaborator. It is never retried here.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// EmptyProfileError is returned when a profile lacks the astrological fields
// the companion context is built from.
type EmptyProfileError struct {
	UserID  string
	Missing []string
}

func (e *EmptyProfileError) Error() string {
	return fmt.Sprintf("profile %s is missing %s", e.UserID, strings.Join(e.Missing, ", "))
}
