package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSubscriptionRow is returned when a verification request carries no
	// purchase token and no row exists to resolve one from.
	ErrNoSubscriptionRow = errors.New("no subscription row for user")
)

// StoreError is a non-success response from a payment platform. The handler
// surfaces the upstream status instead of swallowing it.
type StoreError struct {
	Source     string
	StatusCode int
	Status     string
	Body       string
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("%s error: %s", e.Source, e.Status)
	}
	return fmt.Sprintf("%s error: %s: %s", e.Source, e.Status, bt)
}
