package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError rejects a request before any page is requested.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SourceError reports a failed page request. Page is the zero-based index
// of the request that failed.
type SourceError struct {
	AppID string
	Page  int
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source: app %q page %d: %v", e.AppID, e.Page, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
