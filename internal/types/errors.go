package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNoCalendar       = errors.New("calendar widget not found")
	ErrNoDateCells      = errors.New("calendar rendered no date cells")
	ErrRangeNotBookable = errors.New("date range not bookable")
	ErrPoolExhausted    = errors.New("session pool exhausted")
	ErrSessionClosed    = errors.New("session already closed")
	ErrBatchStopped     = errors.New("batch has been stopped")
	ErrPriorRunActive   = errors.New("a prior batch run is still active")
	ErrMissingListingID = errors.New("input row has no listing id")
)

// SessionError wraps errors from the browser session layer. Retryable
// distinguishes transient disconnects from unrecoverable pool failures.
type SessionError struct {
	Backend   string
	SessionID string
	Err       error
	Retryable bool
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("session error (%s, id=%s): %v", e.Backend, e.SessionID, e.Err)
	}
	return fmt.Sprintf("session error (%s): %v", e.Backend, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) IsRetryable() bool { return e.Retryable }

// ExtractError wraps errors from calendar or price extraction with enough
// context (listing, date, stage) to resume a partial run from logs.
type ExtractError struct {
	ListingID string
	Date      time.Time
	Stage     string
	Err       error
}

func (e *ExtractError) Error() string {
	if !e.Date.IsZero() {
		return fmt.Sprintf("extract error for listing %s at %s (stage=%s): %v",
			e.ListingID, e.Date.Format("2006-01-02"), e.Stage, e.Err)
	}
	return fmt.Sprintf("extract error for listing %s (stage=%s): %v", e.ListingID, e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ExportError wraps errors from the export layer. Primary-write failures
// are fatal for the batch; mirror failures are not.
type ExportError struct {
	Backend string
	Path    string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export error (%s, path=%s): %v", e.Backend, e.Path, e.Err)
	}
	return fmt.Sprintf("export error (%s): %v", e.Backend, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
