package harness

import (
	"time"

	"github.com/google/uuid"
)

// Reserved event types. Only the host produces these; Session.Emit rejects
// them so user code can never forge a terminal event.
const (
	// EventComplete is the terminal event type carrying the final value.
	EventComplete = "complete"

	// EventError is the terminal event type carrying a work failure.
	EventError = "error"
)

// IsReservedType reports whether typ is one of the terminal event types
// that user code may not emit directly.
func IsReservedType(typ string) bool {
	return typ == EventComplete || typ == EventError
}

// Event is a single unit of streaming output from a host.
//
// Every event carries timing metrics stamped by the Session at emission
// time: Timestamp, Elapsed since the session started, and Delta since the
// previous event. Events are immutable once appended to a host's buffer.
//
// Non-terminal events carry their data in Payload. The two reserved types
// use the dedicated fields instead: EventComplete sets Value and Summary,
// EventError sets Err, Summary, and optionally Partial (a best-effort
// partial value produced before the failure).
type Event struct {
	// ID uniquely identifies this event.
	ID string

	// Type is the event's tag. User-domain events use any non-reserved
	// string; see EventComplete and EventError.
	Type string

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Elapsed is the time since the session started.
	Elapsed time.Duration

	// Delta is the time since the previous event in the same session.
	// Zero for the first event.
	Delta time.Duration

	// Payload holds type-specific data for user-domain events.
	Payload map[string]any

	// Value is the final value. Set only on EventComplete.
	Value any

	// Err is the work failure. Set only on EventError.
	Err error

	// Partial is an optional partial value salvaged before a failure.
	// Set only on EventError.
	Partial any

	// Summary is the usage/cost summary at termination.
	// Set only on terminal events.
	Summary *Summary
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return IsReservedType(e.Type)
}

// PartialError attaches a best-effort partial value to a work failure.
// When a streaming host synthesizes the error event it unwraps this and
// puts the partial on Event.Partial; the wrapped error still classifies
// the outcome and answers errors.Is/As as usual.
//
//	return "", &harness.PartialError{Err: err, Partial: draft}
type PartialError struct {
	Err     error
	Partial any
}

func (e *PartialError) Error() string { return e.Err.Error() }

func (e *PartialError) Unwrap() error { return e.Err }

// newEventID generates a unique identifier for an event.
func newEventID() string {
	return uuid.NewString()
}
