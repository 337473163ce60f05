package model

import "fmt"

// ValidationError is returned by Validate when a session violates the
// sequence-density invariant (SV-1).
type ValidationError struct {
	// Kind is one of "missing_sequence" or "invalid_sequence".
	Kind     string
	EventUID string
	Index    int
	Expected uint64
	Found    uint64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case "missing_sequence":
		return fmt.Sprintf("event %q is missing sequence", e.EventUID)
	case "invalid_sequence":
		return fmt.Sprintf("event sequence is not contiguous at index %d: expected %d, found %d", e.Index, e.Expected, e.Found)
	default:
		return "invalid session"
	}
}

// Validate checks invariant SV-1: after canonical sorting and storage,
// events[i].sequence == i for all i. It fails at the first event lacking a
// sequence, or the first hole.
func Validate(s *Session) error {
	for idx, event := range s.Events {
		if event.Sequence == nil {
			return &ValidationError{Kind: "missing_sequence", EventUID: event.EventUID}
		}
		expected := uint64(idx)
		if *event.Sequence != expected {
			return &ValidationError{Kind: "invalid_sequence", Index: idx, Expected: expected, Found: *event.Sequence}
		}
	}
	return nil
}
