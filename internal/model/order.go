package model

import "sort"

// CanonicalSortEvents implements the §3.3 total order:
// (timestamp, stream_priority, line_number, event_uid) ascending, then
// reassigns Sequence to 0..n-1. It mutates events in place.
//
// The order is a pure function of intrinsic event attributes, never of
// ingestion order, so merging the same session from different capture
// files produces identical results (P1).
func CanonicalSortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i], events[j])
	})
	for idx := range events {
		seq := uint64(idx)
		events[idx].Sequence = &seq
	}
}

func less(a, b Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	pa, pb := StreamPriority(a.StreamID), StreamPriority(b.StreamID)
	if pa != pb {
		return pa < pb
	}
	if a.LineNumber != b.LineNumber {
		return a.LineNumber < b.LineNumber
	}
	return a.EventUID < b.EventUID
}
