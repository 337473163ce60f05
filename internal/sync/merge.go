package sync

import (
	"encoding/json"

	"github.com/stead-core/stead-core-go/internal/model"
)

// Merge implements the cross-backend session merge: anchor is the existing
// stored session, incoming is freshly imported from a backend. The returned
// session is anchor mutated in place and also returned for convenience.
func Merge(anchor, incoming *model.Session) *model.Session {
	anchor.EnsureSharedUID()
	if anchor.SharedSessionUID == "" {
		anchor.SharedSessionUID = anchor.SessionUID
	}

	if incoming.SessionUID != anchor.SessionUID {
		anchor.AddUIDAlias(incoming.SessionUID)
	}
	for _, alias := range incoming.UIDAliases() {
		anchor.AddUIDAlias(alias)
	}
	if incoming.SharedSessionUID != "" && incoming.SharedSessionUID != anchor.SessionUID {
		anchor.AddUIDAlias(incoming.SharedSessionUID)
	}

	if incoming.Metadata.CreatedAt.Before(anchor.Metadata.CreatedAt) {
		anchor.Metadata.CreatedAt = incoming.Metadata.CreatedAt
	}
	if incoming.Metadata.UpdatedAt.After(anchor.Metadata.UpdatedAt) {
		anchor.Metadata.UpdatedAt = incoming.Metadata.UpdatedAt
	}
	if anchor.Metadata.Title == "" {
		anchor.Metadata.Title = incoming.Metadata.Title
	}
	if anchor.Metadata.ProjectRoot == model.UnknownProjectRoot && incoming.Metadata.ProjectRoot != model.UnknownProjectRoot {
		anchor.Metadata.ProjectRoot = incoming.Metadata.ProjectRoot
	}

	anchor.Source.SourceFiles = dedupePreserveOrder(append(append([]string{}, anchor.Source.SourceFiles...), incoming.Source.SourceFiles...))

	setBackendLines(anchor, string(incoming.Source.Backend), rawLinesOf(incoming))

	anchor.Artifacts = append(anchor.Artifacts, incoming.Artifacts...)

	merged := append(append([]model.Event{}, anchor.Events...), incoming.Events...)
	anchor.Events = dedupeEventsByFullKey(merged)
	model.CanonicalSortEvents(anchor.Events)

	return anchor
}

func dedupePreserveOrder(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// dedupeEventsByFullKey implements §4.7's event merge rule: dedupe by
// (stream_id, event_uid, timestamp, kind), last wins.
func dedupeEventsByFullKey(events []model.Event) []model.Event {
	type key struct {
		stream, uid string
		ts          int64
		kind        model.EventKind
	}
	keep := map[key]int{}
	store := make([]model.Event, 0, len(events))
	for _, ev := range events {
		k := key{ev.StreamID, ev.EventUID, ev.Timestamp.UnixNano(), ev.Kind}
		if idx, ok := keep[k]; ok {
			store[idx] = ev
			continue
		}
		keep[k] = len(store)
		store = append(store, ev)
	}
	return store
}

func rawLinesOf(s *model.Session) []json.RawMessage {
	var holder struct {
		Lines []json.RawMessage `json:"lines"`
	}
	_ = json.Unmarshal(s.RawVendorPayload, &holder)
	return holder.Lines
}

// setBackendLines sets raw_vendor_payload.backend_lines[backendKey] to
// lines, preserving whatever other backend keys and top-level fields already
// exist in anchor's raw_vendor_payload.
func setBackendLines(anchor *model.Session, backendKey string, lines []json.RawMessage) {
	var doc map[string]json.RawMessage
	if len(anchor.RawVendorPayload) > 0 {
		_ = json.Unmarshal(anchor.RawVendorPayload, &doc)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	var backendLines map[string]json.RawMessage
	if raw, ok := doc["backend_lines"]; ok {
		_ = json.Unmarshal(raw, &backendLines)
	}
	if backendLines == nil {
		backendLines = map[string]json.RawMessage{}
	}
	encodedLines, _ := json.Marshal(lines)
	backendLines[backendKey] = encodedLines
	encodedBackendLines, _ := json.Marshal(backendLines)
	doc["backend_lines"] = encodedBackendLines
	merged, _ := json.Marshal(doc)
	anchor.RawVendorPayload = merged
}
