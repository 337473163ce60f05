// Package model defines the canonical session/event data types shared by
// every backend adapter, the store, the synchronizer, and the materializer.
package model

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the pinned canonical schema version. Schema migrations
// are out of scope; this is never bumped by anything in this module.
const SchemaVersion = "0.1.0"

// AdapterVersion is stamped on every SessionSource produced by an adapter.
const AdapterVersion = "0.1.0"

// Backend identifies which backend a session or native reference came from.
type Backend string

const (
	BackendCodex      Backend = "codex"
	BackendClaudeCode Backend = "claude_code"
)

// BuildSessionUID implements the P2 UID-purity contract: a pure function of
// (backend, original_session_id).
func BuildSessionUID(backend Backend, originalSessionID string) string {
	return "stead:" + string(backend) + ":" + originalSessionID
}

// SessionSource records where a session was imported from.
type SessionSource struct {
	Backend            Backend   `json:"backend"`
	OriginalSessionID  string    `json:"original_session_id"`
	SourceFiles        []string  `json:"source_files"`
	ImportedAt         time.Time `json:"imported_at"`
	AdapterVersion     string    `json:"adapter_version"`
}

// NewSessionSource constructs a SessionSource with AdapterVersion pinned and
// ImportedAt set to now.
func NewSessionSource(backend Backend, originalSessionID string, sourceFiles []string, now time.Time) SessionSource {
	return SessionSource{
		Backend:           backend,
		OriginalSessionID: originalSessionID,
		SourceFiles:       sourceFiles,
		ImportedAt:        now,
		AdapterVersion:    AdapterVersion,
	}
}

// UnknownProjectRoot is the sentinel project_root when no backend event
// disclosed a working directory.
const UnknownProjectRoot = "/unknown"

// SessionMetadata holds the descriptive fields of a session.
type SessionMetadata struct {
	Title       string    `json:"title,omitempty"`
	ProjectRoot string    `json:"project_root"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tags        []string  `json:"tags,omitempty"`
}

// EventActor identifies who produced an event.
type EventActor struct {
	Role       string `json:"role"`
	AgentID    string `json:"agent_id,omitempty"`
	VendorRole string `json:"vendor_role,omitempty"`
}

// EventKind enumerates the closed set of canonical event kinds.
type EventKind string

const (
	KindMessageUser      EventKind = "message_user"
	KindMessageAssistant EventKind = "message_assistant"
	KindToolCall         EventKind = "tool_call"
	KindToolResult       EventKind = "tool_result"
	KindSystemProgress   EventKind = "system_progress"
	KindSystemNote       EventKind = "system_note"
	KindSessionMarker    EventKind = "session_marker"
	KindArtifactRef      EventKind = "artifact_ref"
)

// Event is one normalized occurrence within a session.
type Event struct {
	EventUID         string          `json:"event_uid"`
	StreamID         string          `json:"stream_id"`
	LineNumber       uint64          `json:"line_number"`
	Sequence         *uint64         `json:"sequence,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	Kind             EventKind       `json:"kind"`
	Actor            *EventActor     `json:"actor,omitempty"`
	Payload          EventPayload    `json:"payload"`
	RawVendorPayload json.RawMessage `json:"raw_vendor_payload"`
	Extensions       map[string]any  `json:"extensions,omitempty"`
}

// MainStreamID is the privileged stream; every other stream id (by
// convention "subagent:<name>") sorts after it.
const MainStreamID = "main"

// StreamPriority implements the §3.3 ordering rule: main is 0, everything
// else is 1.
func StreamPriority(streamID string) int {
	if streamID == MainStreamID {
		return 0
	}
	return 1
}

// SessionArtifactRef is a cross-reference to a produced artifact.
type SessionArtifactRef struct {
	ArtifactUID    string         `json:"artifact_uid"`
	Kind           string         `json:"kind"`
	SourceEventUID string         `json:"source_event_uid"`
	Path           string         `json:"path,omitempty"`
	MimeType       string         `json:"mime_type,omitempty"`
	SHA256         string         `json:"sha256,omitempty"`
	Extensions     map[string]any `json:"extensions,omitempty"`
}

// SessionLineage records rewind/fork provenance.
type SessionLineage struct {
	RootSessionUID      string `json:"root_session_uid,omitempty"`
	ParentSessionUID    string `json:"parent_session_uid,omitempty"`
	ForkOriginEventUID  string `json:"fork_origin_event_uid,omitempty"`
	Strategy            string `json:"strategy,omitempty"`
}

// Session is the canonical, backend-agnostic representation this system
// owns. It is produced by adapters, persisted by the store, merged by the
// synchronizer, and projected back by the materializer.
type Session struct {
	SchemaVersion    string          `json:"schema_version"`
	SessionUID       string          `json:"session_uid"`
	SharedSessionUID string          `json:"shared_session_uid,omitempty"`
	Source           SessionSource   `json:"source"`
	Metadata         SessionMetadata `json:"metadata"`
	Events           []Event         `json:"events"`
	Artifacts        []SessionArtifactRef `json:"artifacts,omitempty"`
	Capabilities     map[string]any  `json:"capabilities,omitempty"`
	Extensions       map[string]any  `json:"extensions,omitempty"`
	Lineage          *SessionLineage `json:"lineage,omitempty"`
	RawVendorPayload json.RawMessage `json:"raw_vendor_payload"`
}

// EffectiveSharedUID returns SharedSessionUID, defaulting to SessionUID when
// unset, per §3.1.
func (s *Session) EffectiveSharedUID() string {
	if s.SharedSessionUID != "" {
		return s.SharedSessionUID
	}
	return s.SessionUID
}

// EnsureSharedUID populates SharedSessionUID if absent.
func (s *Session) EnsureSharedUID() {
	if s.SharedSessionUID == "" {
		s.SharedSessionUID = s.SessionUID
	}
}

const (
	extNativeRefs       = "native_refs"
	extSessionUIDAliases = "session_uid_aliases"
)

// NativeRef is a pointer to a session's projection into one backend.
type NativeRef struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
}

// NativeRefs reads extensions.native_refs, returning an empty map if absent
// or malformed.
func (s *Session) NativeRefs() map[string]NativeRef {
	out := map[string]NativeRef{}
	raw, ok := s.Extensions[extNativeRefs]
	if !ok {
		return out
	}
	// Extensions is free-form map[string]any, populated either from decoded
	// JSON (map[string]any of map[string]any) or set directly in-process.
	switch v := raw.(type) {
	case map[string]NativeRef:
		for k, ref := range v {
			out[k] = ref
		}
	case map[string]any:
		for k, val := range v {
			if m, ok := val.(map[string]any); ok {
				ref := NativeRef{}
				if sid, ok := m["session_id"].(string); ok {
					ref.SessionID = sid
				}
				if p, ok := m["path"].(string); ok {
					ref.Path = p
				}
				out[k] = ref
			}
		}
	}
	return out
}

// SetNativeRef sets extensions.native_refs[backend] to ref.
func (s *Session) SetNativeRef(backend string, ref NativeRef) {
	refs := s.NativeRefs()
	refs[backend] = ref
	if s.Extensions == nil {
		s.Extensions = map[string]any{}
	}
	m := map[string]any{}
	for k, r := range refs {
		m[k] = map[string]any{"session_id": r.SessionID, "path": r.Path}
	}
	s.Extensions[extNativeRefs] = m
}

// UIDAliases reads extensions.session_uid_aliases.
func (s *Session) UIDAliases() []string {
	raw, ok := s.Extensions[extSessionUIDAliases]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// AddUIDAlias appends alias to extensions.session_uid_aliases unless it is
// empty, already present, or equal to the session's own uid.
func (s *Session) AddUIDAlias(alias string) {
	if alias == "" || alias == s.SessionUID {
		return
	}
	existing := s.UIDAliases()
	for _, a := range existing {
		if a == alias {
			return
		}
	}
	existing = append(existing, alias)
	if s.Extensions == nil {
		s.Extensions = map[string]any{}
	}
	s.Extensions[extSessionUIDAliases] = existing
}
