// Package claudeadapter implements the Claude Code backend's list/import/
// export operations, including split-file (rewind) reconciliation and
// sub-agent stream merging, across a raw-JSONL envelope vocabulary that
// includes system subtypes, progress subtypes, pr-link, file-history-snapshot,
// and queue-operation lines.
package claudeadapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stead-core/stead-core-go/internal/backend"
	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/steaderr"
)

const subsystem = "claude_adapter"

const scanBufSize = 10 * 1024 * 1024

const (
	defaultVersion   = "2.1.47"
	defaultGitBranch = "main"
)

// Adapter drives the Claude Code backend.
type Adapter struct {
	Logger *slog.Logger
}

func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{Logger: logger}
}

var _ backend.Adapter = (*Adapter)(nil)

func (a *Adapter) Backend() model.Backend { return model.BackendClaudeCode }

func projectsRoot(baseDir string) string {
	if strings.EqualFold(filepath.Base(baseDir), "projects") {
		return baseDir
	}
	return filepath.Join(baseDir, "projects")
}

// mainSessionFiles walks baseDir's projects tree, excluding anything under a
// "subagents" path component.
func (a *Adapter) mainSessionFiles(baseDir string) []string {
	root := projectsRoot(baseDir)
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".jsonl") {
			return nil
		}
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if part == "subagents" {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files
}

// claudeEntry is the union of fields used across every raw-JSONL entry type.
type claudeEntry struct {
	Type         *string         `json:"type"`
	Subtype      *string         `json:"subtype"`
	Timestamp    *string         `json:"timestamp"`
	SessionID    *string         `json:"sessionId"`
	Cwd          *string         `json:"cwd"`
	UUID         *string         `json:"uuid"`
	Version      *string         `json:"version"`
	GitBranch    *string         `json:"gitBranch"`
	Message      json.RawMessage `json:"message"`
	Data         json.RawMessage `json:"data"`
	PRNumber     *int            `json:"prNumber"`
	PRURL        *string         `json:"prUrl"`
	PRRepository *string         `json:"prRepository"`
	Content      *string         `json:"content"`
	DurationMs   *int64          `json:"durationMs"`
	Error        json.RawMessage `json:"error"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeContentItem struct {
	Type      *string         `json:"type"`
	Text      *string         `json:"text"`
	ID        *string         `json:"id"`
	Name      *string         `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID *string         `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   *bool           `json:"is_error"`
}

func parseTimestamp(raw *string) (time.Time, bool) {
	if raw == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, *raw)
		if err != nil {
			return time.Time{}, false
		}
	}
	return ts.UTC(), true
}

func textKind(role string) model.EventKind {
	if role == "assistant" {
		return model.KindMessageAssistant
	}
	return model.KindMessageUser
}

func coerceOutputText(content json.RawMessage) *string {
	if len(content) == 0 {
		return nil
	}
	var s string
	if json.Unmarshal(content, &s) == nil {
		return &s
	}
	compact := string(content)
	return &compact
}

func parseClaudeSummary(path string) (backend.NativeSessionRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return backend.NativeSessionRef{}, err
	}
	defer f.Close()

	var sessionID, projectRoot, title string
	var updated time.Time

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var entry claudeEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return backend.NativeSessionRef{}, err
		}
		if sessionID == "" && entry.SessionID != nil {
			sessionID = *entry.SessionID
		}
		if projectRoot == "" && entry.Cwd != nil {
			projectRoot = *entry.Cwd
		}
		ts, ok := parseTimestamp(entry.Timestamp)
		if !ok {
			ts = time.Now().UTC()
		}
		if updated.IsZero() || ts.After(updated) {
			updated = ts
		}
		if title == "" && entry.Type != nil && *entry.Type == "user" && len(entry.Message) > 0 {
			var msg claudeMessage
			if json.Unmarshal(entry.Message, &msg) == nil {
				if t, ok := firstText(msg.Content); ok {
					title = t
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return backend.NativeSessionRef{}, err
	}
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return backend.NativeSessionRef{
		NativeID:    sessionID,
		FilePath:    path,
		UpdatedAt:   updated,
		ProjectRoot: projectRoot,
		Title:       title,
	}, nil
}

func firstText(content json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(content, &s) == nil {
		return s, true
	}
	var items []claudeContentItem
	if json.Unmarshal(content, &items) == nil {
		for _, item := range items {
			if item.Type != nil && *item.Type == "text" && item.Text != nil {
				return *item.Text, true
			}
		}
	}
	return "", false
}

func (a *Adapter) List(ctx context.Context, baseDir string) ([]backend.NativeSessionRef, error) {
	best := map[string]backend.NativeSessionRef{}
	var order []string
	for _, path := range a.mainSessionFiles(baseDir) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		summary, err := parseClaudeSummary(path)
		if err != nil {
			a.Logger.Warn("skipping unreadable session file", "adapter", "claude", "op", "list", "path", path, "err", err)
			continue
		}
		existing, ok := best[summary.NativeID]
		if !ok {
			best[summary.NativeID] = summary
			order = append(order, summary.NativeID)
			continue
		}
		if summary.UpdatedAt.After(existing.UpdatedAt) {
			best[summary.NativeID] = summary
		}
	}
	refs := make([]backend.NativeSessionRef, 0, len(order))
	for _, id := range order {
		refs = append(refs, best[id])
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].UpdatedAt.After(refs[j].UpdatedAt)
	})
	return refs, nil
}

// importFromFile parses a single JSONL file into a canonical session,
// tagging every event with streamID.
func (a *Adapter) importFromFile(path, streamID string) (*model.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, steaderr.IO(subsystem, path, err)
	}
	defer f.Close()

	sessionID := ""
	projectRoot := model.UnknownProjectRoot
	title := ""
	var created, updated time.Time
	var events []model.Event
	var artifacts []model.SessionArtifactRef
	var rawLines []json.RawMessage

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	lineNumber := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			lineNumber++
			continue
		}
		lineCopy := append(json.RawMessage(nil), line...)

		var entry claudeEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, steaderr.InvalidFormat(subsystem, fmt.Sprintf("line %d", lineNumber), err)
		}
		rawLines = append(rawLines, lineCopy)

		if sessionID == "" && entry.SessionID != nil {
			sessionID = *entry.SessionID
		}
		if entry.Cwd != nil && *entry.Cwd != "" {
			projectRoot = *entry.Cwd
		}

		parsed, parsedOK := parseTimestamp(entry.Timestamp)
		if parsedOK {
			if created.IsZero() || parsed.Before(created) {
				created = parsed
			}
			if updated.IsZero() || parsed.After(updated) {
				updated = parsed
			}
		}
		ts := parsed
		if !parsedOK {
			ts = time.Now().UTC()
		}

		uuidOrFallback := fmt.Sprintf("line-%d", lineNumber)
		if entry.UUID != nil && *entry.UUID != "" {
			uuidOrFallback = *entry.UUID
		}

		entryType := ""
		if entry.Type != nil {
			entryType = *entry.Type
		}

		switch entryType {
		case "user", "assistant":
			if len(entry.Message) == 0 {
				break
			}
			var msg claudeMessage
			if err := json.Unmarshal(entry.Message, &msg); err != nil {
				break
			}
			var asString string
			if json.Unmarshal(msg.Content, &asString) == nil {
				if msg.Role == "user" && title == "" {
					title = asString
				}
				events = append(events, model.Event{
					EventUID:         uuidOrFallback,
					LineNumber:       uint64(lineNumber),
					Timestamp:        ts,
					Kind:             textKind(msg.Role),
					Payload:          model.NewTextPayload(asString),
					RawVendorPayload: lineCopy,
				})
				break
			}
			var items []claudeContentItem
			if err := json.Unmarshal(msg.Content, &items); err == nil && len(msg.Content) > 0 && msg.Content[0] == '[' {
				for itemIndex, item := range items {
					discriminator := fmt.Sprintf("item-%d", itemIndex)
					if item.ID != nil && *item.ID != "" {
						discriminator = *item.ID
					} else if item.ToolUseID != nil && *item.ToolUseID != "" {
						discriminator = *item.ToolUseID
					}
					itemType := ""
					if item.Type != nil {
						itemType = *item.Type
					}
					switch itemType {
					case "text":
						if item.Text == nil {
							continue
						}
						if msg.Role == "user" && title == "" {
							title = *item.Text
						}
						events = append(events, model.Event{
							EventUID:         fmt.Sprintf("%s-%s", uuidOrFallback, discriminator),
							LineNumber:       uint64(lineNumber),
							Timestamp:        ts,
							Kind:             textKind(msg.Role),
							Payload:          model.NewTextPayload(*item.Text),
							RawVendorPayload: lineCopy,
						})
					case "tool_use":
						name := "unknown"
						if item.Name != nil {
							name = *item.Name
						}
						input := item.Input
						if len(input) == 0 {
							input = json.RawMessage("{}")
						}
						events = append(events, model.Event{
							EventUID:         discriminator,
							LineNumber:       uint64(lineNumber),
							Timestamp:        ts,
							Kind:             model.KindToolCall,
							Payload:          model.NewToolCallPayload(name, input),
							RawVendorPayload: lineCopy,
						})
					case "tool_result":
						ok := true
						if item.IsError != nil {
							ok = !*item.IsError
						}
						events = append(events, model.Event{
							EventUID:   discriminator + "-result",
							LineNumber: uint64(lineNumber),
							Timestamp:  ts,
							Kind:       model.KindToolResult,
							Payload: model.ToolResultPayload{
								CallID:     discriminator,
								OK:         ok,
								OutputText: coerceOutputText(item.Content),
							},
							RawVendorPayload: lineCopy,
						})
					}
				}
				break
			}
			// Raw JSON content that is neither a string nor an array: a
			// single text event carrying its serialized form.
			text := string(msg.Content)
			if msg.Role == "user" && title == "" {
				title = text
			}
			events = append(events, model.Event{
				EventUID:         uuidOrFallback,
				LineNumber:       uint64(lineNumber),
				Timestamp:        ts,
				Kind:             textKind(msg.Role),
				Payload:          model.NewTextPayload(text),
				RawVendorPayload: lineCopy,
			})

		case "progress":
			value := entry.Data
			if len(value) == 0 {
				value = json.RawMessage("{}")
			}
			events = append(events, model.Event{
				EventUID:         fmt.Sprintf("progress-%d", lineNumber),
				LineNumber:       uint64(lineNumber),
				Timestamp:        ts,
				Kind:             model.KindSystemProgress,
				Payload:          model.JSONPayload{Value: value},
				RawVendorPayload: lineCopy,
			})

		case "system":
			subtype := ""
			if entry.Subtype != nil {
				subtype = *entry.Subtype
			}
			if subtype == "" || subtype == "init" {
				events = append(events, model.Event{
					EventUID:         fmt.Sprintf("session-marker-%d", lineNumber),
					LineNumber:       uint64(lineNumber),
					Timestamp:        ts,
					Kind:             model.KindSessionMarker,
					Payload:          model.JSONPayload{Value: lineCopy},
					RawVendorPayload: lineCopy,
				})
				break
			}
			fields := map[string]any{"subtype": subtype}
			if entry.Content != nil {
				fields["content"] = *entry.Content
			}
			if entry.DurationMs != nil {
				fields["duration_ms"] = *entry.DurationMs
			}
			if len(entry.Error) > 0 {
				fields["error"] = entry.Error
			}
			value, _ := json.Marshal(fields)
			events = append(events, model.Event{
				EventUID:         fmt.Sprintf("system-note-%d", lineNumber),
				LineNumber:       uint64(lineNumber),
				Timestamp:        ts,
				Kind:             model.KindSystemNote,
				Payload:          model.JSONPayload{Value: value},
				RawVendorPayload: lineCopy,
			})

		case "pr-link":
			artifactUID := fmt.Sprintf("artifact-%d", lineNumber)
			eventUID := fmt.Sprintf("pr-link-%d", lineNumber)
			prURL := ""
			if entry.PRURL != nil {
				prURL = *entry.PRURL
			}
			artifacts = append(artifacts, model.SessionArtifactRef{
				ArtifactUID:    artifactUID,
				Kind:           "pull_request",
				SourceEventUID: eventUID,
				Path:           prURL,
			})
			fields := map[string]any{"artifact_uid": artifactUID}
			if entry.PRNumber != nil {
				fields["pr_number"] = *entry.PRNumber
			}
			if entry.PRURL != nil {
				fields["pr_url"] = *entry.PRURL
			}
			if entry.PRRepository != nil {
				fields["pr_repository"] = *entry.PRRepository
			}
			value, _ := json.Marshal(fields)
			events = append(events, model.Event{
				EventUID:         eventUID,
				LineNumber:       uint64(lineNumber),
				Timestamp:        ts,
				Kind:             model.KindArtifactRef,
				Payload:          model.JSONPayload{Value: value},
				RawVendorPayload: lineCopy,
			})

		case "file-history-snapshot", "queue-operation":
			// Internal bookkeeping: preserved only in raw_vendor_payload.lines.
		}
		lineNumber++
	}
	if err := scanner.Err(); err != nil {
		return nil, steaderr.IO(subsystem, path, err)
	}

	for i := range events {
		events[i].StreamID = streamID
		events[i].Extensions = map[string]any{"source_file": path}
	}

	model.CanonicalSortEvents(events)

	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	linesDoc, _ := json.Marshal(map[string][]json.RawMessage{"lines": rawLines})

	return &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendClaudeCode, sessionID),
		Source:        model.NewSessionSource(model.BackendClaudeCode, sessionID, []string{path}, time.Now().UTC()),
		Metadata: model.SessionMetadata{
			Title:       title,
			ProjectRoot: projectRoot,
			CreatedAt:   created,
			UpdatedAt:   updated,
		},
		Events:           events,
		Artifacts:        artifacts,
		RawVendorPayload: linesDoc,
	}, nil
}

func rawLinesOf(s *model.Session) []json.RawMessage {
	var holder struct {
		Lines []json.RawMessage `json:"lines"`
	}
	_ = json.Unmarshal(s.RawVendorPayload, &holder)
	return holder.Lines
}

func (a *Adapter) Import(ctx context.Context, baseDir, sessionID string) (*model.Session, error) {
	type candidate struct {
		path    string
		summary backend.NativeSessionRef
	}
	var candidates []candidate
	for _, path := range a.mainSessionFiles(baseDir) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		summary, err := parseClaudeSummary(path)
		if err != nil {
			continue
		}
		if summary.NativeID == sessionID {
			candidates = append(candidates, candidate{path: path, summary: summary})
		}
	}
	if len(candidates) == 0 {
		return nil, steaderr.NotFound(subsystem, fmt.Sprintf("no claude session with id %q under %q", sessionID, baseDir))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].summary.UpdatedAt.Before(candidates[j].summary.UpdatedAt)
	})

	base, err := a.importFromFile(candidates[0].path, model.MainStreamID)
	if err != nil {
		return nil, err
	}
	sourceFiles := []string{candidates[0].path}
	allRawLines := rawLinesOf(base)

	for _, c := range candidates[1:] {
		next, err := a.importFromFile(c.path, model.MainStreamID)
		if err != nil {
			return nil, err
		}
		if next.Metadata.CreatedAt.Before(base.Metadata.CreatedAt) {
			base.Metadata.CreatedAt = next.Metadata.CreatedAt
		}
		if next.Metadata.UpdatedAt.After(base.Metadata.UpdatedAt) {
			base.Metadata.UpdatedAt = next.Metadata.UpdatedAt
		}
		if base.Metadata.Title == "" {
			base.Metadata.Title = next.Metadata.Title
		}
		if base.Metadata.ProjectRoot == model.UnknownProjectRoot && next.Metadata.ProjectRoot != model.UnknownProjectRoot {
			base.Metadata.ProjectRoot = next.Metadata.ProjectRoot
		}
		base.Events = append(base.Events, next.Events...)
		base.Artifacts = append(base.Artifacts, next.Artifacts...)
		allRawLines = append(allRawLines, rawLinesOf(next)...)
		sourceFiles = append(sourceFiles, c.path)
	}

	newestFile := candidates[len(candidates)-1].path
	subDir := filepath.Join(filepath.Dir(newestFile), "subagents")
	if info, err := os.Stat(subDir); err == nil && info.IsDir() {
		var subFiles []string
		_ = filepath.WalkDir(subDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".jsonl") {
				subFiles = append(subFiles, path)
			}
			return nil
		})
		sort.Strings(subFiles)
		for _, subPath := range subFiles {
			stem := strings.TrimSuffix(filepath.Base(subPath), filepath.Ext(subPath))
			sub, err := a.importFromFile(subPath, "subagent:"+stem)
			if err != nil {
				a.Logger.Warn("skipping unreadable subagent stream", "adapter", "claude", "op", "import", "path", subPath, "err", err)
				continue
			}
			if sub.Source.OriginalSessionID != sessionID {
				continue
			}
			base.Events = append(base.Events, sub.Events...)
			base.Artifacts = append(base.Artifacts, sub.Artifacts...)
			allRawLines = append(allRawLines, rawLinesOf(sub)...)
			sourceFiles = append(sourceFiles, subPath)
		}
	}

	base.Events = dedupeEvents(base.Events)
	model.CanonicalSortEvents(base.Events)
	base.Source.SourceFiles = dedupePreserveOrder(sourceFiles)
	linesDoc, _ := json.Marshal(map[string][]json.RawMessage{"lines": allRawLines})
	base.RawVendorPayload = linesDoc

	return base, nil
}

// dedupeEvents implements "dedupe by (stream_id, event_uid), last wins".
func dedupeEvents(events []model.Event) []model.Event {
	type key struct{ stream, uid string }
	keep := map[key]int{}
	store := make([]model.Event, 0, len(events))
	for _, ev := range events {
		k := key{ev.StreamID, ev.EventUID}
		if idx, ok := keep[k]; ok {
			store[idx] = ev
			continue
		}
		keep[k] = len(store)
		store = append(store, ev)
	}
	return store
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

func (a *Adapter) Export(ctx context.Context, session *model.Session, baseDir, outPath string) (backend.ExportReport, error) {
	select {
	case <-ctx.Done():
		return backend.ExportReport{}, ctx.Err()
	default:
	}

	path := outPath
	if path == "" {
		path = defaultOutputPath(baseDir, session)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}
	defer f.Close()

	version, gitBranch := defaultVersion, defaultGitBranch
	for _, ev := range session.Events {
		var probe struct {
			Version   *string `json:"version"`
			GitBranch *string `json:"gitBranch"`
		}
		if json.Unmarshal(ev.RawVendorPayload, &probe) == nil {
			if probe.Version != nil && *probe.Version != "" {
				version = *probe.Version
			}
			if probe.GitBranch != nil && *probe.GitBranch != "" {
				gitBranch = *probe.GitBranch
			}
		}
		if version != defaultVersion || gitBranch != defaultGitBranch {
			break
		}
	}

	w := bufio.NewWriter(f)
	parentUUID := ""
	for _, event := range session.Events {
		generated := exportLine(event, session, version, gitBranch, parentUUID)
		merged := model.MergeOverlay(generated, event.RawVendorPayload)
		if _, err := w.Write(merged); err != nil {
			return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
		}
		parentUUID = event.EventUID
	}
	if err := w.Flush(); err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}

	return backend.ExportReport{
		NativeID:   session.Source.OriginalSessionID,
		OutputPath: path,
		LineCount:  len(session.Events),
	}, nil
}

func exportLine(event model.Event, session *model.Session, version, gitBranch, parentUUID string) json.RawMessage {
	base := map[string]any{
		"parentUuid":  nullableString(parentUUID),
		"isSidechain": false,
		"userType":    "external",
		"cwd":         session.Metadata.ProjectRoot,
		"sessionId":   session.Source.OriginalSessionID,
		"version":     version,
		"gitBranch":   gitBranch,
		"timestamp":   event.Timestamp.Format(time.RFC3339),
		"uuid":        event.EventUID,
	}
	for k, v := range kindSpecificFields(event) {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		out = json.RawMessage(`{}`)
	}
	return out
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func kindSpecificFields(event model.Event) map[string]any {
	switch p := event.Payload.(type) {
	case model.TextPayload:
		if event.Kind == model.KindMessageUser {
			return map[string]any{
				"type":    "user",
				"message": map[string]any{"role": "user", "content": p.Text},
			}
		}
		return map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"role":    "assistant",
				"content": []map[string]any{{"type": "text", "text": p.Text}},
			},
		}
	case model.ToolCallPayload:
		return map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"role": "assistant",
				"content": []map[string]any{{
					"type":  "tool_use",
					"id":    event.EventUID,
					"name":  p.ToolName,
					"input": p.Input,
				}},
			},
		}
	case model.ToolResultPayload:
		output := ""
		if p.OutputText != nil {
			output = *p.OutputText
		}
		return map[string]any{
			"type": "user",
			"message": map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": p.CallID,
					"content":     output,
					"is_error":    !p.OK,
				}},
			},
		}
	case model.JSONPayload:
		switch event.Kind {
		case model.KindSystemProgress:
			return map[string]any{"type": "progress", "data": p.Value}
		case model.KindSessionMarker:
			return map[string]any{"type": "system", "subtype": "init"}
		case model.KindSystemNote:
			var fields map[string]any
			_ = json.Unmarshal(p.Value, &fields)
			out := map[string]any{"type": "system"}
			for k, v := range fields {
				out[k] = v
			}
			return out
		case model.KindArtifactRef:
			var fields map[string]any
			_ = json.Unmarshal(p.Value, &fields)
			out := map[string]any{"type": "pr-link"}
			for k, v := range fields {
				out[k] = v
			}
			return out
		}
	}
	return map[string]any{"type": "system"}
}

func defaultOutputPath(baseDir string, session *model.Session) string {
	root := projectsRoot(baseDir)
	slug := strings.NewReplacer("/", "-", "\\", "-").Replace(session.Metadata.ProjectRoot)
	return filepath.Join(root, slug, session.Source.OriginalSessionID+".jsonl")
}
