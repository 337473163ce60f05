// Package codexadapter implements the Codex backend's list/import/export
// operations against its date-sharded rollout JSONL tree, grounded on
// original_source/stead-session-adapters/src/codex.rs.
package codexadapter

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

const subsystem = "codex_adapter"

// scanBufSize widens bufio.Scanner past its 64KB default because rollout
// lines carry large tool-call payloads.
const scanBufSize = 10 * 1024 * 1024

// Adapter drives the Codex backend.
type Adapter struct {
	Logger *slog.Logger
}

// New returns an Adapter, defaulting Logger to slog.Default() if nil.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{Logger: logger}
}

var _ backend.Adapter = (*Adapter)(nil)

func (a *Adapter) Backend() model.Backend { return model.BackendCodex }

// sessionsRoot resolves the rollout tree root per §4.3: the base dir may
// itself be the sessions directory (case-insensitive); otherwise append it.
func sessionsRoot(baseDir string) string {
	if strings.EqualFold(filepath.Base(baseDir), "sessions") {
		return baseDir
	}
	return filepath.Join(baseDir, "sessions")
}

func (a *Adapter) sessionFiles(baseDir string) []string {
	root := sessionsRoot(baseDir)
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // tolerate unreadable entries; discovery must not be poisoned by one bad file
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func (a *Adapter) List(ctx context.Context, baseDir string) ([]backend.NativeSessionRef, error) {
	var refs []backend.NativeSessionRef
	for _, path := range a.sessionFiles(baseDir) {
		select {
		case <-ctx.Done():
			return refs, ctx.Err()
		default:
		}
		ref, err := parseSummary(path)
		if err != nil {
			a.Logger.Warn("skipping unreadable session file", "adapter", "codex", "op", "list", "path", path, "err", err)
			continue
		}
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].UpdatedAt.After(refs[j].UpdatedAt)
	})
	return refs, nil
}

// rawEnvelope is the wire shape of one rollout line: {type, timestamp, payload}.
type rawEnvelope struct {
	Type      string          `json:"type"`
	Timestamp *string         `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// codexPayload is the union of every field used across session_meta,
// response_item, and event_msg payloads.
type codexPayload struct {
	ID            *string        `json:"id"`
	Cwd           *string        `json:"cwd"`
	ItemType      *string        `json:"type"`
	Role          *string        `json:"role"`
	Content       []codexContent `json:"content"`
	Name          *string        `json:"name"`
	CallID        *string        `json:"call_id"`
	Arguments     *string        `json:"arguments"`
	Output        *string        `json:"output"`
	Info          json.RawMessage `json:"info"`
	ModelProvider *string        `json:"model_provider"`
}

type codexContent struct {
	Text *string `json:"text"`
}

func parseTimestamp(raw *string) time.Time {
	if raw != nil {
		if ts, err := time.Parse(time.RFC3339, *raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}

func extractMessageTexts(content []codexContent) []string {
	var out []string
	for _, part := range content {
		if part.Text != nil {
			out = append(out, *part.Text)
		}
	}
	return out
}

func parseSummary(path string) (backend.NativeSessionRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return backend.NativeSessionRef{}, err
	}
	defer f.Close()

	var id, projectRoot, title string
	var updated time.Time

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var env rawEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			return backend.NativeSessionRef{}, err
		}
		ts := parseTimestamp(env.Timestamp)
		if updated.IsZero() || ts.After(updated) {
			updated = ts
		}
		var payload codexPayload
		if len(env.Payload) > 0 {
			_ = json.Unmarshal(env.Payload, &payload)
		}
		switch env.Type {
		case "session_meta":
			if id == "" && payload.ID != nil {
				id = *payload.ID
			}
			if projectRoot == "" && payload.Cwd != nil {
				projectRoot = *payload.Cwd
			}
		case "response_item":
			if title == "" && payload.ItemType != nil && *payload.ItemType == "message" &&
				payload.Role != nil && *payload.Role == "user" {
				texts := extractMessageTexts(payload.Content)
				if len(texts) > 0 {
					title = texts[0]
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return backend.NativeSessionRef{}, err
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return backend.NativeSessionRef{
		NativeID:    id,
		FilePath:    path,
		UpdatedAt:   updated,
		ProjectRoot: projectRoot,
		Title:       title,
	}, nil
}

func (a *Adapter) Import(ctx context.Context, baseDir, nativeID string) (*model.Session, error) {
	for _, path := range a.sessionFiles(baseDir) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		summary, err := parseSummary(path)
		if err != nil {
			continue
		}
		if summary.NativeID == nativeID {
			return a.importFromFile(path)
		}
	}
	return nil, steaderr.NotFound(subsystem, fmt.Sprintf("no codex session with id %q under %q", nativeID, baseDir))
}

func (a *Adapter) importFromFile(path string) (*model.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, steaderr.IO(subsystem, path, err)
	}
	defer f.Close()

	var originalID, projectRoot, firstUserText, modelProvider string
	projectRoot = model.UnknownProjectRoot
	var created, updated time.Time
	var events []model.Event
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

		var env rawEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, steaderr.InvalidFormat(subsystem, fmt.Sprintf("line %d", lineNumber), err)
		}
		rawLines = append(rawLines, lineCopy)

		ts := parseTimestamp(env.Timestamp)
		if created.IsZero() || ts.Before(created) {
			created = ts
		}
		if updated.IsZero() || ts.After(updated) {
			updated = ts
		}

		var payload codexPayload
		hasPayload := len(env.Payload) > 0
		if hasPayload {
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				return nil, steaderr.InvalidFormat(subsystem, fmt.Sprintf("line %d payload", lineNumber), err)
			}
		}

		switch env.Type {
		case "session_meta":
			if hasPayload {
				if payload.ID != nil {
					originalID = *payload.ID
				}
				if payload.Cwd != nil {
					projectRoot = *payload.Cwd
				}
				if payload.ModelProvider != nil {
					modelProvider = *payload.ModelProvider
				}
			}
		case "response_item":
			if !hasPayload {
				break
			}
			itemType := ""
			if payload.ItemType != nil {
				itemType = *payload.ItemType
			}
			rawPayload := envelopeWrap("response_item", env.Payload)
			switch itemType {
			case "message":
				role := ""
				if payload.Role != nil {
					role = *payload.Role
				}
				for textIndex, text := range extractMessageTexts(payload.Content) {
					if role == "user" && firstUserText == "" {
						firstUserText = text
					}
					kind := model.KindMessageUser
					if role == "assistant" {
						kind = model.KindMessageAssistant
					}
					events = append(events, model.Event{
						EventUID:         fmt.Sprintf("event-%d-%d", lineNumber, textIndex),
						StreamID:         model.MainStreamID,
						LineNumber:       uint64(lineNumber),
						Timestamp:        ts,
						Kind:             kind,
						Payload:          model.NewTextPayload(text),
						RawVendorPayload: rawPayload,
					})
				}
			case "function_call":
				name := "unknown"
				if payload.Name != nil {
					name = *payload.Name
				}
				var arguments json.RawMessage
				if payload.Arguments != nil {
					if json.Valid([]byte(*payload.Arguments)) {
						arguments = json.RawMessage(*payload.Arguments)
					}
				}
				if arguments == nil {
					raw := ""
					if payload.Arguments != nil {
						raw = *payload.Arguments
					}
					fallback, _ := json.Marshal(map[string]string{"raw": raw})
					arguments = fallback
				}
				eventUID := fmt.Sprintf("event-%d", lineNumber)
				if payload.CallID != nil && *payload.CallID != "" {
					eventUID = *payload.CallID
				}
				events = append(events, model.Event{
					EventUID:         eventUID,
					StreamID:         model.MainStreamID,
					LineNumber:       uint64(lineNumber),
					Timestamp:        ts,
					Kind:             model.KindToolCall,
					Payload:          model.NewToolCallPayload(name, arguments),
					RawVendorPayload: rawPayload,
				})
			case "function_call_output":
				callID := ""
				if payload.CallID != nil {
					callID = *payload.CallID
				}
				events = append(events, model.Event{
					EventUID:   fmt.Sprintf("event-%d", lineNumber),
					StreamID:   model.MainStreamID,
					LineNumber: uint64(lineNumber),
					Timestamp:  ts,
					Kind:       model.KindToolResult,
					Payload: model.ToolResultPayload{
						CallID:     callID,
						OK:         true,
						OutputText: payload.Output,
					},
					RawVendorPayload: rawPayload,
				})
			}
		case "event_msg":
			if hasPayload && payload.ItemType != nil && *payload.ItemType == "token_count" {
				value, _ := json.Marshal(map[string]json.RawMessage{"token_count": payload.Info})
				events = append(events, model.Event{
					EventUID:         fmt.Sprintf("event-%d", lineNumber),
					StreamID:         model.MainStreamID,
					LineNumber:       uint64(lineNumber),
					Timestamp:        ts,
					Kind:             model.KindSystemProgress,
					Payload:          model.JSONPayload{Value: value},
					RawVendorPayload: envelopeWrap("event_msg", env.Payload),
				})
			}
		}
		lineNumber++
	}
	if err := scanner.Err(); err != nil {
		return nil, steaderr.IO(subsystem, path, err)
	}

	model.CanonicalSortEvents(events)

	if originalID == "" {
		originalID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	linesDoc, _ := json.Marshal(map[string][]json.RawMessage{"lines": rawLines})

	extensions := map[string]any{}
	if modelProvider != "" {
		extensions["codex_model_provider"] = modelProvider
	}

	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, originalID),
		Source:        model.NewSessionSource(model.BackendCodex, originalID, []string{path}, time.Now().UTC()),
		Metadata: model.SessionMetadata{
			Title:       firstUserText,
			ProjectRoot: projectRoot,
			CreatedAt:   created,
			UpdatedAt:   updated,
		},
		Events:           events,
		Extensions:       extensions,
		RawVendorPayload: linesDoc,
	}
	return session, nil
}

func envelopeWrap(typ string, payload json.RawMessage) json.RawMessage {
	wrapped, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: typ, Payload: payload})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return wrapped
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

	w := bufio.NewWriter(f)

	modelProvider := "unknown"
	if v, ok := session.Extensions["codex_model_provider"].(string); ok && v != "" {
		modelProvider = v
	}
	meta := map[string]any{
		"timestamp": session.Metadata.CreatedAt.Format(time.RFC3339),
		"type":      "session_meta",
		"payload": map[string]any{
			"id":             session.Source.OriginalSessionID,
			"cwd":            session.Metadata.ProjectRoot,
			"model_provider": modelProvider,
		},
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return backend.ExportReport{}, steaderr.InvalidFormat(subsystem, "session_meta", err)
	}
	if _, err := w.Write(metaLine); err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}

	for _, event := range session.Events {
		generated, err := exportLine(event)
		if err != nil {
			return backend.ExportReport{}, steaderr.InvalidFormat(subsystem, fmt.Sprintf("event %q", event.EventUID), err)
		}
		line := model.MergeOverlay(generated, event.RawVendorPayload)
		if _, err := w.Write(line); err != nil {
			return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return backend.ExportReport{}, steaderr.IO(subsystem, path, err)
	}

	return backend.ExportReport{
		NativeID:   session.Source.OriginalSessionID,
		OutputPath: path,
		LineCount:  len(session.Events) + 1,
	}, nil
}

func exportLine(event model.Event) (json.RawMessage, error) {
	ts := event.Timestamp.Format(time.RFC3339)
	switch p := event.Payload.(type) {
	case model.TextPayload:
		if event.Kind == model.KindMessageUser {
			return json.Marshal(map[string]any{
				"timestamp": ts,
				"type":      "response_item",
				"payload": map[string]any{
					"type": "message",
					"role": "user",
					"content": []map[string]any{
						{"type": "input_text", "text": p.Text},
					},
				},
			})
		}
		return json.Marshal(map[string]any{
			"timestamp": ts,
			"type":      "response_item",
			"payload": map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": p.Text},
				},
			},
		})
	case model.ToolCallPayload:
		return json.Marshal(map[string]any{
			"timestamp": ts,
			"type":      "response_item",
			"payload": map[string]any{
				"type":      "function_call",
				"name":      p.ToolName,
				"call_id":   event.EventUID,
				"arguments": string(p.Input),
			},
		})
	case model.ToolResultPayload:
		output := ""
		if p.OutputText != nil {
			output = *p.OutputText
		}
		return json.Marshal(map[string]any{
			"timestamp": ts,
			"type":      "response_item",
			"payload": map[string]any{
				"type":    "function_call_output",
				"call_id": p.CallID,
				"output":  output,
			},
		})
	case model.JSONPayload:
		if event.Kind == model.KindSystemProgress {
			var holder map[string]json.RawMessage
			_ = json.Unmarshal(p.Value, &holder)
			info := holder["token_count"]
			if info == nil {
				info = json.RawMessage("null")
			}
			return json.Marshal(map[string]any{
				"timestamp": ts,
				"type":      "event_msg",
				"payload": map[string]any{
					"type": "token_count",
					"info": info,
				},
			})
		}
	}
	return json.Marshal(map[string]any{
		"timestamp": ts,
		"type":      "event_msg",
		"payload": map[string]any{
			"type":       "adapter_passthrough",
			"event_kind": string(event.Kind),
		},
	})
}

func defaultOutputPath(baseDir string, session *model.Session) string {
	root := sessionsRoot(baseDir)
	ts := session.Metadata.CreatedAt.UTC()
	dir := filepath.Join(root, fmt.Sprintf("%04d", ts.Year()), fmt.Sprintf("%02d", ts.Month()), fmt.Sprintf("%02d", ts.Day()))
	stamp := strings.ReplaceAll(ts.Format("2006-01-02T15-04-05"), ":", "-")
	name := fmt.Sprintf("rollout-%s-%s.jsonl", stamp, session.Source.OriginalSessionID)
	return filepath.Join(dir, name)
}
