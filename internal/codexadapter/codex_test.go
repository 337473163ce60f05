package codexadapter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stead-core/stead-core-go/internal/model"
)

func writeFixture(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleLines() []string {
	return []string{
		`{"type":"session_meta","timestamp":"2026-02-17T20:00:00Z","payload":{"id":"s-new","cwd":"/repo"}}`,
		`{"type":"response_item","timestamp":"2026-02-17T20:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}`,
		`{"type":"response_item","timestamp":"2026-02-17T20:00:02Z","payload":{"type":"function_call","name":"bash","call_id":"call-1","arguments":"{\"cmd\":\"ls\"}"}}`,
		`{"type":"response_item","timestamp":"2026-02-17T20:00:03Z","payload":{"type":"function_call_output","call_id":"call-1","output":"file.txt"}}`,
		`{"type":"event_msg","timestamp":"2026-02-17T20:00:04Z","payload":{"type":"token_count","info":{"total":42}}}`,
	}
}

func TestListCodex(t *testing.T) {
	base := t.TempDir()
	writeFixture(t, filepath.Join(base, "sessions", "2026", "02", "17"), "rollout-2026-02-17T20-00-00-s-new.jsonl", sampleLines())

	a := New(nil)
	refs, err := a.List(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "s-new", refs[0].NativeID)
	assert.Equal(t, "hello", refs[0].Title)
}

func TestListCodexBaseDirIsSessionsRoot(t *testing.T) {
	base := t.TempDir()
	sessionsDir := filepath.Join(base, "sessions")
	writeFixture(t, filepath.Join(sessionsDir, "2026", "02", "17"), "rollout-x.jsonl", sampleLines())

	a := New(nil)
	refs, err := a.List(context.Background(), sessionsDir)
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestImportCodex(t *testing.T) {
	base := t.TempDir()
	writeFixture(t, filepath.Join(base, "sessions", "2026", "02", "17"), "rollout-2026-02-17T20-00-00-s-new.jsonl", sampleLines())

	a := New(nil)
	session, err := a.Import(context.Background(), base, "s-new")
	require.NoError(t, err)

	assert.Equal(t, "stead:codex:s-new", session.SessionUID)
	assert.Equal(t, "/repo", session.Metadata.ProjectRoot)
	assert.Equal(t, "hello", session.Metadata.Title)
	require.Len(t, session.Events, 4)

	for idx, ev := range session.Events {
		require.NotNil(t, ev.Sequence)
		assert.Equal(t, uint64(idx), *ev.Sequence)
	}

	var toolCall, toolResult *model.Event
	for i := range session.Events {
		switch session.Events[i].Kind {
		case model.KindToolCall:
			toolCall = &session.Events[i]
		case model.KindToolResult:
			toolResult = &session.Events[i]
		}
	}
	require.NotNil(t, toolCall)
	require.NotNil(t, toolResult)
	assert.Equal(t, toolCall.EventUID, toolResult.Payload.(model.ToolResultPayload).CallID)
}

func TestImportCodexNotFound(t *testing.T) {
	base := t.TempDir()
	writeFixture(t, filepath.Join(base, "sessions", "2026", "02", "17"), "rollout-x.jsonl", sampleLines())

	a := New(nil)
	_, err := a.Import(context.Background(), base, "does-not-exist")
	require.Error(t, err)
}

func TestExportCodexRoundTrip(t *testing.T) {
	base := t.TempDir()
	srcDir := filepath.Join(base, "sessions", "2026", "02", "17")
	writeFixture(t, srcDir, "rollout-2026-02-17T20-00-00-s-new.jsonl", sampleLines())

	a := New(nil)
	session, err := a.Import(context.Background(), base, "s-new")
	require.NoError(t, err)

	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "sessions", "export.jsonl")
	report, err := a.Export(context.Background(), session, base, outPath)
	require.NoError(t, err)
	assert.Equal(t, outPath, report.OutputPath)
	assert.Equal(t, len(session.Events)+1, report.LineCount)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var firstLine map[string]any
	lines := splitLines(data)
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &firstLine))
	assert.Equal(t, "session_meta", firstLine["type"])
	payload := firstLine["payload"].(map[string]any)
	assert.Equal(t, "s-new", payload["id"])
	assert.Equal(t, "unknown", payload["model_provider"])

	reimported, err := a.Import(context.Background(), outDir, "s-new")
	require.NoError(t, err)
	assert.Equal(t, len(session.Events), len(reimported.Events))
	for i := range session.Events {
		assert.Equal(t, session.Events[i].Kind, reimported.Events[i].Kind)
		assert.Equal(t, session.Events[i].EventUID, reimported.Events[i].EventUID)
	}
}

func splitLines(data []byte) []string {
	var out []string
	cur := ""
	for _, b := range data {
		if b == '\n' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(b)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
