package materializer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stead-core/stead-core-go/internal/backend"
	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/store"
)

// writeShim installs a fake STEAD_CORE_RUNNER script that records its
// invocation to a file instead of actually driving a backend CLI.
func writeShim(t *testing.T, recordPath string) string {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "shim.sh")
	script := "#!/bin/sh\necho \"$@\" > \"" + recordPath + "\"\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o755))
	return scriptPath
}

func TestResumeUsesExistingNativeRefWithoutMaterializing(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)

	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: repo, UpdatedAt: time.Now().UTC()},
	}
	session.SetNativeRef("codex", model.NativeRef{SessionID: "native-1", Path: "/already/projected.jsonl"})
	_, err = st.Save(session)
	require.NoError(t, err)

	codex := &recordingAdapter{backendKind: model.BackendCodex}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendCodex: codex})

	record := filepath.Join(t.TempDir(), "record.txt")
	shim := writeShim(t, record)
	t.Setenv("STEAD_CORE_RUNNER", shim)

	err = m.Resume(context.Background(), repo, session.SessionUID, model.BackendCodex, "continue please", "", "")
	require.NoError(t, err)
	assert.Nil(t, codex.exported, "should not re-materialize when native_refs already has an entry")

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), "codex --resume native-1 continue please")
}

func TestResumeWithoutNativeRefRequiresBaseDir(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)
	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: repo, UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	claude := &recordingAdapter{backendKind: model.BackendClaudeCode}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendClaudeCode: claude})

	err = m.Resume(context.Background(), repo, session.SessionUID, model.BackendClaudeCode, "go", "", "")
	require.Error(t, err)
}

func TestResumeMaterializesWhenNoNativeRefAndBaseDirProvided(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)
	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: repo, UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	claude := &recordingAdapter{backendKind: model.BackendClaudeCode}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendClaudeCode: claude})

	record := filepath.Join(t.TempDir(), "record.txt")
	shim := writeShim(t, record)
	t.Setenv("STEAD_CORE_RUNNER", shim)

	baseDir := t.TempDir()
	err = m.Resume(context.Background(), repo, session.SessionUID, model.BackendClaudeCode, "go", baseDir, "")
	require.NoError(t, err)
	require.NotNil(t, claude.exported)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--resume")
}

func TestHandoffAlwaysForcesMaterialization(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)
	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: repo, UpdatedAt: time.Now().UTC()},
	}
	session.SetNativeRef("claude_code", model.NativeRef{SessionID: "stale-id", Path: "/old.jsonl"})
	_, err = st.Save(session)
	require.NoError(t, err)

	claude := &recordingAdapter{backendKind: model.BackendClaudeCode}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendClaudeCode: claude})

	record := filepath.Join(t.TempDir(), "record.txt")
	shim := writeShim(t, record)
	t.Setenv("STEAD_CORE_RUNNER", shim)

	baseDir := t.TempDir()
	err = m.Handoff(context.Background(), repo, session.SessionUID, model.BackendClaudeCode, "switch over", baseDir, "")
	require.NoError(t, err)
	require.NotNil(t, claude.exported)
}

func TestHandoffRequiresBaseDir(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)
	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: repo, UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	claude := &recordingAdapter{backendKind: model.BackendClaudeCode}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendClaudeCode: claude})

	err = m.Handoff(context.Background(), repo, session.SessionUID, model.BackendClaudeCode, "switch over", "", "")
	require.Error(t, err)
}
