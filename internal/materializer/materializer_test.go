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

type recordingAdapter struct {
	backendKind model.Backend
	exported    *model.Session
	outPath     string
}

func (a *recordingAdapter) Backend() model.Backend { return a.backendKind }

func (a *recordingAdapter) List(ctx context.Context, baseDir string) ([]backend.NativeSessionRef, error) {
	return nil, nil
}

func (a *recordingAdapter) Import(ctx context.Context, baseDir, nativeID string) (*model.Session, error) {
	return nil, nil
}

func (a *recordingAdapter) Export(ctx context.Context, session *model.Session, baseDir, outPath string) (backend.ExportReport, error) {
	a.exported = session
	a.outPath = outPath
	return backend.ExportReport{NativeID: session.Source.OriginalSessionID, OutputPath: outPath, LineCount: len(session.Events)}, nil
}

var _ backend.Adapter = (*recordingAdapter)(nil)

func TestMintNativeIDDeterministic(t *testing.T) {
	a := MintNativeID(model.BackendClaudeCode, "stead:codex:abc")
	b := MintNativeID(model.BackendClaudeCode, "stead:codex:abc")
	assert.Equal(t, a, b)
	c := MintNativeID(model.BackendCodex, "stead:codex:abc")
	assert.NotEqual(t, a, c)
}

func TestMaterializeUsesSourceBackendIDWhenTargetMatchesSource(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)

	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: "/repo", UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	codex := &recordingAdapter{backendKind: model.BackendCodex}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendCodex: codex})

	baseDir := t.TempDir()
	nativeID, outPath, err := m.Materialize(context.Background(), repo, session.SessionUID, model.BackendCodex, baseDir, "")
	require.NoError(t, err)
	assert.Equal(t, "native-1", nativeID)
	assert.Contains(t, outPath, "sessions")
	assert.Contains(t, outPath, "native-1")

	reloaded, err := st.Load(session.SessionUID)
	require.NoError(t, err)
	assert.Equal(t, "native-1", reloaded.NativeRefs()["codex"].SessionID)
}

func TestMaterializeMintsCrossBackendID(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)

	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: "/repo", UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	claude := &recordingAdapter{backendKind: model.BackendClaudeCode}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendClaudeCode: claude})

	baseDir := t.TempDir()
	nativeID, outPath, err := m.Materialize(context.Background(), repo, session.SessionUID, model.BackendClaudeCode, baseDir, "")
	require.NoError(t, err)
	assert.Equal(t, MintNativeID(model.BackendClaudeCode, session.EffectiveSharedUID()), nativeID)
	assert.Contains(t, outPath, "projects")
	assert.Equal(t, nativeID, claude.exported.Source.OriginalSessionID)
}

func TestMaterializeExplicitOutOverridesDefault(t *testing.T) {
	repo := t.TempDir()
	st, err := store.New(repo)
	require.NoError(t, err)
	session := &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    model.BuildSessionUID(model.BackendCodex, "native-1"),
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata:      model.SessionMetadata{ProjectRoot: "/repo", UpdatedAt: time.Now().UTC()},
	}
	_, err = st.Save(session)
	require.NoError(t, err)

	codex := &recordingAdapter{backendKind: model.BackendCodex}
	m := New(st, map[model.Backend]backend.Adapter{model.BackendCodex: codex})

	explicit := filepath.Join(t.TempDir(), "out.jsonl")
	_, outPath, err := m.Materialize(context.Background(), repo, session.SessionUID, model.BackendCodex, t.TempDir(), explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, outPath)
}

func TestPruneStaleCodexRolloutsDeletesOnlyMatchingSuffix(t *testing.T) {
	base := t.TempDir()
	sessionsDir := filepath.Join(base, "sessions", "2026", "02", "17")
	require.NoError(t, os.MkdirAll(sessionsDir, 0o755))

	stale := filepath.Join(sessionsDir, "rollout-old-native-1.jsonl")
	unrelated := filepath.Join(sessionsDir, "rollout-old-native-2.jsonl")
	target := filepath.Join(sessionsDir, "rollout-new-native-1.jsonl")
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(unrelated, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	require.NoError(t, pruneStaleCodexRollouts(base, "native-1", target))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
	_, err = os.Stat(target)
	assert.NoError(t, err)
}
