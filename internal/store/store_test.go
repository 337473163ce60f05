package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stead-core/stead-core-go/internal/model"
)

func newSession(uid string) *model.Session {
	return &model.Session{
		SchemaVersion: model.SchemaVersion,
		SessionUID:    uid,
		Source:        model.NewSessionSource(model.BackendCodex, "native-1", nil, time.Now().UTC()),
		Metadata: model.SessionMetadata{
			ProjectRoot: "/repo",
			UpdatedAt:   time.Now().UTC(),
		},
	}
}

func TestSaveAndLoadByCanonicalPath(t *testing.T) {
	repo := t.TempDir()
	s, err := New(repo)
	require.NoError(t, err)

	session := newSession("stead:codex:native-1")
	path, err := s.Save(session)
	require.NoError(t, err)
	assert.Contains(t, path, ".stead-core/sessions")

	loaded, err := s.Load("stead:codex:native-1")
	require.NoError(t, err)
	assert.Equal(t, session.SessionUID, loaded.SessionUID)
}

func TestLoadFallsBackToAliasScan(t *testing.T) {
	repo := t.TempDir()
	s, err := New(repo)
	require.NoError(t, err)

	session := newSession("stead:codex:native-1")
	session.SharedSessionUID = "stead:claude_code:native-1"
	session.AddUIDAlias("stead:codex:old-alias")
	_, err = s.Save(session)
	require.NoError(t, err)

	loaded, err := s.Load("stead:claude_code:native-1")
	require.NoError(t, err)
	assert.Equal(t, session.SessionUID, loaded.SessionUID)

	loaded, err = s.Load("stead:codex:old-alias")
	require.NoError(t, err)
	assert.Equal(t, session.SessionUID, loaded.SessionUID)
}

func TestLoadNotFound(t *testing.T) {
	repo := t.TempDir()
	s, err := New(repo)
	require.NoError(t, err)
	_, err = s.Load("stead:codex:missing")
	require.Error(t, err)
}

func TestFilenameSanitizesAndFallsBack(t *testing.T) {
	assert.Equal(t, "stead_codex_abc-"+shorthash("stead:codex:abc")+".json", filename("stead:codex:abc"))
	assert.Equal(t, "session-"+shorthash("")+".json", filename(""))
}

func TestLoadAllSortsByUpdatedAtDescending(t *testing.T) {
	repo := t.TempDir()
	s, err := New(repo)
	require.NoError(t, err)

	older := newSession("stead:codex:older")
	older.Metadata.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := newSession("stead:codex:newer")
	newer.Metadata.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err = s.Save(older)
	require.NoError(t, err)
	_, err = s.Save(newer)
	require.NoError(t, err)

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "stead:codex:newer", all[0].SessionUID)
	assert.Equal(t, "stead:codex:older", all[1].SessionUID)
}
