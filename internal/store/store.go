// Package store implements the canonical session store: a content-addressed,
// sanitized-filename JSON directory under <repo>/.stead-core/sessions/,
// written with atomic temp-file-then-rename writes and a directory-scan
// fallback lookup by alias.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/steaderr"
)

const subsystem = "store"

// Store persists canonical sessions as one JSON file per session under a
// repo-scoped directory.
type Store struct {
	dir string
}

// Dir returns the canonical sessions directory for repo.
func Dir(repo string) string {
	return filepath.Join(repo, ".stead-core", "sessions")
}

// New returns a Store rooted at Dir(repo), creating it if necessary.
func New(repo string) (*Store, error) {
	dir := Dir(repo)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, steaderr.IO(subsystem, dir, err)
	}
	return &Store{dir: dir}, nil
}

func shorthash(uid string) string {
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64String(uid)))
}

func sanitize(uid string) string {
	var b strings.Builder
	for _, r := range uid {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// filename builds <sanitized_uid>-<shorthash(uid)>.json, with an
// empty-sanitized fallback.
func filename(uid string) string {
	sanitized := sanitize(uid)
	hash := shorthash(uid)
	if sanitized == "" {
		return fmt.Sprintf("session-%s.json", hash)
	}
	return fmt.Sprintf("%s-%s.json", sanitized, hash)
}

func (s *Store) path(uid string) string {
	return filepath.Join(s.dir, filename(uid))
}

// Save writes session to its canonical path atomically (temp file + rename)
// and returns the path written.
func (s *Store) Save(session *model.Session) (string, error) {
	if session == nil {
		return "", steaderr.InvalidFormat(subsystem, "session is nil", nil)
	}
	path := s.path(session.SessionUID)
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", steaderr.InvalidFormat(subsystem, "marshal session", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", steaderr.IO(subsystem, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", steaderr.IO(subsystem, path, err)
	}
	return path, nil
}

// Load fetches the session identified by uid. It first tries the canonical
// filename, then falls back to scanning the directory for any stored session
// whose session_uid, shared_session_uid, or an alias matches.
func (s *Store) Load(uid string) (*model.Session, error) {
	if session, err := s.readFile(s.path(uid)); err == nil {
		return session, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, steaderr.NotFound(subsystem, fmt.Sprintf("no stored session matching %q", uid))
		}
		return nil, steaderr.IO(subsystem, s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := s.readFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		if matches(session, uid) {
			return session, nil
		}
	}
	return nil, steaderr.NotFound(subsystem, fmt.Sprintf("no stored session matching %q", uid))
}

func matches(session *model.Session, uid string) bool {
	if session.SessionUID == uid || session.SharedSessionUID == uid {
		return true
	}
	for _, alias := range session.UIDAliases() {
		if alias == uid {
			return true
		}
	}
	return false
}

func (s *Store) readFile(path string) (*model.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, steaderr.InvalidFormat(subsystem, path, err)
	}
	return &session, nil
}

// LoadAll returns every stored session, sorted by UpdatedAt descending.
func (s *Store) LoadAll() ([]*model.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, steaderr.IO(subsystem, s.dir, err)
	}
	var sessions []*model.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := s.readFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Metadata.UpdatedAt.After(sessions[j].Metadata.UpdatedAt)
	})
	return sessions, nil
}
