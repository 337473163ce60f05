// Package sync implements the repo-scoped synchronizer: pulling native
// sessions from both backend adapters, resolving each against the store by
// the four-rung upsert identity ladder, and merging across backends.
package sync

import (
	"context"
	"path/filepath"

	"github.com/stead-core/stead-core-go/internal/backend"
	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/store"
)

// Synchronizer drives one sync operation across both backends.
type Synchronizer struct {
	Store    *store.Store
	Adapters map[model.Backend]backend.Adapter
}

// New builds a Synchronizer over the given store and adapter set.
func New(st *store.Store, adapters map[model.Backend]backend.Adapter) *Synchronizer {
	return &Synchronizer{Store: st, Adapters: adapters}
}

// Canonicalize normalizes a repo path for project_root comparison.
func Canonicalize(repo string) string {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return filepath.Clean(repo)
	}
	return filepath.Clean(abs)
}

// Result summarizes one Sync invocation.
type Result struct {
	Upserted []string
	Created  []string
}

// Sync consumes (repo, codexBase, claudeBase): loads every stored session,
// lists native sessions from each backend (scoped to repo when any native
// session's project_root matches), imports each, and upserts it against the
// store per §4.6.
func (s *Synchronizer) Sync(ctx context.Context, repo, codexBase, claudeBase string) (Result, error) {
	stored, err := s.Store.LoadAll()
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	baseDirs := map[model.Backend]string{
		model.BackendCodex:      codexBase,
		model.BackendClaudeCode: claudeBase,
	}

	for backendKind, adapter := range s.Adapters {
		baseDir := baseDirs[backendKind]
		if baseDir == "" {
			continue
		}
		refs, err := adapter.List(ctx, baseDir)
		if err != nil {
			return Result{}, err
		}
		refs = scopeToRepo(refs, repo)

		for _, ref := range refs {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}
			imported, err := adapter.Import(ctx, baseDir, ref.NativeID)
			if err != nil {
				return Result{}, err
			}
			created, err := s.upsert(&stored, backendKind, ref.NativeID, ref.FilePath, imported)
			if err != nil {
				return Result{}, err
			}
			if created {
				result.Created = append(result.Created, imported.SessionUID)
			} else {
				result.Upserted = append(result.Upserted, imported.SessionUID)
			}
		}
	}
	return result, nil
}

func scopeToRepo(refs []backend.NativeSessionRef, repo string) []backend.NativeSessionRef {
	want := Canonicalize(repo)
	var matched []backend.NativeSessionRef
	for _, ref := range refs {
		if ref.ProjectRoot != "" && Canonicalize(ref.ProjectRoot) == want {
			matched = append(matched, ref)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return refs
}

// upsert implements the §4.6 identity ladder and persists the result.
// stored is kept in sync in-memory so later native sessions in the same
// Sync call see earlier upserts.
func (s *Synchronizer) upsert(stored *[]*model.Session, backendKind model.Backend, nativeID, filePath string, imported *model.Session) (created bool, err error) {
	anchor := findByIdentity(*stored, backendKind, nativeID, imported)
	if anchor == nil {
		imported.SetNativeRef(string(backendKind), model.NativeRef{SessionID: nativeID, Path: filePath})
		if _, err := s.Store.Save(imported); err != nil {
			return false, err
		}
		*stored = append(*stored, imported)
		return true, nil
	}

	merged := Merge(anchor, imported)
	merged.SetNativeRef(string(backendKind), model.NativeRef{SessionID: nativeID, Path: filePath})
	if _, err := s.Store.Save(merged); err != nil {
		return false, err
	}
	*anchor = *merged
	return false, nil
}

func findByIdentity(stored []*model.Session, backendKind model.Backend, nativeID string, imported *model.Session) *model.Session {
	for _, candidate := range stored {
		if ref, ok := candidate.NativeRefs()[string(backendKind)]; ok && ref.SessionID == nativeID {
			return candidate
		}
	}
	for _, candidate := range stored {
		if candidate.SessionUID == imported.SessionUID {
			return candidate
		}
	}
	importedShared := imported.EffectiveSharedUID()
	for _, candidate := range stored {
		if candidate.EffectiveSharedUID() == importedShared {
			return candidate
		}
	}
	for _, candidate := range stored {
		for _, alias := range candidate.UIDAliases() {
			if alias == imported.SessionUID {
				return candidate
			}
		}
	}
	return nil
}
