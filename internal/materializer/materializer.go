// Package materializer implements projecting a canonical session back into
// a backend's native format: native-id selection (including deterministic
// cross-backend UUIDv5 minting), default output paths, and the Codex
// stale-rollout pruning hygiene step.
package materializer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stead-core/stead-core-go/internal/backend"
	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/steaderr"
	"github.com/stead-core/stead-core-go/internal/store"
)

const subsystem = "materializer"

// Materializer projects canonical sessions into backend-native files.
type Materializer struct {
	Store    *store.Store
	Adapters map[model.Backend]backend.Adapter
}

func New(st *store.Store, adapters map[model.Backend]backend.Adapter) *Materializer {
	return &Materializer{Store: st, Adapters: adapters}
}

// MintNativeID implements the deterministic cross-backend id: a UUIDv5 of
// the namespace URL and the name "stead-native:<target>:<shared_uid>".
func MintNativeID(target model.Backend, sharedUID string) string {
	name := fmt.Sprintf("stead-native:%s:%s", target, sharedUID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// selectNativeID implements §4.8 step 2.
func selectNativeID(session *model.Session, target model.Backend) string {
	if ref, ok := session.NativeRefs()[string(target)]; ok && ref.SessionID != "" {
		return ref.SessionID
	}
	if session.Source.Backend == target {
		return session.Source.OriginalSessionID
	}
	return MintNativeID(target, session.EffectiveSharedUID())
}

// defaultOutputPath implements §4.8 step 3.
func defaultOutputPath(target model.Backend, baseDir, nativeID, projectRoot string, now time.Time) string {
	switch target {
	case model.BackendCodex:
		root := baseDir
		if !strings.EqualFold(filepath.Base(baseDir), "sessions") {
			root = filepath.Join(baseDir, "sessions")
		}
		stamp := now.UTC().Format("2006-01-02T15-04-05")
		return filepath.Join(root, now.UTC().Format("2006"), now.UTC().Format("01"), now.UTC().Format("02"),
			fmt.Sprintf("rollout-%s-%s.jsonl", stamp, nativeID))
	case model.BackendClaudeCode:
		slug := strings.NewReplacer("/", "-", "\\", "-").Replace(projectRoot)
		return filepath.Join(baseDir, "projects", slug, nativeID+".jsonl")
	default:
		return filepath.Join(baseDir, nativeID+".jsonl")
	}
}

// pruneStaleCodexRollouts implements §4.8 step 4: delete every file under
// the codex sessions root whose name ends in "-<nativeID>.jsonl" and is not
// the target path.
func pruneStaleCodexRollouts(baseDir, nativeID, target string) error {
	root := baseDir
	if !strings.EqualFold(filepath.Base(baseDir), "sessions") {
		root = filepath.Join(baseDir, "sessions")
	}
	suffix := "-" + nativeID + ".jsonl"
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if path == target {
			return nil
		}
		if strings.HasSuffix(path, suffix) {
			return os.Remove(path)
		}
		return nil
	})
}

// Materialize projects a stored canonical session into target's native
// format, selecting or minting a native id and choosing an output path.
func (m *Materializer) Materialize(ctx context.Context, repo, sessionUID string, target model.Backend, baseDir, explicitOut string) (nativeID, outputPath string, err error) {
	session, err := m.Store.Load(sessionUID)
	if err != nil {
		return "", "", err
	}
	session.EnsureSharedUID()

	adapter, ok := m.Adapters[target]
	if !ok {
		return "", "", steaderr.MissingProjection(subsystem, fmt.Sprintf("no adapter registered for backend %q", target))
	}

	nativeID = selectNativeID(session, target)

	outPath := explicitOut
	if outPath == "" {
		outPath = defaultOutputPath(target, baseDir, nativeID, session.Metadata.ProjectRoot, time.Now())
	}

	if target == model.BackendCodex {
		if err := pruneStaleCodexRollouts(baseDir, nativeID, outPath); err != nil {
			return "", "", steaderr.IO(subsystem, baseDir, err)
		}
	}

	clone := cloneForExport(session, nativeID)

	report, err := adapter.Export(ctx, clone, baseDir, outPath)
	if err != nil {
		return "", "", err
	}

	session.SetNativeRef(string(target), model.NativeRef{SessionID: nativeID, Path: report.OutputPath})
	session.EnsureSharedUID()
	if _, err := m.Store.Save(session); err != nil {
		return "", "", err
	}

	return nativeID, report.OutputPath, nil
}

// cloneForExport deep-copies the fields export touches, setting
// original_session_id to nativeID so the projected file is self-consistent,
// without mutating the stored session.
func cloneForExport(session *model.Session, nativeID string) *model.Session {
	clone := *session
	clone.Source.OriginalSessionID = nativeID
	clone.Events = append([]model.Event(nil), session.Events...)
	clone.Artifacts = append([]model.SessionArtifactRef(nil), session.Artifacts...)
	return &clone
}
