package materializer

import (
	"context"
	"fmt"

	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/runner"
	"github.com/stead-core/stead-core-go/internal/steaderr"
)

// backendKey maps the canonical Backend to the wire key used in resume
// command lines ("codex" / "claude").
func backendKey(b model.Backend) string {
	if b == model.BackendClaudeCode {
		return "claude"
	}
	return string(b)
}

// Resume continues a session on its own backend, reusing an existing
// native ref when one is present and materializing only when needed.
func (m *Materializer) Resume(ctx context.Context, repo, sessionUID string, target model.Backend, prompt, baseDir, explicitOut string) error {
	session, err := m.Store.Load(sessionUID)
	if err != nil {
		return err
	}
	session.EnsureSharedUID()

	ref, ok := session.NativeRefs()[string(target)]
	nativeID := ref.SessionID
	if !ok || nativeID == "" {
		if baseDir == "" {
			return steaderr.MissingProjection("resume", fmt.Sprintf("no native_refs[%s] and no base_dir to materialize into", target))
		}
		mintedID, _, err := m.Materialize(ctx, repo, sessionUID, target, baseDir, explicitOut)
		if err != nil {
			return err
		}
		nativeID = mintedID
	}

	return invoke(ctx, repo, target, nativeID, prompt)
}

// Handoff is Resume with the target-backend materialization path forced:
// a fresh projection is always written before invoking the target backend,
// even when native_refs already has an entry for it. That entry's session
// id is still reused as the native id (see selectNativeID).
func (m *Materializer) Handoff(ctx context.Context, repo, sessionUID string, target model.Backend, prompt, baseDir, explicitOut string) error {
	if baseDir == "" {
		return steaderr.MissingProjection("resume", "handoff requires base_dir to materialize into")
	}
	nativeID, _, err := m.Materialize(ctx, repo, sessionUID, target, baseDir, explicitOut)
	if err != nil {
		return err
	}
	return invoke(ctx, repo, target, nativeID, prompt)
}

func invoke(ctx context.Context, repo string, target model.Backend, nativeID, prompt string) error {
	key := backendKey(target)

	var err error
	if shim, ok := runner.TestShim(); ok {
		// The test shim inherits this process's working directory; the
		// backend binaries below run in repo.
		err = runner.Run(ctx, "", shim, key, "--resume", nativeID, prompt)
	} else if target == model.BackendCodex {
		err = runner.Run(ctx, repo, runner.CodexBin(), "exec", "resume", nativeID, prompt)
	} else {
		err = runner.Run(ctx, repo, runner.ClaudeBin(), "-p", "-r", nativeID, prompt)
	}
	if err != nil {
		return steaderr.ResumeFailed(key, err)
	}
	return nil
}
