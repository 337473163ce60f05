// Package backend declares the shared contract both the Codex and Claude
// adapters implement, so the synchronizer and materializer can drive either
// one without knowing its wire format.
package backend

import (
	"context"
	"time"

	"github.com/stead-core/stead-core-go/internal/model"
)

// NativeSessionRef summarizes one session as it exists natively in a
// backend, as surfaced by Adapter.List.
type NativeSessionRef struct {
	NativeID    string    `json:"native_id"`
	FilePath    string    `json:"file_path"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProjectRoot string    `json:"project_root"`
	Title       string    `json:"title,omitempty"`
}

// ExportReport records the outcome of projecting a canonical session back
// to a backend's native format.
type ExportReport struct {
	NativeID   string
	OutputPath string
	LineCount  int
}

// Adapter is implemented once per backend (Codex, Claude Code).
type Adapter interface {
	// Backend identifies which backend this adapter drives.
	Backend() model.Backend

	// List walks baseDir and returns every discoverable native session,
	// sorted by UpdatedAt descending. Unreadable or malformed files are
	// skipped rather than failing the whole walk.
	List(ctx context.Context, baseDir string) ([]NativeSessionRef, error)

	// Import reconstructs a canonical session for nativeID from the files
	// under baseDir. Returns a steaderr NotFound if no matching file exists.
	Import(ctx context.Context, baseDir, nativeID string) (*model.Session, error)

	// Export projects session to the native format rooted at baseDir,
	// writing to outPath when non-empty, else a backend-specific default.
	Export(ctx context.Context, session *model.Session, baseDir, outPath string) (ExportReport, error)
}
