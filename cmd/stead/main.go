// Command stead reconciles Codex and Claude Code session logs into a
// canonical session model and projects them back to either backend.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stead-core/stead-core-go/internal/backend"
	"github.com/stead-core/stead-core-go/internal/claudeadapter"
	"github.com/stead-core/stead-core-go/internal/codexadapter"
	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/steaderr"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(steaderr.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "stead",
	Short: "Reconcile Codex and Claude Code session logs into a canonical model",
	Long: `stead imports, exports, syncs, materializes, and resumes interactive
coding-agent sessions captured by the Codex and Claude Code backends,
reconciling them into one canonical session model.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newMaterializeCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newHandoffCmd())
}

// adapters returns the full backend.Adapter set, keyed by model.Backend.
func adapters() map[model.Backend]backend.Adapter {
	return map[model.Backend]backend.Adapter{
		model.BackendCodex:      codexadapter.New(logger),
		model.BackendClaudeCode: claudeadapter.New(logger),
	}
}

// parseBackend maps a CLI --backend/--from/--to value to a model.Backend.
func parseBackend(value string) (model.Backend, error) {
	switch value {
	case "codex":
		return model.BackendCodex, nil
	case "claude":
		return model.BackendClaudeCode, nil
	default:
		return "", steaderr.InvalidFormat("cli", "backend must be \"codex\" or \"claude\", got \""+value+"\"", nil)
	}
}
