package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/stead-core/stead-core-go/internal/materializer"
	"github.com/stead-core/stead-core-go/internal/store"
)

func newResumeCmd() *cobra.Command {
	var repo, session, backendFlag, prompt, baseDir, out string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a session on its own backend, materializing it first if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseBackend(backendFlag)
			if err != nil {
				return err
			}
			st, err := store.New(repo)
			if err != nil {
				return err
			}
			m := materializer.New(st, adapters())
			if err := m.Resume(cmd.Context(), repo, session, target, prompt, baseDir, out); err != nil {
				return err
			}
			return reportOK(jsonOutput)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repo path whose canonical store to use")
	cmd.Flags().StringVar(&session, "session", "", "Canonical session uid")
	cmd.Flags().StringVar(&backendFlag, "backend", "", "codex | claude")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt to continue the session with")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Native log root, used only if materialization is needed")
	cmd.Flags().StringVar(&out, "out", "", "Explicit materialization output path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("backend")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func newHandoffCmd() *cobra.Command {
	var repo, session, to, prompt, baseDir, out string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Hand a session off to the other backend, re-materializing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseBackend(to)
			if err != nil {
				return err
			}
			st, err := store.New(repo)
			if err != nil {
				return err
			}
			m := materializer.New(st, adapters())
			if err := m.Handoff(cmd.Context(), repo, session, target, prompt, baseDir, out); err != nil {
				return err
			}
			return reportOK(jsonOutput)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repo path whose canonical store to use")
	cmd.Flags().StringVar(&session, "session", "", "Canonical session uid")
	cmd.Flags().StringVar(&to, "to", "", "codex | claude")
	cmd.Flags().StringVar(&prompt, "resume", "", "Prompt to continue the session with on the new backend")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Target backend's native log root")
	cmd.Flags().StringVar(&out, "out", "", "Explicit materialization output path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("resume")

	return cmd
}

func reportOK(jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]bool{"ok": true})
	}
	return nil
}
