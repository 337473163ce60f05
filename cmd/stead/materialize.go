package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stead-core/stead-core-go/internal/materializer"
	"github.com/stead-core/stead-core-go/internal/store"
)

func newMaterializeCmd() *cobra.Command {
	var repo, session, to, baseDir, out string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Project a stored canonical session into a backend's native format",
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

			nativeID, outputPath, err := m.Materialize(cmd.Context(), repo, session, target, baseDir, out)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{"native_id": nativeID, "output_path": outputPath})
			}
			fmt.Printf("%s %s\n", nativeID, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repo path whose canonical store to use")
	cmd.Flags().StringVar(&session, "session", "", "Canonical session uid")
	cmd.Flags().StringVar(&to, "to", "", "codex | claude")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Target backend's native log root")
	cmd.Flags().StringVar(&out, "out", "", "Explicit output path, overriding the default")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("base-dir")

	return cmd
}
