package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect native sessions on disk",
	}
	cmd.AddCommand(newSessionsListCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var backendFlag, baseDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List native sessions for one backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseBackend(backendFlag)
			if err != nil {
				return err
			}
			adapter := adapters()[target]

			refs, err := adapter.List(cmd.Context(), baseDir)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(refs)
			}
			for _, ref := range refs {
				fmt.Printf("%s %s\n", ref.NativeID, ref.FilePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backendFlag, "backend", "", "codex | claude")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Backend's native log root")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("backend")
	_ = cmd.MarkFlagRequired("base-dir")

	return cmd
}
