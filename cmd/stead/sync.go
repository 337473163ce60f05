package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stead-core/stead-core-go/internal/store"
	synchronizer "github.com/stead-core/stead-core-go/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var repo, codexBase, claudeBase string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upsert every native session scoped to repo into the canonical store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(repo)
			if err != nil {
				return err
			}
			sync := synchronizer.New(st, adapters())
			result, err := sync.Sync(cmd.Context(), repo, codexBase, claudeBase)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Printf("created %d, upserted %d\n", len(result.Created), len(result.Upserted))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Repo path scoping the sync")
	cmd.Flags().StringVar(&codexBase, "codex-base", "", "Codex native log root")
	cmd.Flags().StringVar(&claudeBase, "claude-base", "", "Claude native log root")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("codex-base")
	_ = cmd.MarkFlagRequired("claude-base")

	return cmd
}
