package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/stead-core/stead-core-go/internal/model"
	"github.com/stead-core/stead-core-go/internal/steaderr"
)

func newImportCmd() *cobra.Command {
	var from, baseDir, session, out string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a native session into canonical JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseBackend(from)
			if err != nil {
				return err
			}
			adapter := adapters()[target]

			canonical, err := adapter.Import(cmd.Context(), baseDir, session)
			if err != nil {
				return err
			}
			return writeCanonicalJSON(canonical, out)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "codex | claude")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Backend's native log root")
	cmd.Flags().StringVar(&session, "session", "", "Native session id")
	cmd.Flags().StringVar(&out, "out", "", "Output path for canonical JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("base-dir")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func writeCanonicalJSON(v any, out string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func readCanonicalSession(path string) (*model.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, steaderr.IO("cli", path, err)
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, steaderr.InvalidFormat("cli", path, err)
	}
	return &session, nil
}
