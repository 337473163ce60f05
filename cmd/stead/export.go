package main

import (
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var to, baseDir, in, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Project a canonical session to a backend's native format",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseBackend(to)
			if err != nil {
				return err
			}
			session, err := readCanonicalSession(in)
			if err != nil {
				return err
			}
			adapter := adapters()[target]
			_, err = adapter.Export(cmd.Context(), session, baseDir, out)
			return err
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "codex | claude")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Backend's native log root")
	cmd.Flags().StringVar(&in, "in", "", "Canonical JSON input path")
	cmd.Flags().StringVar(&in, "input", "", "Alias of --in")
	cmd.Flags().StringVar(&out, "out", "", "Output path within base-dir")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("base-dir")
	cmd.MarkFlagsOneRequired("in", "input")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
