package main

import (
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var from, to, sourceBase, targetBase, session, out string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Import from one backend and export directly to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromBackend, err := parseBackend(from)
			if err != nil {
				return err
			}
			toBackend, err := parseBackend(to)
			if err != nil {
				return err
			}

			all := adapters()
			canonical, err := all[fromBackend].Import(cmd.Context(), sourceBase, session)
			if err != nil {
				return err
			}
			_, err = all[toBackend].Export(cmd.Context(), canonical, targetBase, out)
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "codex | claude")
	cmd.Flags().StringVar(&to, "to", "", "codex | claude")
	cmd.Flags().StringVar(&sourceBase, "source-base", "", "Source backend's native log root")
	cmd.Flags().StringVar(&targetBase, "target-base", "", "Target backend's native log root")
	cmd.Flags().StringVar(&session, "session", "", "Native session id in the source backend")
	cmd.Flags().StringVar(&out, "out", "", "Output path within target-base")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("source-base")
	_ = cmd.MarkFlagRequired("target-base")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
