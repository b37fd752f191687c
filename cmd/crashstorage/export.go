package main

import (
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export CRASH_ID",
		Short: "Save the crash report derived from the stored raw and processed crash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			crashID := args[0]

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			raw, err := s.GetRawCrash(ctx, crashID)
			if err != nil {
				return err
			}
			processed, err := s.GetUnredactedProcessed(ctx, crashID)
			if err != nil {
				return err
			}

			export, err := a.openExportStore(ctx, s)
			if err != nil {
				return err
			}
			if err := export.SaveRawAndProcessed(ctx, raw, nil, processed, crashID); err != nil {
				return err
			}
			a.log.WithField("crash_id", crashID).Info("crash report saved")
			return nil
		},
	}
}
