package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crashstats/crashstorage/crashstorage"
)

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read crash artifacts",
	}
	cmd.AddCommand(
		newGetRawCmd(a),
		newGetProcessedCmd(a),
		newGetDumpCmd(a),
		newGetDumpsCmd(a),
	)
	return cmd
}

func newGetRawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "raw CRASH_ID",
		Short: "Print the raw crash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			raw, err := s.GetRawCrash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func newGetProcessedCmd(a *app) *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "processed CRASH_ID",
		Short: "Print the processed crash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if report {
				if s, err = a.openExportStore(cmd.Context(), s); err != nil {
					return err
				}
			}

			processed, err := s.GetUnredactedProcessed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), processed)
		},
	}
	cmd.Flags().BoolVar(&report, "crash-report", false, "print the exported crash report instead")
	return cmd
}

func newGetDumpCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "dump CRASH_ID [NAME]",
		Short: "Write one dump to a file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			name := crashstorage.DefaultDumpName
			if len(args) == 2 {
				name = args[1]
			}
			data, err := s.GetRawDump(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0600)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write the dump to")
	return cmd
}

func newGetDumpsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dumps CRASH_ID",
		Short: "Write every dump to a temporary file and print the paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			files, err := s.GetRawDumpsAsFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			names := make([]string, 0, len(files))
			for name := range files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, files[name])
			}
			return nil
		},
	}
}
