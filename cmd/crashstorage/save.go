package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/crashstats/crashstorage/crashid"
	"github.com/crashstats/crashstorage/crashstorage"
)

func newSaveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Write crash artifacts",
	}
	cmd.AddCommand(
		newSaveRawCmd(a),
		newSaveProcessedCmd(a),
	)
	return cmd
}

func newSaveRawCmd(a *app) *cobra.Command {
	var (
		rawPath string
		dumps   []string
	)

	cmd := &cobra.Command{
		Use:   "raw [CRASH_ID]",
		Short: "Save a raw crash and its dumps; a new crash ID is made when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			crashID := ""
			if len(args) == 1 {
				crashID = args[0]
			} else {
				crashID = crashid.Create(time.Now())
			}

			raw := crashstorage.RawCrash{}
			if rawPath != "" {
				data, err := os.ReadFile(rawPath)
				if err != nil {
					return err
				}
				m, err := crashstorage.DecodePreserveNumbers(data)
				if err != nil {
					return errors.Wrapf(err, "reading %s", rawPath)
				}
				raw = crashstorage.RawCrash(m)
			}

			memoryDumps, err := readDumps(dumps)
			if err != nil {
				return err
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SaveRawCrash(cmd.Context(), raw, memoryDumps, crashID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), crashID)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawPath, "raw", "", "JSON file holding the raw crash")
	cmd.Flags().StringArrayVar(&dumps, "dump", nil, "dump to save as NAME=PATH; repeatable")
	return cmd
}

func readDumps(specs []string) (crashstorage.MemoryDumps, error) {
	dumps := crashstorage.MemoryDumps{}
	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok {
			// A bare path is the main dump.
			name, path = "", spec
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dumps[name] = data
	}
	return dumps, nil
}

func newSaveProcessedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "processed",
		Short: "Save a processed crash; the crash ID is its uuid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			m, err := crashstorage.DecodePreserveNumbers(data)
			if err != nil {
				return errors.Wrapf(err, "reading %s", file)
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return s.SaveProcessed(cmd.Context(), crashstorage.ProcessedCrash(m))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file holding the processed crash")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
