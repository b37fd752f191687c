package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crashstats/crashstorage/config"
	"github.com/crashstats/crashstorage/crashstorage"
	"github.com/crashstats/crashstorage/lookup"
	"github.com/crashstats/crashstorage/telemetry"
)

type app struct {
	configPath string
	cfg        config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:           "crashstorage",
		Short:         "Read and write crash records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the YAML configuration file")

	root.AddCommand(
		newVersionKeyCmd(),
		newGetCmd(a),
		newSaveCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetLevel(level)
	return nil
}

// openStore connects to the configured storage. The quit check follows the
// command's context so that retries stop on interrupt.
func (a *app) openStore(ctx context.Context) (*crashstorage.Store, error) {
	conn, err := lookup.Connection(ctx, a.cfg.Storage, a.cfg.Retry)
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		crashstorage.WithLogger(a.log),
		crashstorage.WithQuitCheck(func() bool { return ctx.Err() != nil }),
	)
	return crashstorage.New(conn, opts...), nil
}

// openExportStore returns a store writing crash reports to the configured
// storage through conn of primary.
func (a *app) openExportStore(ctx context.Context, primary *crashstorage.Store) (*crashstorage.Store, error) {
	registry, err := lookup.Registry(a.cfg.Registry)
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		crashstorage.WithLogger(a.log),
		crashstorage.WithQuitCheck(func() bool { return ctx.Err() != nil }),
	)
	return telemetry.NewStore(primary.Connection(), registry, opts...)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
