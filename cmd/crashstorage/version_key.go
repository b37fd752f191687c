package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crashstats/crashstorage/versionkey"
)

func newVersionKeyCmd() *cobra.Command {
	var sorted bool

	cmd := &cobra.Command{
		Use:   "version-key VERSION...",
		Short: "Print the sort key of product versions",
		Args:  cobra.MinimumNArgs(1),
		// Version keys need no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := append([]string(nil), args...)
			if sorted {
				if err := versionkey.Sort(versions); err != nil {
					return err
				}
			}
			for _, v := range versions {
				key, err := versionkey.GenerateVersionKey(v)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", v, key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sorted, "sort", false, "print the versions in ascending order")
	return cmd
}
