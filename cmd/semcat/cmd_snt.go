package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcat/snt"
)

func sntCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snt",
		Short: "Standard name table operations",
	}
	cmd.AddCommand(sntFetchCmd(state), sntCheckCmd(state))
	return cmd
}

func sntFetchCmd(state *cliState) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a standard name table and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheDir == "" {
				cacheDir = state.cfg.Convention.TableCacheDir
			}
			fetcher := &snt.Fetcher{CacheDir: cacheDir, Logger: state.logger}
			table, err := fetcher.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "table:       %s\n", table.Name)
			fmt.Fprintf(out, "version:     %s\n", table.Version)
			if table.Institution != "" {
				fmt.Fprintf(out, "institution: %s\n", table.Institution)
			}
			fmt.Fprintf(out, "entries:     %d\n", table.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "table cache directory")
	return cmd
}

func sntCheckCmd(state *cliState) *cobra.Command {
	var units string

	cmd := &cobra.Command{
		Use:   "check <table-file> <standard-name>",
		Short: "Check a standard name (and optionally units) against a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := snt.LoadFile(args[0])
			if err != nil {
				return err
			}
			name := args[1]
			if units != "" {
				if err := table.Check(name, units); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]: ok\n", name, units)
				return nil
			}
			if err := table.Verify(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&units, "units", "", "units expression to check against the table entry")
	return cmd
}
