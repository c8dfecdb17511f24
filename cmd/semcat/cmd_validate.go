package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semcat/convention"
	"github.com/c360studio/semcat/hdf"
	"github.com/c360studio/semcat/snt"
)

func validateCmd(state *cliState) *cobra.Command {
	var (
		conventionName string
		conventionFile string
		fetchTable     bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file.h5>",
		Short: "Validate an HDF5 file's attributes against a convention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := resolveConvention(state, conventionName, conventionFile)
			if err != nil {
				return err
			}
			if fetchTable && conv.TableURL != "" && conv.Table() == nil {
				fetcher := &snt.Fetcher{
					CacheDir: state.cfg.Convention.TableCacheDir,
					Logger:   state.logger,
				}
				table, err := fetcher.Fetch(cmd.Context(), conv.TableURL)
				if err != nil {
					return fmt.Errorf("fetch standard name table: %w", err)
				}
				conv.SetTable(table)
			}

			report, err := hdf.Inspect(args[0], conv)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Summary())
			for _, obj := range report.Objects {
				for _, issue := range obj.Issues {
					fmt.Fprintf(out, "  %s %s: %s (%s)\n",
						issue.Severity, obj.Path, issue.Message, issue.Attribute)
				}
			}
			if !report.Clean() {
				return fmt.Errorf("%d validation errors", report.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conventionName, "convention", "", "registered convention name (default from config)")
	cmd.Flags().StringVar(&conventionFile, "convention-file", "", "convention definition file (YAML)")
	cmd.Flags().BoolVar(&fetchTable, "fetch-table", false, "fetch the convention's standard name table before validating")
	return cmd
}

// resolveConvention loads the convention from a file, the registry or the
// configuration, in that order.
func resolveConvention(state *cliState, name, file string) (*convention.Convention, error) {
	if file == "" {
		file = state.cfg.Convention.File
	}
	if file != "" {
		conv, err := convention.LoadFile(file)
		if err != nil {
			return nil, err
		}
		convention.RegisterConvention(conv)
		return conv, nil
	}

	if name == "" {
		name = state.cfg.Convention.Name
	}
	if name == "" {
		return nil, fmt.Errorf("no convention selected: use --convention or --convention-file")
	}
	conv, ok := convention.GetConvention(name)
	if !ok {
		return nil, fmt.Errorf("convention %q is not registered", name)
	}
	return conv, nil
}
