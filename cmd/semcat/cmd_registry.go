package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/store/sqlregistry"
)

func registryCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Dataset registry operations",
	}
	cmd.AddCommand(registryScanCmd(state), registryFindCmd(state))
	return cmd
}

func registryScanCmd(state *cliState) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "scan <dir-or-file>...",
		Short: "Scan HDF5 files into the dataset registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := sqlregistry.Open(state.cfg.Stores.RegistryPath,
				sqlregistry.WithLogger(state.logger))
			if err != nil {
				return err
			}
			defer registry.Close()

			total := 0
			files := 0
			for _, arg := range args {
				paths, err := expandScanTarget(arg, pattern)
				if err != nil {
					return err
				}
				for _, path := range paths {
					n, err := registry.RegisterFile(cmd.Context(), path, path)
					if err != nil {
						return fmt.Errorf("register %s: %w", path, err)
					}
					files++
					total += n
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d datasets from %d files\n", total, files)
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "**/*.{h5,hdf5}", "glob for files under scanned directories")
	return cmd
}

func expandScanTarget(arg, pattern string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}
	matches, err := doublestar.FilepathGlob(
		filepath.ToSlash(arg)+"/"+pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.FromSlash(m)
	}
	return paths, nil
}

func registryFindCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <standard-name>",
		Short: "Find registered datasets by standard name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := sqlregistry.Open(state.cfg.Stores.RegistryPath,
				sqlregistry.WithLogger(state.logger))
			if err != nil {
				return err
			}
			defer registry.Close()

			records, err := registry.FindByStandardName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}

			result := query.NewResult("file", "dataset", "units", "long_name")
			for _, rec := range records {
				if err := result.AddRow(rec.FilePath, rec.DatasetPath, rec.Units, rec.LongName); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), result.ToTable())
			return nil
		},
	}
	return cmd
}
