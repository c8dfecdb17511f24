package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/c360studio/semcat/catalog"
	"github.com/c360studio/semcat/store"
	"github.com/c360studio/semcat/store/kvstore"
	"github.com/c360studio/semcat/store/memgraph"
	"github.com/c360studio/semcat/store/sparqlremote"
	"github.com/c360studio/semcat/store/sqlregistry"
)

func catalogCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "DCAT catalog operations",
	}
	cmd.AddCommand(catalogIngestCmd(state), catalogQueryCmd(state))
	return cmd
}

func catalogIngestCmd(state *cliState) *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "ingest <catalog-file>",
		Short: "Mirror a catalog: download, ingest metadata, register data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, stores, err := buildManager(cmd.Context(), state, workDir)
			if err != nil {
				return err
			}
			defer closeStores(stores)

			if err := m.Sync(cmd.Context(), args[0]); err != nil {
				return err
			}

			cat := m.Catalog()
			fmt.Fprintf(cmd.OutOrStdout(),
				"ingested %q: %d datasets, %d distributions mirrored\n",
				cat.Title, len(cat.Datasets), len(m.Downloads()))
			return nil
		},
	}
	cmd.Flags().StringVar(&workDir, "work-dir", "", "download directory (default from config)")
	return cmd
}

func catalogQueryCmd(state *cliState) *cobra.Command {
	var (
		workDir     string
		catalogFile string
	)

	cmd := &cobra.Command{
		Use:   "query <sparql | @file>",
		Short: "Run a federated SPARQL SELECT across the catalog stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if strings.HasPrefix(text, "@") {
				data, err := os.ReadFile(text[1:])
				if err != nil {
					return err
				}
				text = string(data)
			}

			m, stores, err := buildManager(cmd.Context(), state, workDir)
			if err != nil {
				return err
			}
			defer closeStores(stores)

			// The in-memory store starts empty; reloading the catalog is
			// cheap because verified downloads are reused.
			if catalogFile != "" {
				if err := m.Sync(cmd.Context(), catalogFile); err != nil {
					return err
				}
			}

			fr, err := m.Query(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, src := range fr.Sources {
				if src.Err != nil {
					fmt.Fprintf(out, "store %s failed: %v\n", src.Store, src.Err)
				}
			}
			for _, conflict := range fr.Conflicts {
				fmt.Fprintf(out, "warning: %s\n", conflict)
			}
			if fr.Combined == nil || fr.Combined.Len() == 0 {
				fmt.Fprintln(out, "no results")
				return nil
			}
			fmt.Fprint(out, fr.Combined.ToTable())
			return nil
		},
	}
	cmd.Flags().StringVar(&workDir, "work-dir", "", "download directory (default from config)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "catalog file to (re)ingest before querying")
	return cmd
}

// buildManager assembles the catalog manager from the configuration: an
// in-memory RDF store, one remote store per configured SPARQL endpoint,
// the SQLite registry as data store and, when NATS is configured, a KV
// metadata store for mirror records. Returns the stores for cleanup.
func buildManager(ctx context.Context, state *cliState, workDir string) (*catalog.Manager, []store.Store, error) {
	cfg := state.cfg
	if workDir == "" {
		workDir = cfg.Catalog.WorkDir
	}

	var stores []store.Store
	opts := []catalog.ManagerOption{
		catalog.WithLogger(state.logger),
		catalog.WithConcurrency(cfg.Catalog.Concurrency),
		catalog.WithRateLimit(rate.Limit(cfg.Catalog.RatePerSecond), cfg.Catalog.Concurrency*2),
	}

	mem := memgraph.New(memgraph.WithLogger(state.logger))
	stores = append(stores, mem)
	opts = append(opts, catalog.WithRDFStore("memory", mem))

	for _, endpoint := range cfg.Stores.SPARQLEndpoints {
		remote, err := sparqlremote.New(endpoint, sparqlremote.WithLogger(state.logger))
		if err != nil {
			closeStores(stores)
			return nil, nil, err
		}
		stores = append(stores, remote)
		opts = append(opts, catalog.WithRDFStore(endpoint, remote))
	}

	registry, err := sqlregistry.Open(cfg.Stores.RegistryPath,
		sqlregistry.WithLogger(state.logger))
	if err != nil {
		closeStores(stores)
		return nil, nil, err
	}
	stores = append(stores, registry)
	opts = append(opts, catalog.WithDataStore(registry))

	if cfg.Stores.NATSURL != "" {
		kv, err := kvstore.Open(ctx, cfg.Stores.NATSURL, cfg.Stores.NATSBucket,
			kvstore.WithLogger(state.logger))
		if err != nil {
			closeStores(stores)
			return nil, nil, err
		}
		stores = append(stores, kv)
		opts = append(opts, catalog.WithMetadataStore(kv))
	}

	m, err := catalog.NewManager(workDir, opts...)
	if err != nil {
		closeStores(stores)
		return nil, nil, err
	}
	return m, stores, nil
}

func closeStores(stores []store.Store) {
	for _, s := range stores {
		_ = s.Close()
	}
}
