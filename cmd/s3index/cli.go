package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexeynavarkin/s3index/internal/connector"
	"github.com/alexeynavarkin/s3index/internal/indexer"
	"github.com/alexeynavarkin/s3index/internal/repository/index_repo"
)

type connectorFactory func(ctx context.Context, cfg connector.Config, lg *zap.Logger) (connector.Connector, error)

type indexOpener func(ctx context.Context, storageURL string, lg *zap.Logger) (*index_repo.SQLIndex, error)

// app carries what the commands share once PersistentPreRunE has run.
type app struct {
	cfg Config
	lg  *zap.Logger

	newConnector connectorFactory
	openIndex    indexOpener
}

func newApp() *app {
	return &app{
		newConnector: connector.New,
		openIndex:    index_repo.Open,
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "s3index",
		Short: "Index object storage keys for fast substring search",
		Long: BrandStyle.Render("s3index") + ` - Index object storage keys for fast substring search

Lists buckets of an object store, saves every key into a local index and
searches the index without querying the store again.

Configuration is read from S3INDEX_* environment variables, for example
S3INDEX_SOURCE_ENDPOINT or S3INDEX_INDEX_STORAGE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.lg.Sync()
		},
	}

	rootCmd.AddCommand(newSaveCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))

	return rootCmd
}

func (a *app) init() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	lg, err := newLogger(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.lg = lg
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	lgCfg := zap.NewProductionConfig()
	lgCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return lgCfg.Build()
}

func newSaveCmd(a *app) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "save [bucket]",
		Short: "Save keys from one bucket, or from all buckets, into the index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := ""
			if len(args) > 0 {
				container = args[0]
			}
			return a.save(cmd, container, batchSize)
		},
	}
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", indexer.DefaultBatchSize, "Number of keys saved per batch")

	return cmd
}

func (a *app) save(cmd *cobra.Command, container string, batchSize int) error {
	ctx := cmd.Context()
	p := NewPrinter(cmd.OutOrStdout())

	idx, err := a.openIndex(ctx, a.cfg.IndexStorage.URL, a.lg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	location, err := idx.EnsureSchema(ctx)
	if err != nil {
		return err
	}
	p.Infof("Using database at: %s", location)

	conCfg, err := a.cfg.connectorConfig()
	if err != nil {
		return err
	}
	con, err := a.newConnector(ctx, conCfg, a.lg)
	if err != nil {
		return fmt.Errorf("build connector: %w", err)
	}

	ix := indexer.NewIndexer(idx, con, a.lg, indexer.WithObserver(consoleObserver{p: p}))
	rep, err := ix.Index(ctx, container, batchSize)
	if err != nil {
		return err
	}

	p.Successf("Successfully saved %d keys to database in %d batches", rep.Inserted, rep.Batches)
	if rep.Failed > 0 {
		p.Warnf("%d keys could not be saved", rep.Failed)
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search saved keys by substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd, args[0], jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func (a *app) search(cmd *cobra.Command, query string, jsonOutput bool) error {
	ctx := cmd.Context()
	p := NewPrinter(cmd.OutOrStdout())

	idx, err := a.openIndex(ctx, a.cfg.IndexStorage.URL, a.lg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	results, err := idx.Search(ctx, query)
	if err != nil {
		return err
	}

	if jsonOutput {
		return p.JSON(toSearchResults(results))
	}

	if len(results) == 0 {
		p.Warnf("No results found")
		return nil
	}

	p.Successf("Found %d results:", len(results))
	table := NewTable("Bucket", "Key", "Last Modified")
	for _, obj := range results {
		table.AddRow(obj.Bucket, obj.Key, obj.LastModified)
	}
	table.Print(cmd.OutOrStdout())
	return nil
}
