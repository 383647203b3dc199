package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/souq/internal/app"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/repository/postgres"
	catalogimport "github.com/kailas-cloud/souq/internal/usecase/catalog"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "index", Short: "Manage the per-language catalog search indexes"}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the Arabic and English indexes if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := openCore(cmd, opts)
			if err != nil {
				return err
			}
			defer core.Close()

			created, err := core.Indexes.EnsureIndexes(cmd.Context(), core.Config.Embedding.Dimensions)
			if err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "indexes already exist")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", strings.Join(created, ", "))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop the catalog indexes, keeping item hashes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := openCore(cmd, opts)
			if err != nil {
				return err
			}
			defer core.Close()

			if err := core.Indexes.DropIndexes(cmd.Context()); err != nil {
				return fmt.Errorf("drop indexes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes dropped")
			return nil
		},
	})
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the transaction tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			sqlDB, err := postgres.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer func() { _ = sqlDB.Close() }()

			if err := postgres.NewTransactionRepository(sqlDB).Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Embed and store the items of a catalog file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := catalogimport.LoadFile(file)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}

			core, err := openCore(cmd, opts)
			if err != nil {
				return err
			}
			defer core.Close()

			if _, err := core.Indexes.EnsureIndexes(cmd.Context(), core.Config.Embedding.Dimensions); err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}

			report, err := core.Importer().Import(cmd.Context(), entries)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d items\n", len(report.Imported), len(entries))
			if err := report.Err(); err != nil {
				return fmt.Errorf("%d items failed: %w", len(report.Failed), err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		threshold float64
		filters   map[string]string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run the retrieval pipeline once and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd, opts)
			if err != nil {
				return err
			}
			defer core.Close()

			if !cmd.Flags().Changed("threshold") {
				threshold = core.Config.Search.Threshold()
			}
			expr, err := filter.FromMap(filters)
			if err != nil {
				return fmt.Errorf("filters: %w", err)
			}
			q, err := query.New(strings.TrimSpace(strings.Join(args, " ")), limit, threshold, expr, core.Config.Search.MaxLimit)
			if err != nil {
				return err //nolint:wrapcheck // validation message
			}

			res, err := core.SearchService().Search(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(searchOutput(res)) //nolint:wrapcheck // stdout
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", query.DefaultLimit, "maximum number of items")
	cmd.Flags().Float64Var(&threshold, "threshold", query.DefaultScoreThreshold, "minimum vector similarity for related results")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "equality filters, e.g. category=tools")
	return cmd
}

func openCore(cmd *cobra.Command, opts *rootOptions) (*app.Core, error) {
	cfg, logger, err := opts.load()
	if err != nil {
		return nil, err
	}
	core, err := app.OpenCore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return core, nil
}
