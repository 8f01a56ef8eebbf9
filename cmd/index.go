package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yqzn9/lipidbot/internal/citation"
	"github.com/yqzn9/lipidbot/internal/config"
	"github.com/yqzn9/lipidbot/internal/entity"
	"github.com/yqzn9/lipidbot/internal/observability"
)

// newIndexCmd groups the offline index maintenance commands.
func newIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the retrieval indexes",
	}
	indexCmd.AddCommand(newIndexBuildCmd())
	return indexCmd
}

// newIndexBuildCmd creates the `index build` command. It builds everything
// the server loads at startup: the keyword index and embedding vectors from
// the citation CSV, and the alias dictionary cache from the ID map CSVs.
func newIndexBuildCmd() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Builds the citation indexes and the entity alias cache",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("citation.corpus_csv", cmd.Flags().Lookup("corpus")); err != nil {
				return err
			}
			return viper.BindPFlag("entity.alias_dir", cmd.Flags().Lookup("maps-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			embedder, err := newEmbeddingClient(cfg.Citation, logger)
			if err != nil {
				return err
			}
			if err := citation.BuildIndexes(ctx, cfg.Citation, embedder, logger); err != nil {
				return fmt.Errorf("failed to build citation indexes: %w", err)
			}

			dict, err := entity.BuildFromCSVDir(cfg.Entity.AliasDir, cfg.Entity.MinLength, logger)
			if err != nil {
				return fmt.Errorf("failed to build alias dictionary: %w", err)
			}
			if err := dict.SaveCache(cfg.Entity.CachePath); err != nil {
				return fmt.Errorf("failed to write alias dictionary cache: %w", err)
			}

			fmt.Printf("Index build complete. Citation indexes in %s, alias cache at %s (%d aliases).\n",
				cfg.Citation.IndexDir, cfg.Entity.CachePath, dict.Size())
			return nil
		},
	}

	buildCmd.Flags().String("corpus", "citations.csv", "Citation CSV to index. (Overrides config/env)")
	buildCmd.Flags().String("maps-dir", "maps_dir", "Directory of ID_map_*.csv alias files. (Overrides config/env)")

	return buildCmd
}
