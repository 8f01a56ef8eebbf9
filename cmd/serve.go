package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/internal/bot"
	"github.com/yqzn9/lipidbot/internal/citation"
	"github.com/yqzn9/lipidbot/internal/config"
	"github.com/yqzn9/lipidbot/internal/cypher"
	"github.com/yqzn9/lipidbot/internal/entity"
	"github.com/yqzn9/lipidbot/internal/graph"
	"github.com/yqzn9/lipidbot/internal/llmclient"
	"github.com/yqzn9/lipidbot/internal/observability"
	"github.com/yqzn9/lipidbot/internal/server"
)

// cypherQueryTimeout bounds the standalone /api/v1/cypher/query operation.
// The ask pipeline applies its own tighter per-stage deadlines on top.
const cypherQueryTimeout = 60 * time.Second

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the lipidbot HTTP API server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line overrides win over config/env.
			if err := viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			components, err := initializeServerComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown(logger)
				}
				return fmt.Errorf("failed to initialize server components: %w", err)
			}
			defer components.Shutdown(logger)

			srv := server.New(cfg.Server, components.Handlers, logger)
			return srv.Start(ctx)
		},
	}

	serveCmd.Flags().StringP("listen", "l", ":7120", "Listen address for the HTTP server. (Overrides config/env)")

	return serveCmd
}

// serverComponents holds initialized services.
type serverComponents struct {
	Graph     *graph.Client
	Citations *citation.Service
	Handlers  *server.Handlers
}

// Shutdown gracefully closes all components.
func (sc *serverComponents) Shutdown(logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if sc.Citations != nil {
		if err := sc.Citations.Close(); err != nil {
			logger.Warn("Error closing citation retrievers", zap.Error(err))
		}
	}
	if sc.Graph != nil {
		if err := sc.Graph.Close(shutdownCtx); err != nil {
			logger.Warn("Error closing Neo4j driver", zap.Error(err))
		}
	}
}

// initializeServerComponents handles dependency injection.
func initializeServerComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*serverComponents, error) {
	components := &serverComponents{}

	// 1. LLM tier router
	llmRouter, err := llmclient.NewRouterFromConfig(cfg.LLM, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize LLM router: %w", err)
	}

	// 2. Knowledge graph
	graphClient, err := graph.NewClient(ctx, cfg.Neo4j, logger)
	if err != nil {
		return components, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	components.Graph = graphClient

	// 3. Citation retrieval. The server still comes up without the indexes
	// so that graph-only questions keep working.
	var retrievers []citation.Retriever
	embedder, err := newEmbeddingClient(cfg.Citation, logger)
	if err != nil {
		return components, err
	}
	retrievers, err = citation.OpenRetrievers(cfg.Citation, embedder, logger)
	if err != nil {
		logger.Warn("Citation indexes unavailable, continuing without citation search. Run `lipidbot index build`.",
			zap.Error(err))
		retrievers = nil
	}
	citSvc := citation.NewService(retrievers, cfg.Citation, logger)
	components.Citations = citSvc

	// 4. Cypher generation, with entity grounding when the alias
	// dictionary is available.
	cypherSvc := cypher.NewService(llmRouter, graphClient, cypherQueryTimeout, logger)
	if dict, err := entity.LoadDictionary(cfg.Entity, logger); err != nil {
		logger.Warn("Alias dictionary unavailable, generating Cypher without entity hints", zap.Error(err))
	} else {
		cypherSvc.WithExtractor(entity.NewExtractor(dict, llmRouter, logger))
	}

	// 5. Answer pipeline
	botSvc := bot.NewService(llmRouter, cypherSvc, citSvc, cfg.Bot, logger)

	components.Handlers = server.NewHandlers(logger, botSvc, cypherSvc, citSvc, graphClient)
	return components, nil
}

// newEmbeddingClient builds the Ollama client used for citation embeddings.
func newEmbeddingClient(cfg config.CitationConfig, logger *zap.Logger) (*llmclient.OllamaClient, error) {
	if len(cfg.EmbeddingModels) == 0 {
		return nil, fmt.Errorf("citation.embedding_models must name at least one model")
	}
	return llmclient.NewOllamaClient(config.LLMModelConfig{
		Provider:   config.ProviderOllama,
		Endpoint:   cfg.OllamaEndpoint,
		Model:      cfg.EmbeddingModels[0],
		APITimeout: 2 * time.Minute,
	}, logger)
}
