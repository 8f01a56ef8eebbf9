package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/internal/config"
)

// Querier is the read surface the rest of the service depends on. It exists
// so handlers and the bot pipeline can be tested without a live database.
type Querier interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Client wraps the Neo4j driver with connection verification and row
// flattening so callers deal in plain maps instead of driver types.
type Client struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewClient connects to Neo4j and verifies connectivity before returning.
func NewClient(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity at %s: %w", cfg.URI, err)
	}

	logger = logger.Named("graph")
	logger.Info("Connected to Neo4j", zap.String("uri", cfg.URI))

	return &Client{driver: driver, logger: logger}, nil
}

// Run executes a read query and collects every record into a flat
// map-per-row representation (nodes and relationships become their
// property maps).
func (c *Client) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	if params == nil {
		params = map[string]any{}
	}

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect cypher results: %w", err)
	}

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = flattenValue(record.Values[i])
		}
		rows = append(rows, row)
	}

	c.logger.Debug("Cypher query executed", zap.Int("rows", len(rows)))
	return rows, nil
}

// Close releases the underlying driver.
// Ping re-checks connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
