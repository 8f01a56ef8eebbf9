package citation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/config"
)

// Retriever is one independent ranking source (vector store, keyword
// index). Each returns at most topK hits ordered best-first.
type Retriever interface {
	Name() string
	Search(ctx context.Context, query string, topK int) ([]schemas.Hit, error)
}

// SearchOptions overrides the service defaults for one query. Zero fields
// fall back to the configured defaults.
type SearchOptions struct {
	TopK   int
	Method FuseMethod
	Per    FuseKey
	RRFK   int
}

// Service fans a query out to every retriever in parallel and fuses the
// rankings into one hit list.
type Service struct {
	retrievers []Retriever
	defaults   SearchOptions
	logger     *zap.Logger
}

func NewService(retrievers []Retriever, cfg config.CitationConfig, logger *zap.Logger) *Service {
	return &Service{
		retrievers: retrievers,
		defaults: SearchOptions{
			TopK:   cfg.TopK,
			Method: FuseRRF,
			Per:    KeyChunk,
			RRFK:   cfg.RRFK,
		},
		logger: logger.Named("citation"),
	}
}

func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]schemas.Hit, error) {
	if len(s.retrievers) == 0 {
		return nil, errors.New("no citation retrievers configured")
	}
	if opts.TopK <= 0 {
		opts.TopK = s.defaults.TopK
	}
	if opts.Method == "" {
		opts.Method = s.defaults.Method
	}
	if opts.Per == "" {
		opts.Per = s.defaults.Per
	}
	if opts.RRFK <= 0 {
		opts.RRFK = s.defaults.RRFK
	}

	results := make([][]schemas.Hit, len(s.retrievers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range s.retrievers {
		g.Go(func() error {
			hits, err := r.Search(gctx, query, opts.TopK)
			if err != nil {
				return fmt.Errorf("retriever %s: %w", r.Name(), err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused, err := Fuse(results, FuseOptions{
		Method: opts.Method,
		Per:    opts.Per,
		RRFK:   opts.RRFK,
		TopK:   opts.TopK,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Citation search complete",
		zap.String("query", query),
		zap.Int("retrievers", len(s.retrievers)),
		zap.Int("hits", len(fused)),
	)
	return fused, nil
}

// Close releases retriever resources (the keyword index holds file locks).
func (s *Service) Close() error {
	var errs []error
	for _, r := range s.retrievers {
		if c, ok := r.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing retriever %s: %w", r.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
