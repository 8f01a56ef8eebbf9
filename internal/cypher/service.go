package cypher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/graph"
)

// Result bundles the executed query with its rows for the API layer and
// the answer pipeline.
type Result struct {
	Rows     []map[string]any
	Cypher   string
	Metadata Metadata
}

// Service generates a Cypher statement for a question and executes it
// against the graph under a deadline.
type Service struct {
	generator *Generator
	graph     graph.Querier
	timeout   time.Duration
	logger    *zap.Logger
}

func NewService(llm schemas.LLMClient, querier graph.Querier, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		generator: NewGenerator(llm, logger),
		graph:     querier,
		timeout:   timeout,
		logger:    logger.Named("cypher_service"),
	}
}

// WithExtractor attaches an entity extractor to the generation step.
func (s *Service) WithExtractor(e MentionExtractor) *Service {
	s.generator.WithExtractor(e)
	return s
}

// Query runs the full generate-then-execute pipeline on the fast model
// tier. The configured timeout bounds both steps together.
func (s *Service) Query(ctx context.Context, question string) (*Result, error) {
	return s.QueryWithTier(ctx, question, "")
}

// QueryWithTier is Query with an explicit model tier for the generation
// step.
func (s *Service) QueryWithTier(ctx context.Context, question string, tier schemas.ModelTier) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	query, meta, err := s.generator.Generate(ctx, question, tier)
	if err != nil {
		return nil, err
	}

	rows, err := s.graph.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cypher pipeline complete",
		zap.String("template_id", meta.TemplateID),
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{Rows: rows, Cypher: query, Metadata: meta}, nil
}
