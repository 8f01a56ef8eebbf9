package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yqzn9/lipidbot/api/schemas"
	"github.com/yqzn9/lipidbot/internal/citation"
	"github.com/yqzn9/lipidbot/internal/config"
	"github.com/yqzn9/lipidbot/internal/cypher"
)

// GraphQueryer runs the generate-and-execute Cypher pipeline for one
// question. Satisfied by *cypher.Service.
type GraphQueryer interface {
	Query(ctx context.Context, question string) (*cypher.Result, error)
}

// CitationSearcher is the literature retrieval entry point. Satisfied by
// *citation.Service.
type CitationSearcher interface {
	Search(ctx context.Context, query string, opts citation.SearchOptions) ([]schemas.Hit, error)
}

// Answer is the full pipeline result. Timings are stage durations in
// seconds, keyed init/classification/cypher_query/citation_search/
// synthesis/total; stages that did not run are absent.
type Answer struct {
	ID             string                 `json:"id"`
	Success        bool                   `json:"success"`
	Answer         string                 `json:"answer"`
	Classification schemas.Classification `json:"classification"`
	Timings        map[string]float64     `json:"timings"`
}

const outOfDomainAnswer = "I specialize in lipid biochemistry, metabolic pathways, genes, and enzymes. " +
	"Your question appears to be outside my domain. Reason: %s"

// Service orchestrates the answer pipeline: classify, retrieve from graph
// and literature in parallel, then synthesize.
type Service struct {
	classifier  *Classifier
	synthesizer *Synthesizer
	graph       GraphQueryer
	citations   CitationSearcher
	cfg         config.BotConfig
	logger      *zap.Logger
}

func NewService(llm schemas.LLMClient, graph GraphQueryer, citations CitationSearcher, cfg config.BotConfig, logger *zap.Logger) *Service {
	return &Service{
		classifier:  NewClassifier(llm, logger),
		synthesizer: NewSynthesizer(llm, logger),
		graph:       graph,
		citations:   citations,
		cfg:         cfg,
		logger:      logger.Named("bot"),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// Ask answers a question end to end. Out-of-domain questions exit early
// with Success=false and an explanation instead of an error; retrieval and
// model failures surface as errors for the transport layer to map.
func (s *Service) Ask(ctx context.Context, question string, searchOpts citation.SearchOptions) (*Answer, error) {
	askID := uuid.New().String()
	totalStart := time.Now()
	timings := map[string]float64{"init": 0}

	// ----- Classification -----
	classifyStart := time.Now()
	classifyCtx, cancel := withTimeout(ctx, s.cfg.ClassifyTimeout)
	classification, err := s.classifier.Classify(classifyCtx, question)
	cancel()
	timings["classification"] = time.Since(classifyStart).Seconds()
	if err != nil {
		return nil, err
	}

	if !classification.IsRelevant {
		timings["total"] = time.Since(totalStart).Seconds()
		return &Answer{
			ID:             askID,
			Success:        false,
			Answer:         fmt.Sprintf(outOfDomainAnswer, classification.Reasoning),
			Classification: classification,
			Timings:        timings,
		}, nil
	}

	s.logger.Info("Retrieval plan",
		zap.String("ask_id", askID),
		zap.Bool("graph", classification.NeedsGraph),
		zap.Bool("citations", true),
	)

	// ----- Parallel retrieval -----
	var (
		graphResult      *cypher.Result
		hits             []schemas.Hit
		cypherElapsed    time.Duration
		citationsElapsed time.Duration
	)

	// A failed retrieval branch degrades to empty context rather than
	// failing the whole request; synthesis acknowledges the gap.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !classification.NeedsGraph {
			return nil
		}
		start := time.Now()
		cctx, cancel := withTimeout(gctx, s.cfg.CypherTimeout)
		defer cancel()

		result, err := s.graph.Query(cctx, question)
		cypherElapsed = time.Since(start)
		if err != nil {
			s.logger.Warn("Graph retrieval failed, continuing without graph context",
				zap.Error(err), zap.String("question", question))
			return nil
		}
		graphResult = result
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		cctx, cancel := withTimeout(gctx, s.cfg.CitationTimeout)
		defer cancel()

		found, err := s.citations.Search(cctx, question, searchOpts)
		citationsElapsed = time.Since(start)
		if err != nil {
			s.logger.Warn("Citation retrieval failed, continuing without citations",
				zap.Error(err), zap.String("question", question))
			return nil
		}
		hits = found
		return nil
	})
	_ = g.Wait()


	if classification.NeedsGraph {
		timings["cypher_query"] = cypherElapsed.Seconds()
	}
	timings["citation_search"] = citationsElapsed.Seconds()

	// ----- Synthesis -----
	synthStart := time.Now()
	synthCtx, cancel := withTimeout(ctx, s.cfg.SynthesisTimeout)
	answer, err := s.synthesizer.Synthesize(synthCtx, question, graphResult, hits)
	cancel()
	timings["synthesis"] = time.Since(synthStart).Seconds()
	if err != nil {
		return nil, err
	}

	timings["total"] = time.Since(totalStart).Seconds()
	s.logger.Info("Question answered",
		zap.String("ask_id", askID),
		zap.Float64("classification_s", timings["classification"]),
		zap.Float64("synthesis_s", timings["synthesis"]),
		zap.Float64("total_s", timings["total"]),
	)

	return &Answer{
		ID:             askID,
		Success:        true,
		Answer:         answer,
		Classification: classification,
		Timings:        timings,
	}, nil
}
