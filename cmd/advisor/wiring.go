package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/config"
	"ut.ee/course-advisor/internal/core"
	"ut.ee/course-advisor/internal/cost"
	"ut.ee/course-advisor/internal/embedding"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/llm"
	"ut.ee/course-advisor/internal/metrics"
	"ut.ee/course-advisor/internal/retrieval"
	"ut.ee/course-advisor/internal/safety"
	"ut.ee/course-advisor/internal/store"
	"ut.ee/course-advisor/internal/weaviatestore"
)

const embedCacheTTL = 24 * time.Hour

// app holds the components shared by serve and chat.
type app struct {
	advisor  *core.Advisor
	compiler *filter.Compiler
	costs    *cost.Tracker
	topK     retrieval.TopKBounds
	registry *prometheus.Registry

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	patterns, err := safety.LoadPatterns(cfg.SafetyPatternsFile)
	if err != nil {
		return nil, err
	}
	guard, err := safety.NewGuard(cfg.MaxQueryLength, cfg.MaxWordRepetitions, patterns)
	if err != nil {
		return nil, err
	}
	log.Info("safety guard ready", zap.Int("patterns", guard.PatternCount()))

	enums, err := filter.LoadEnumerations(cfg.FacetsFile)
	if err != nil {
		return nil, err
	}
	a.compiler = filter.NewCompiler(enums, filter.Bounds{Min: cfg.CreditsMin, Max: cfg.CreditsMax})
	log.Info("facet enumerations loaded", zap.String("version", enums.Version))

	embedder, err := a.buildEmbedder(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	backend, err := a.buildBackend(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.topK = retrieval.TopKBounds{Min: cfg.TopKMin, Max: cfg.TopKMax, Default: cfg.TopKDefault}
	searcher := retrieval.NewClient(embedder, backend, a.topK, log.Named("retrieval"))
	a.topK = searcher.Bounds()

	a.costs = cost.NewTracker(buildTokenizer(), cost.Pricing{InPerMillion: cfg.PriceInPerM, OutPerMillion: cfg.PriceOutPerM})

	a.advisor = core.NewAdvisor(core.Deps{
		Guard:         guard,
		Compiler:      a.compiler,
		Decider:       retrieval.NewDecider(cfg.FollowUpWordThreshold, cfg.FollowUpMaxReuse),
		Searcher:      searcher,
		Completer:     llm.NewClient(cfg.CompletionBaseURL, cfg.CompletionModel, log.Named("llm")),
		Costs:         a.costs,
		Metrics:       metrics.New(a.registry),
		Logger:        log.Named("advisor"),
		SnippetLength: cfg.DescriptionSnippet,
		LinkBase:      cfg.CourseLinkBase,
	})
	return a, nil
}

func (a *app) buildEmbedder(ctx context.Context, cfg config.Config) (embedding.Embedder, error) {
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	switch cfg.EmbedCache {
	case "memory":
		return embedding.NewCachedEmbedder(embedder, embedding.NewMemoryCache(embedCacheTTL)), nil
	case "redis":
		rc, err := embedding.NewRedisCache(cfg.RedisURL, embedCacheTTL, log.Named("embed-cache"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		return embedding.NewCachedEmbedder(embedder, rc), nil
	default:
		return embedder, nil
	}
}

// newEmbedder returns the uncached provider client. Callers own Close when the
// result implements it.
func newEmbedder(ctx context.Context, cfg config.Config) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini embedding provider")
		}
		return embedding.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	default:
		return embedding.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel), nil
	}
}

func (a *app) buildBackend(ctx context.Context, cfg config.Config) (retrieval.Backend, error) {
	if cfg.RetrievalBackend == "weaviate" {
		log.Info("using weaviate backend", zap.String("url", cfg.WeaviateURL), zap.String("class", cfg.WeaviateClass))
		return weaviatestore.NewBackend(cfg.WeaviateURL, cfg.WeaviateClass)
	}

	db, err := store.NewSQLiteStore(cfg.DatabaseURL, log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return store.LoadCourseIndex(ctx, db, log.Named("store"))
}

// buildTokenizer prefers the cl100k vocabulary and falls back to a character
// estimate when it cannot be loaded (e.g. offline).
func buildTokenizer() cost.Tokenizer {
	tok, err := cost.NewTiktokenCounter(cost.DefaultEncoding)
	if err != nil {
		log.Warn("tiktoken unavailable, estimating tokens from length", zap.Error(err))
		return cost.ApproxCounter{}
	}
	return tok
}
