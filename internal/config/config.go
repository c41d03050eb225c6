package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	LogLevel string
	LogFile  string
	// JWTSecret is only required by the HTTP server.
	JWTSecret string

	DatabaseURL      string
	RetrievalBackend string // sqlite or weaviate
	WeaviateURL      string
	WeaviateClass    string

	EmbeddingProvider string // openai or gemini
	EmbeddingBaseURL  string
	EmbeddingAPIKey   string
	EmbeddingModel    string // empty selects the provider default
	GeminiAPIKey      string
	EmbedCache        string // none, memory or redis
	RedisURL          string

	CompletionBaseURL string
	CompletionModel   string
	CompletionAPIKey  string
	PriceInPerM       float64
	PriceOutPerM      float64

	MaxQueryLength        int
	MaxWordRepetitions    int
	FollowUpWordThreshold int
	FollowUpMaxReuse      int
	DescriptionSnippet    int
	TopKDefault           int
	TopKMin               int
	TopKMax               int
	CreditsMin            float64
	CreditsMax            float64

	SafetyPatternsFile string
	FacetsFile         string
	CourseLinkBase     string

	SessionTTL       time.Duration
	IngestRatePerSec float64
}

var AppConfig Config

// LoadConfig reads .env (if present) and the environment into AppConfig.
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// FromEnv builds a Config from the current environment without touching AppConfig.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		LogFile:   getEnv("LOG_FILE", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),

		DatabaseURL:      getEnv("DATABASE_URL", "courses.db"),
		RetrievalBackend: strings.ToLower(getEnv("RETRIEVAL_BACKEND", "sqlite")),
		WeaviateURL:      getEnv("WEAVIATE_URL", "http://localhost:8081"),
		WeaviateClass:    getEnv("WEAVIATE_CLASS", "Course"),

		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "openai")),
		EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		EmbedCache:        strings.ToLower(getEnv("EMBED_CACHE", "memory")),
		RedisURL:          getEnv("REDIS_URL", ""),

		CompletionBaseURL: getEnv("COMPLETION_BASE_URL", "https://openrouter.ai/api/v1"),
		CompletionModel:   getEnv("COMPLETION_MODEL", "google/gemma-3-27b-it"),
		CompletionAPIKey:  getEnv("COMPLETION_API_KEY", ""),
		PriceInPerM:       p.asFloat("PRICE_IN_PER_M", 0.10),
		PriceOutPerM:      p.asFloat("PRICE_OUT_PER_M", 0.20),

		MaxQueryLength:        p.asInt("MAX_QUERY_LEN", 1000),
		MaxWordRepetitions:    p.asInt("MAX_WORD_REPS", 15),
		FollowUpWordThreshold: p.asInt("FOLLOWUP_WORD_THRESHOLD", 6),
		FollowUpMaxReuse:      p.asInt("FOLLOWUP_MAX_REUSE", 0),
		DescriptionSnippet:    p.asInt("DESC_SNIPPET", 450),
		TopKDefault:           p.asInt("TOP_K_DEFAULT", 5),
		TopKMin:               p.asInt("TOP_K_MIN", 3),
		TopKMax:               p.asInt("TOP_K_MAX", 10),
		CreditsMin:            p.asFloat("CREDITS_MIN", 1),
		CreditsMax:            p.asFloat("CREDITS_MAX", 36),

		SafetyPatternsFile: getEnv("SAFETY_PATTERNS_FILE", ""),
		FacetsFile:         getEnv("FACETS_FILE", ""),
		CourseLinkBase:     getEnv("COURSE_LINK_BASE", "https://ois2.ut.ee/ainekava/"),

		SessionTTL:       p.asDuration("SESSION_TTL", 2*time.Hour),
		IngestRatePerSec: p.asFloat("INGEST_RATE_PER_SEC", 5),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.RetrievalBackend {
	case "sqlite", "weaviate":
	default:
		errs = append(errs, fmt.Errorf("RETRIEVAL_BACKEND must be sqlite or weaviate, got %q", c.RetrievalBackend))
	}
	switch c.EmbeddingProvider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be openai or gemini, got %q", c.EmbeddingProvider))
	}
	switch c.EmbedCache {
	case "none", "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when EMBED_CACHE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMBED_CACHE must be none, memory or redis, got %q", c.EmbedCache))
	}
	if c.TopKMin <= 0 || c.TopKMin > c.TopKMax || c.TopKDefault < c.TopKMin || c.TopKDefault > c.TopKMax {
		errs = append(errs, fmt.Errorf("top-k bounds are inconsistent: default=%d min=%d max=%d", c.TopKDefault, c.TopKMin, c.TopKMax))
	}
	if c.CreditsMin >= c.CreditsMax {
		errs = append(errs, fmt.Errorf("CREDITS_MIN (%g) must be below CREDITS_MAX (%g)", c.CreditsMin, c.CreditsMax))
	}
	if c.MaxQueryLength <= 0 || c.MaxWordRepetitions <= 0 || c.FollowUpWordThreshold <= 0 {
		errs = append(errs, errors.New("MAX_QUERY_LEN, MAX_WORD_REPS and FOLLOWUP_WORD_THRESHOLD must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so every bad key is reported at once.
type parser struct {
	errs []error
}

func (p *parser) asInt(key string, defaultValue int) int {
	return getEnvAs(p, key, defaultValue, strconv.Atoi)
}

func (p *parser) asFloat(key string, defaultValue float64) float64 {
	return getEnvAs(p, key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (p *parser) asDuration(key string, defaultValue time.Duration) time.Duration {
	return getEnvAs(p, key, defaultValue, time.ParseDuration)
}

func getEnvAs[T any](p *parser, key string, defaultValue T, parse func(string) (T, error)) T {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	value, err := parse(valueStr)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid value %q: %w", key, valueStr, err))
		return defaultValue
	}
	return value
}
