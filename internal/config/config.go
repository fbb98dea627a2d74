// Package config loads ingestiond's runtime configuration from the
// environment. There is no YAML/JSON overlay here: every setting the
// pipeline needs is a single environment variable with a sane default,
// read once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mongo holds storage gateway connection settings.
type Mongo struct {
	URI             string
	Database        string
	InsertBatchSize int
	PingTimeout     time.Duration
}

// Embedding holds embedding client connection settings.
type Embedding struct {
	BaseURL    string
	BatchSize  int
	Timeout    time.Duration
	APIHeader  string
	APIKey     string
	Dimensions int
}

// LLM holds chat-completion client connection settings.
type LLM struct {
	BaseURL      string
	SmallModel   string
	LargeModel   string
	Timeout      time.Duration
	PrimaryKey   string
	KeyPrefix    string // env var prefix for rotation candidates, e.g. "KEY_"
	MaxKeyTries  int
}

// Orchestrator holds ingestion worker-pool settings.
type Orchestrator struct {
	Workers       int
	QueueCapacity int
	ChunkFanout   int
}

// Obs holds observability settings.
type Obs struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogPath        string
	LogLevel       string
	OTLPEndpoint   string // empty disables tracing/metrics export
}

// HTTP holds the API server listen settings.
type HTTP struct {
	Addr string
}

// Parser holds document-parsing settings.
type Parser struct {
	UseRichPDF bool
}

// Upload holds batch-submission limits enforced on POST /upload.
type Upload struct {
	MaxFilesPerUpload int
	MaxFileMB         int
}

// Config aggregates every component's settings.
type Config struct {
	Mongo        Mongo
	Embedding    Embedding
	LLM          LLM
	Orchestrator Orchestrator
	Obs          Obs
	HTTP         HTTP
	Parser       Parser
	Upload       Upload
}

// Load reads Config from the process environment, applying defaults for
// anything unset. It returns an error only when a required value is
// missing with no usable default (currently: none — every field has a
// default so a bare environment still boots the service against
// localhost endpoints).
func Load() (Config, error) {
	cfg := Config{
		Mongo: Mongo{
			URI:             envOr("MONGO_URI", "mongodb://localhost:27017"),
			Database:        envOr("MONGO_DB", "studybuddy"),
			InsertBatchSize: envInt("MONGO_INSERT_BATCH_SIZE", 200),
			PingTimeout:     envSeconds("MONGO_PING_TIMEOUT_SECONDS", 15),
		},
		Embedding: Embedding{
			BaseURL:    envOr("EMBED_BASE_URL", "http://localhost:8081"),
			BatchSize:  envInt("EMBED_BATCH_SIZE", 16),
			Timeout:    envSeconds("EMBED_TIMEOUT_SECONDS", 60),
			APIHeader:  envOr("EMBED_API_HEADER", ""),
			APIKey:     strings.TrimSpace(os.Getenv("EMBED_API_KEY")),
			Dimensions: envInt("EMBED_DIMENSIONS", 384),
		},
		LLM: LLM{
			BaseURL:     envOr("LLM_BASE_URL", "https://api.openai.com/v1"),
			SmallModel:  envOr("LLM_SMALL_MODEL", "gpt-4o-mini"),
			LargeModel:  envOr("LLM_LARGE_MODEL", "gpt-4o"),
			Timeout:     envSeconds("LLM_TIMEOUT_SECONDS", 30),
			PrimaryKey:  strings.TrimSpace(os.Getenv("PRIMARY_KEY")),
			KeyPrefix:   envOr("LLM_KEY_PREFIX", "KEY_"),
			MaxKeyTries: envInt("LLM_MAX_KEY_TRIES", 5),
		},
		Orchestrator: Orchestrator{
			Workers:       envInt("ORCHESTRATOR_WORKERS", 4),
			QueueCapacity: envInt("ORCHESTRATOR_QUEUE_CAPACITY", 64),
			ChunkFanout:   envInt("CHUNK_ENRICH_CONCURRENCY", 4),
		},
		Obs: Obs{
			ServiceName:    envOr("SERVICE_NAME", "ingestiond"),
			ServiceVersion: envOr("SERVICE_VERSION", "dev"),
			Environment:    envOr("ENVIRONMENT", "development"),
			LogPath:        strings.TrimSpace(os.Getenv("LOG_PATH")),
			LogLevel:       envOr("LOG_LEVEL", "info"),
			OTLPEndpoint:   strings.TrimSpace(os.Getenv("OTLP_ENDPOINT")),
		},
		HTTP: HTTP{
			Addr: envOr("HTTP_ADDR", ":8080"),
		},
		Parser: Parser{
			UseRichPDF: envBool("PARSER_USE_RICH_PDF", true),
		},
		Upload: Upload{
			MaxFilesPerUpload: envInt("MAX_FILES_PER_UPLOAD", 15),
			MaxFileMB:         envInt("MAX_FILE_MB", 50),
		},
	}
	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envSeconds(key string, defSeconds int) time.Duration {
	return time.Duration(envInt(key, defSeconds)) * time.Second
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ResolveKey returns the LLM API key to use for the nth attempt (0-based),
// trying PrimaryKey first and then KeyPrefix+"1", KeyPrefix+"2", ... up to
// MaxKeyTries. It is a pure function: no global rotation counter, callers
// pass the attempt index explicitly.
func (l LLM) ResolveKey(attempt int) (string, error) {
	if attempt == 0 && l.PrimaryKey != "" {
		return l.PrimaryKey, nil
	}
	idx := attempt
	if l.PrimaryKey == "" {
		idx = attempt + 1
	}
	if idx < 1 {
		idx = 1
	}
	key := strings.TrimSpace(os.Getenv(l.KeyPrefix + strconv.Itoa(idx)))
	if key == "" {
		return "", fmt.Errorf("no api key available for attempt %d (tried %s%d)", attempt, l.KeyPrefix, idx)
	}
	return key, nil
}
