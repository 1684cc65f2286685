// Package config loads the orchestrator's environment-driven configuration:
// API keys, endpoint URLs, model ids, and the tunables in
// orchestrator.Config. The HTTP framework, CORS, and persisted-state layout
// stay out of scope here, per the core spec's own boundary.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lokutor-ai/stream-orchestrator/pkg/catalog"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// Config is every environment-driven setting the server needs at boot.
type Config struct {
	BosonAPIKeys []string // TTS/LLM endpoint API keys; the server draws one at random at startup and uses it for every call
	BosonBaseURL string
	TTSModel     string
	LLMModel     string

	OpenAIAPIKey    string // alternate LLM backend
	AnthropicAPIKey string
	GoogleAPIKey    string
	LLMProvider     string // "boson" (default), "openai", "anthropic", "google"

	RedisURL string

	CatalogManifestPath string

	SaveTTSWav     bool
	OutputAudioDir string
	BestsDir       string

	ScorerProvider string // "boson" (default, re-transcribes via the chat-completions endpoint) or "openai_stt"
	ValidSamplingN int    // best-of-N candidates synthesized per call; without ValidSampling the first successful candidate is used
	ValidSampling  bool

	HTTPAddr string

	Processor orchestrator.Config
}

// Load reads a .env file if present (missing is not an error — the same
// fallback-to-system-env behavior the agent CLI used) and populates Config
// from the environment, defaulting anything unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	procCfg := orchestrator.DefaultConfig()

	cfg := Config{
		BosonAPIKeys:         splitCommaList(os.Getenv("BOSON_API_KEYS")),
		BosonBaseURL:         getEnvDefault("BOSON_BASE_URL", "https://api.boson.ai/v1/chat/completions"),
		TTSModel:             getEnvDefault("TTS_MODEL", "higgs-audio-v2"),
		LLMModel:             getEnvDefault("LLM_MODEL", "higgs-text-v1"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		LLMProvider:          getEnvDefault("LLM_PROVIDER", "boson"),
		RedisURL:             getEnvDefault("REDIS_URL", "redis://127.0.0.1:6379/0"),
		CatalogManifestPath:  os.Getenv("CATALOG_MANIFEST_PATH"),
		SaveTTSWav:           getEnvBool("SAVE_TTS_WAV", false),
		OutputAudioDir:       getEnvDefault("OUTPUT_AUDIO_DIR", "output_audio"),
		BestsDir:             getEnvDefault("BESTS_DIR", "assets/bests"),
		ScorerProvider:       getEnvDefault("SCORER_PROVIDER", "boson"),
		ValidSamplingN:       getEnvInt("VALID_SAMPLING_N", 1),
		ValidSampling:        getEnvBool("VALID_SAMPLING", false),
		HTTPAddr:             getEnvDefault("HTTP_ADDR", ":8080"),
		Processor:            procCfg,
	}

	if v := os.Getenv("PROCESSOR_LOOP_INTERVAL"); v != "" {
		// Given in seconds (fractions allowed); stored as milliseconds.
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse PROCESSOR_LOOP_INTERVAL: %w", err)
		}
		if secs < 0 {
			return Config{}, fmt.Errorf("parse PROCESSOR_LOOP_INTERVAL: negative interval %q", v)
		}
		cfg.Processor.LoopInterval = uint(secs * 1000)
	}
	if v := os.Getenv("PROCESSOR_ERROR_BACKOFF"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse PROCESSOR_ERROR_BACKOFF: %w", err)
		}
		cfg.Processor.ErrorBackoff = uint(n)
	}
	if v := os.Getenv("DEFAULT_PERSONA"); v != "" {
		cfg.Processor.DefaultPersona = v
	}
	if v := os.Getenv("DEFAULT_SCRIPT"); v != "" {
		cfg.Processor.DefaultScript = v
	}
	if v := os.Getenv("GIFT_PROMPT"); v != "" {
		cfg.Processor.GiftPrompt = v
	}

	return cfg, nil
}

// LoadCatalog reads the persona reference manifest (a JSON array of
// catalog.Entry) from CatalogManifestPath and loads it.
func (c Config) LoadCatalog() (*catalog.Catalog, error) {
	if c.CatalogManifestPath == "" {
		return nil, fmt.Errorf("CATALOG_MANIFEST_PATH is not set")
	}
	raw, err := os.ReadFile(c.CatalogManifestPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog manifest: %w", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog manifest: %w", err)
	}
	return catalog.Load(entries, c.Processor.DefaultPersona)
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCommaList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
