package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lokutor-ai/stream-orchestrator/pkg/clientpool"
	appConfig "github.com/lokutor-ai/stream-orchestrator/pkg/config"
	"github.com/lokutor-ai/stream-orchestrator/pkg/httpapi"
	"github.com/lokutor-ai/stream-orchestrator/pkg/logging"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
	"github.com/lokutor-ai/stream-orchestrator/pkg/processor"
	"github.com/lokutor-ai/stream-orchestrator/pkg/providers/llm"
	"github.com/lokutor-ai/stream-orchestrator/pkg/providers/stt"
	"github.com/lokutor-ai/stream-orchestrator/pkg/providers/tts"
	"github.com/lokutor-ai/stream-orchestrator/pkg/store"
)

// synthAdapter bridges processor.Synthesizer to the concrete tts.Generator,
// applying the generator's default sampling parameters plus the best-of-N
// settings fixed at boot.
type synthAdapter struct {
	gen           *tts.Generator
	n             int
	validSampling bool
}

func (a *synthAdapter) Generate(ctx context.Context, persona, text string, params processor.SynthesisParams) (string, error) {
	p := tts.DefaultParams()
	p.LineIndex = params.LineIndex
	p.N = a.n
	p.ValidSampling = a.validSampling
	return a.gen.Generate(ctx, persona, text, p)
}

func main() {
	cfg, err := appConfig.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logging.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()
	var logger orchestrator.Logger = zapLogger

	cat, err := cfg.LoadCatalog()
	if err != nil {
		logger.Error("failed to load persona catalog", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	audioQueue := store.NewAudioQueue(redisClient, logger)
	interruptStore := store.NewInterruptStore(redisClient, logger)
	scriptQueue := store.NewScriptQueue(redisClient, logger)
	historyLog := store.NewHistoryLog(redisClient, logger)

	keyPool := clientpool.New(cfg.BosonAPIKeys)
	bosonKey, _ := keyPool.GetClient()

	var scorer tts.ScoreProvider
	switch cfg.ScorerProvider {
	case "openai_stt":
		scorer = tts.NewSTTScorer(stt.NewOpenAISTT(cfg.OpenAIAPIKey, ""), orchestrator.LanguageEn)
	case "boson":
		fallthrough
	default:
		scorer = tts.NewScorer(bosonKey, cfg.BosonBaseURL, cfg.TTSModel)
	}

	generator := tts.NewGenerator(bosonKey, cfg.BosonBaseURL, cfg.TTSModel, cat, scorer, logger)
	generator.SetSaveWav(cfg.SaveTTSWav, cfg.OutputAudioDir)
	generator.SetBestsDir(cfg.BestsDir)
	synth := &synthAdapter{gen: generator, n: cfg.ValidSamplingN, validSampling: cfg.ValidSampling}

	scenePersona, err := cat.Resolve(cfg.Processor.DefaultPersona)
	if err != nil {
		logger.Error("failed to resolve default persona for script rewrites", "error", err)
		os.Exit(1)
	}

	var llmProvider orchestrator.LLMProvider
	switch cfg.LLMProvider {
	case "openai":
		llmProvider = llm.NewOpenAILLM(cfg.OpenAIAPIKey, "gpt-4o")
	case "anthropic":
		llmProvider = llm.NewAnthropicLLM(cfg.AnthropicAPIKey, "claude-3-5-sonnet-20241022")
	case "google":
		llmProvider = llm.NewGoogleLLM(cfg.GoogleAPIKey, "gemini-1.5-flash")
	case "boson":
		fallthrough
	default:
		llmProvider = llm.NewOpenAICompatibleLLM(bosonKey, cfg.BosonBaseURL, cfg.LLMModel)
	}
	rewriter := llm.NewRewriter(llmProvider, cfg.Processor.DefaultPersona, scenePersona.SceneDescription, logger)

	proc := processor.New(audioQueue, interruptStore, scriptQueue, historyLog, synth, rewriter, cfg.Processor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := proc.ResetState(ctx); err != nil {
		logger.Error("failed to reset initial stream state", "error", err)
		os.Exit(1)
	}

	go proc.Run(ctx)

	server := httpapi.NewServer(audioQueue, interruptStore, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Engine(),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
