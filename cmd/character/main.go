// Command character starts one WhisperEngine character process: it loads
// configuration and the character's CDL, wires L1-L11, and serves the
// health/metrics endpoints from spec.md §6. No concrete chat-platform
// adapter ships here (spec.md §1 Non-goals); this binary demonstrates the
// wiring against the in-memory TestAdapter and the optional Kafka inbound
// consumer so a real adapter can be dropped in without touching internal/.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"whisperengine/internal/boundary"
	"whisperengine/internal/character"
	"whisperengine/internal/config"
	"whisperengine/internal/contextswitch"
	"whisperengine/internal/embedclient"
	"whisperengine/internal/emotionclient"
	"whisperengine/internal/empathy"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/llmclient"
	"whisperengine/internal/logging"
	"whisperengine/internal/memory"
	"whisperengine/internal/objectstore"
	"whisperengine/internal/observability"
	"whisperengine/internal/pipeline"
	"whisperengine/internal/platform"
	"whisperengine/internal/prompt"
	"whisperengine/internal/selfknowledge"
	"whisperengine/internal/transcribe"
)

func main() {
	if err := run(); err != nil {
		logging.Log.WithError(err).Fatal("character process exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger("", cfg.LogLevel)
	logging.Log.WithField("bot_name", cfg.BotName).Info("starting character process")

	baseCtx := context.Background()

	if cfg.OTel.Enabled {
		shutdown, err := observability.InitOTel(baseCtx, cfg.OTel)
		if err != nil {
			logging.Log.WithError(err).Warn("otel init failed, continuing without tracing/metrics")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	persona, err := character.Load(cfg.BotName, cfg.SystemPromptFile)
	if err != nil {
		return fmt.Errorf("load character: %w", err)
	}

	chatProvider, chatModel, err := llmclient.New(cfg.Chat)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	if err := chatProvider.ValidateModel(baseCtx, chatModel); err != nil {
		logging.Log.WithError(err).Warn("chat model validation failed, continuing anyway")
	}

	embedder := embedclient.New(cfg.Embedding)

	memQdrantDSN := ""
	if cfg.Qdrant.Host != "" {
		memQdrantDSN = fmt.Sprintf("http://%s:%d", cfg.Qdrant.Host, cfg.Qdrant.Port)
	}
	memoryStore, err := memory.New(memQdrantDSN, persona.Normalized, embedder)
	if err != nil {
		return fmt.Errorf("init memory store: %w", err)
	}

	knowledgeStore, err := knowledge.New(baseCtx, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("init knowledge store: %w", err)
	}
	defer knowledgeStore.Close()

	var selfCache selfknowledge.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		selfCache = selfknowledge.NewRedisCache(rdb)
	} else {
		selfCache = selfknowledge.NewInMemoryCache()
	}

	var emotionClient pipeline.EmotionAnalyzer
	if cfg.Emotion.BaseURL != "" {
		emotionClient = emotionclient.New(cfg.Emotion.BaseURL, cfg.Emotion.APIKey)
	}

	var transcriber *transcribe.Transcriber
	if modelPath := os.Getenv("WHISPER_MODEL_PATH"); modelPath != "" {
		t, err := transcribe.New(modelPath)
		if err != nil {
			logging.Log.WithError(err).Warn("voice transcription unavailable")
		} else {
			transcriber = t
			defer transcriber.Close()
		}
	}

	var attachmentStore objectstore.ObjectStore
	if cfg.S3.Bucket != "" {
		s3Store, err := objectstore.NewS3Store(baseCtx, cfg.S3)
		if err != nil {
			logging.Log.WithError(err).Warn("attachment object store unavailable, attachments will not be persisted")
		} else {
			attachmentStore = s3Store
		}
	}

	boundaryMgr := boundary.NewManager(nil)
	contextSwitchDetector := contextswitch.NewDetector(pipeline.NewMemoryLookup(memoryStore))
	empathyCalibrator := empathy.NewCalibrator(empathy.NewInMemoryPreferenceStore())
	selfExtractor := selfknowledge.NewExtractor(knowledgeStore)
	selfDiscovery := selfknowledge.NewTraitDiscovery(knowledgeStore, selfCache)

	if profile, err := selfExtractor.Extract(baseCtx, persona.Normalized); err != nil {
		logging.Log.WithError(err).Warn("self-knowledge extraction skipped at startup")
	} else if traits, err := knowledgeStore.Traits(baseCtx, persona.Normalized); err != nil {
		logging.Log.WithError(err).Warn("load traits for character graph skipped")
	} else if err := selfknowledge.NewGraphBuilder(knowledgeStore).Build(baseCtx, profile, traits); err != nil {
		logging.Log.WithError(err).Warn("character graph build failed")
	}

	adapter := platform.NewTestAdapter()

	controller := pipeline.New(pipeline.Options{
		Character:     persona,
		Boundary:      boundaryMgr,
		Memory:        memoryStore,
		Knowledge:     knowledgeStore,
		SelfExtractor: selfExtractor,
		SelfDiscovery: selfDiscovery,
		ContextSwitch: contextSwitchDetector,
		Empathy:       empathyCalibrator,
		Orchestrator:  intelligence.NewOrchestrator(),
		Assembler:     prompt.NewAssembler(),
		LLM:           chatProvider,
		Model:         chatModel,
		EmotionClient: emotionClient,
		Transcriber:   transcriber,
		Attachments:   attachmentStore,
		Adapter:       adapter,
	})

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		go func() {
			err := controller.RunKafkaConsumer(ctx, pipeline.KafkaConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: cfg.Kafka.GroupID,
				Topic:   cfg.Kafka.Topic,
			})
			if err != nil && ctx.Err() == nil {
				logging.Log.WithError(err).Error("kafka consumer terminated")
			}
		}()
	}

	srv := newHealthServer(cfg, persona)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.WithError(err).Error("health server terminated")
		}
	}()

	logging.Log.WithField("character", persona.Normalized).Info("character process ready")
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	logging.Log.Info("character process stopped")
	return nil
}

func newHealthServer(cfg config.Config, persona character.Character) *http.Server {
	mux := http.NewServeMux()
	startedAt := time.Now()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableMetricsLogging {
			http.Error(w, "metrics logging disabled", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"character":      persona.Normalized,
			"uptime_seconds": time.Since(startedAt).Seconds(),
			"otel_enabled":   cfg.OTel.Enabled,
		})
	})

	return &http.Server{
		Addr:              firstNonEmpty(os.Getenv("HEALTH_ADDR"), ":8081"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
