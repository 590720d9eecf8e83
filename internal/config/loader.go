package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables (optionally .env).
// Each setting's default is applied in the same step that reads it; there
// is no separate defaulting pass.
func Load() (Config, error) {
	// Overload so a local .env deterministically controls development
	// behavior: values from .env replace any the real environment already set.
	_ = godotenv.Overload()

	var cfg Config

	cfg.BotName = firstNonEmpty(os.Getenv("DISCORD_BOT_NAME"), os.Getenv("BOT_NAME"))

	cfg.Chat = LLMEndpoint{
		BaseURL: strings.TrimSpace(os.Getenv("LLM_CHAT_API_URL")),
		Model:   strings.TrimSpace(os.Getenv("CHAT_MODEL_NAME")),
		APIKey:  strings.TrimSpace(os.Getenv("LLM_API_KEY")),
	}
	cfg.Emotion = LLMEndpoint{
		BaseURL: strings.TrimSpace(os.Getenv("LLM_EMOTION_API_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("LLM_EMOTION_API_KEY")),
	}
	cfg.Facts = LLMEndpoint{
		BaseURL: strings.TrimSpace(os.Getenv("LLM_FACTS_API_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("LLM_FACTS_API_KEY")),
	}

	cfg.Embedding.UseExternal = boolEnv("USE_EXTERNAL_EMBEDDINGS", false)
	cfg.Embedding.BaseURL = strings.TrimSpace(os.Getenv("LLM_EMBEDDING_API_URL"))
	cfg.Embedding.Model = strings.TrimSpace(os.Getenv("LLM_EMBEDDING_MODEL_NAME"))
	cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	cfg.Embedding.Dimensions = intEnv("EMBEDDING_DIMENSIONS", 384)
	cfg.Embedding.Timeout = intEnv("LLM_EMBEDDING_TIMEOUT_SECONDS", 10)

	cfg.Qdrant.Host = strings.TrimSpace(os.Getenv("QDRANT_HOST"))
	cfg.Qdrant.Port = intEnv("QDRANT_PORT", 6334)

	cfg.Postgres.Host = strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	cfg.Postgres.Port = intEnv("POSTGRES_PORT", 5432)
	cfg.Postgres.User = strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	cfg.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	cfg.Postgres.Database = strings.TrimSpace(os.Getenv("POSTGRES_DB"))

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = intEnv("REDIS_DB", 0)

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Kafka.GroupID = firstNonEmpty(strings.TrimSpace(os.Getenv("KAFKA_GROUP_ID")), "whisperengine")
	cfg.Kafka.Topic = strings.TrimSpace(os.Getenv("KAFKA_INBOUND_TOPIC"))

	cfg.S3.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	cfg.S3.Region = firstNonEmpty(strings.TrimSpace(os.Getenv("S3_REGION")), "us-east-1")
	cfg.S3.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3.AccessKey = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
	cfg.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3.Prefix = strings.TrimSpace(os.Getenv("S3_PREFIX"))
	cfg.S3.UsePathStyle = boolEnv("S3_USE_PATH_STYLE", false)

	cfg.SystemPromptFile = strings.TrimSpace(os.Getenv("BOT_SYSTEM_PROMPT_FILE"))

	cfg.ContextSwitch = ContextSwitchThresholds{
		TopicShift:       floatEnv("PHASE3_TOPIC_SHIFT_THRESHOLD", 0.3),
		EmotionalShift:   floatEnv("PHASE3_EMOTIONAL_SHIFT_THRESHOLD", 0.4),
		ConversationMode: floatEnv("PHASE3_CONVERSATION_MODE_THRESHOLD", 0.5),
		UrgencyChange:    floatEnv("PHASE3_URGENCY_CHANGE_THRESHOLD", 0.3),
	}
	cfg.Empathy = EmpathyThresholds{
		MinInteractionsForConfidence: intEnv("PHASE3_EMPATHY_MIN_INTERACTIONS", 3),
		EffectivenessThreshold:       floatEnv("PHASE3_EMPATHY_EFFECTIVENESS_THRESHOLD", 0.5),
		LearningRate:                 floatEnv("PHASE3_EMPATHY_LEARNING_RATE", 0.1),
		ConfidenceThreshold:          floatEnv("PHASE3_EMPATHY_CONFIDENCE_THRESHOLD", 0.5),
	}

	cfg.EnableMetricsLogging = boolEnv("ENABLE_METRICS_LOGGING", false)
	cfg.OTel.Enabled = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != ""
	cfg.OTel.OTLP = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.OTel.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), "whisperengine")
	cfg.OTel.ServiceVersion = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_VERSION")), "dev")
	cfg.OTel.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("DEPLOY_ENV")), "development")

	cfg.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info")

	if cfg.BotName == "" {
		return cfg, fmt.Errorf("config: DISCORD_BOT_NAME or BOT_NAME is required")
	}
	if cfg.Chat.BaseURL == "" {
		return cfg, fmt.Errorf("config: LLM_CHAT_API_URL is required")
	}
	if cfg.Chat.Model == "" {
		return cfg, fmt.Errorf("config: CHAT_MODEL_NAME is required")
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func intEnv(key string, def int) int {
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

func floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
