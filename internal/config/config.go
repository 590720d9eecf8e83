// Package config loads the runtime configuration for one character service
// from the environment, following spec.md §6.
package config

// LLMEndpoint describes one HTTP chat-completions endpoint.
type LLMEndpoint struct {
	BaseURL string
	Model   string
	APIKey  string
}

// EmbeddingConfig controls how turn content is embedded for the vector store.
type EmbeddingConfig struct {
	UseExternal bool
	BaseURL     string
	Model       string
	APIKey      string
	Dimensions  int
	Timeout     int // seconds
}

// QdrantConfig points at the vector store backend.
type QdrantConfig struct {
	Host string
	Port int
}

// PostgresConfig points at the relational knowledge store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders a libpq-style connection string. Empty Host means "use the
// in-memory knowledge store backend".
func (p PostgresConfig) DSN() string {
	if p.Host == "" {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	return "postgres://" + p.User + ":" + p.Password + "@" + p.Host + ":" + itoa(port) + "/" + p.Database
}

// RedisConfig points at the optional self-knowledge discovery cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig enables the optional Kafka-backed inbound queue (§5 backpressure).
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// S3Config configures the optional attachment object store.
type S3Config struct {
	Bucket                string
	Region                string
	Endpoint              string
	AccessKey             string
	SecretKey             string
	Prefix                string
	UsePathStyle          bool
	TLSInsecureSkipVerify bool
	SSE                   S3SSEConfig
}

// S3SSEConfig configures server-side encryption for S3-compatible stores.
type S3SSEConfig struct {
	Mode     string // "", "sse-s3", "sse-kms"
	KMSKeyID string
}

// ObsConfig controls OpenTelemetry tracing/metrics export.
type ObsConfig struct {
	Enabled        bool
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// ContextSwitchThresholds holds the PHASE3_* tunables from spec.md §6/§4.6.
type ContextSwitchThresholds struct {
	TopicShift      float64
	EmotionalShift  float64
	ConversationMode float64
	UrgencyChange   float64
}

// EmpathyThresholds holds the PHASE3_EMPATHY_* tunables from spec.md §6/§4.7.
type EmpathyThresholds struct {
	MinInteractionsForConfidence int
	EffectivenessThreshold       float64
	LearningRate                 float64
	ConfidenceThreshold          float64
}

// Config is the fully resolved runtime configuration for one character
// process.
type Config struct {
	BotName string

	Chat    LLMEndpoint
	Emotion LLMEndpoint // optional; BaseURL == "" disables the external emotion API
	Facts   LLMEndpoint // loaded but read by no component; fact extraction is the deterministic extractor in internal/pipeline

	Embedding EmbeddingConfig

	Qdrant   QdrantConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	S3       S3Config

	SystemPromptFile string

	ContextSwitch ContextSwitchThresholds
	Empathy       EmpathyThresholds

	EnableMetricsLogging bool
	OTel                 ObsConfig

	LogLevel string
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
