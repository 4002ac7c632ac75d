package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PrismPipeline/internal/retry"
)

const (
	defaultTimezone   = "UTC"
	defaultDimensions = 1536

	configPathEnv        = "PRISM_CONFIG"
	databaseDSNEnv       = "DATABASE_DSN"
	openAIKeyEnv         = "OPENAI_API_KEY"
	geminiKeyEnv         = "GEMINI_API_KEY"
	mlKeyEnv             = "ML_API_KEY"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	transcriptTokenEnv   = "YOUTUBE_TRANSCRIPT_TOKEN"
	xBearerTokenEnv      = "X_BEARER_TOKEN"
	natsURLEnv           = "NATS_URL"
	logLevelEnv          = "LOG_LEVEL"
	smtpPasswordEnv      = "SMTP_PASSWORD"
	transcriptSourceKind = "transcripts"
	xPostsSourceKind     = "xposts"
)

// Provider names accepted by llm.provider and embedding.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Database drivers accepted by database.driver.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	LLM           LLMConfig          `yaml:"llm"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Embedding     EmbeddingConfig    `yaml:"embedding"`
	ML            MLConfig           `yaml:"ml"`
	Retry         RetryConfig        `yaml:"retry"`
	Notifications NotificationConfig `yaml:"notifications"`
	NATS          NATSConfig         `yaml:"nats"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig selects the signal/card store and its connection details.
type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MongoDatabase string `yaml:"mongoDatabase"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LLMConfig picks the language model backing card generation.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Temperature float64 `yaml:"temperature"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	Model         string  `yaml:"model"`
	APIKey        string  `yaml:"apiKey"`
	Temperature   float64 `yaml:"temperature"`
	RatePerSecond float64 `yaml:"ratePerSecond"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	APIKey        string  `yaml:"apiKey"`
	ChatModel     string  `yaml:"chatModel"`
	EmbedModel    string  `yaml:"embedModel"`
	RatePerSecond float64 `yaml:"ratePerSecond"`
}

// EmbeddingConfig describes the embedding provider and vector shape.
type EmbeddingConfig struct {
	Provider      string  `yaml:"provider"`
	Endpoint      string  `yaml:"endpoint"`
	Model         string  `yaml:"model"`
	APIKey        string  `yaml:"apiKey"`
	Dimensions    int     `yaml:"dimensions"`
	MaxChars      int     `yaml:"maxChars"`
	RatePerSecond float64 `yaml:"ratePerSecond"`
}

// MLConfig describes the entity-recognition service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// RetryConfig carries the retry policy. Attempts and backoff are fixed to
// retry.DefaultPolicy; only the per-call timeout is read from YAML.
type RetryConfig struct {
	Attempts    int           `yaml:"-"`
	BaseDelay   time.Duration `yaml:"-"`
	MaxDelay    time.Duration `yaml:"-"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// Policy converts the config into a retry policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		Attempts:    r.Attempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
		CallTimeout: r.CallTimeout,
	}
}

// NotificationConfig encapsulates outbound digest channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
	TopCards int            `yaml:"topCards"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EmailConfig holds SMTP settings for the digest email.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Enabled reports whether enough is set to send mail.
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.From != "" && len(e.To) > 0
}

// NATSConfig enables card publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig sets the listen address of the /metrics endpoint in serve mode.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// SourceConfig describes a single fetcher instance.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	URL     string            `yaml:"url"`
	Token   string            `yaml:"token"`
	IDs     []string          `yaml:"ids"`
	Country string            `yaml:"country"`
	Topic   string            `yaml:"topic"`
	Options map[string]string `yaml:"options"`
}

// Load reads .env, then the YAML file at path (PRISM_CONFIG when path is
// empty), and applies environment overrides.
func Load(path string) Config {
	_ = godotenv.Load()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit YAML path; an empty path uses defaults only.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports configuration errors that make a run impossible.
func (c Config) Validate() error {
	var errs []error

	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("no sources configured"))
	}
	for i, src := range c.Sources {
		if src.Name == "" || src.Kind == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name and kind are required", i))
		}
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding: OPENAI_API_KEY is required"))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("embedding: GEMINI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding: dimensions must be positive"))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm: unknown provider %q", c.LLM.Provider))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMongo:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database: dsn is required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q", c.Database.Driver))
	}

	if c.ML.InferenceURL == "" {
		errs = append(errs, errors.New("ml: inferenceUrl is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
		c.Embedding.APIKey = v
	}

	if v := os.Getenv(geminiKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(mlKeyEnv); v != "" {
		c.ML.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}

	if v := os.Getenv(natsURLEnv); v != "" {
		c.NATS.URL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	transcriptToken := os.Getenv(transcriptTokenEnv)
	xToken := os.Getenv(xBearerTokenEnv)
	for i := range c.Sources {
		switch {
		case c.Sources[i].Kind == transcriptSourceKind && transcriptToken != "":
			c.Sources[i].Token = transcriptToken
		case c.Sources[i].Kind == xPostsSourceKind && xToken != "":
			c.Sources[i].Token = xToken
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	setString(&base.Logging.Level, override.Logging.Level)

	setString(&base.Database.Driver, override.Database.Driver)
	setString(&base.Database.DSN, override.Database.DSN)
	setString(&base.Database.MongoDatabase, override.Database.MongoDatabase)

	setString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	setString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	setString(&base.LLM.Provider, override.LLM.Provider)
	setFloat(&base.LLM.Temperature, override.LLM.Temperature)

	setString(&base.ChatGPT.Endpoint, override.ChatGPT.Endpoint)
	setString(&base.ChatGPT.Model, override.ChatGPT.Model)
	setString(&base.ChatGPT.APIKey, override.ChatGPT.APIKey)
	setFloat(&base.ChatGPT.Temperature, override.ChatGPT.Temperature)
	setFloat(&base.ChatGPT.RatePerSecond, override.ChatGPT.RatePerSecond)

	setString(&base.Gemini.APIKey, override.Gemini.APIKey)
	setString(&base.Gemini.ChatModel, override.Gemini.ChatModel)
	setString(&base.Gemini.EmbedModel, override.Gemini.EmbedModel)
	setFloat(&base.Gemini.RatePerSecond, override.Gemini.RatePerSecond)

	setString(&base.Embedding.Provider, override.Embedding.Provider)
	setString(&base.Embedding.Endpoint, override.Embedding.Endpoint)
	setString(&base.Embedding.Model, override.Embedding.Model)
	setString(&base.Embedding.APIKey, override.Embedding.APIKey)
	setInt(&base.Embedding.Dimensions, override.Embedding.Dimensions)
	setInt(&base.Embedding.MaxChars, override.Embedding.MaxChars)
	setFloat(&base.Embedding.RatePerSecond, override.Embedding.RatePerSecond)

	setString(&base.ML.InferenceURL, override.ML.InferenceURL)
	setString(&base.ML.APIKey, override.ML.APIKey)

	setDuration(&base.Retry.CallTimeout, override.Retry.CallTimeout)

	setString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	setString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)
	setInt(&base.Notifications.TopCards, override.Notifications.TopCards)
	if override.Notifications.Email.Host != "" {
		base.Notifications.Email = override.Notifications.Email
	}

	setString(&base.NATS.URL, override.NATS.URL)
	setString(&base.NATS.Subject, override.NATS.Subject)

	setString(&base.Metrics.Addr, override.Metrics.Addr)

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	// llm.temperature applies to the chat client unless chatgpt sets its own.
	if override.LLM.Temperature != 0 && override.ChatGPT.Temperature == 0 {
		base.ChatGPT.Temperature = override.LLM.Temperature
	}

	return base
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	policy := retry.DefaultPolicy()
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Driver: DriverMemory, MongoDatabase: "prism"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		LLM:       LLMConfig{Provider: ProviderOpenAI, Temperature: 0.2},
		ChatGPT: ChatGPTConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			ChatModel:  "gemini-2.0-flash",
			EmbedModel: "text-embedding-004",
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Endpoint:   "https://api.openai.com/v1/embeddings",
			Model:      "text-embedding-3-small",
			Dimensions: defaultDimensions,
			MaxChars:   2000,
		},
		ML: MLConfig{InferenceURL: "http://localhost:8000"},
		Retry: RetryConfig{
			Attempts:    policy.Attempts,
			BaseDelay:   policy.BaseDelay,
			MaxDelay:    policy.MaxDelay,
			CallTimeout: policy.CallTimeout,
		},
		Notifications: NotificationConfig{TopCards: 3},
		NATS:          NATSConfig{Subject: "prism.cards"},
		Metrics:       MetricsConfig{Addr: ":9090"},
	}
}
