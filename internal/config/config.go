package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	LLM      LLMConfig      `yaml:"llm"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	Import   ImportConfig   `yaml:"import"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Mailing  MailingConfig  `yaml:"mailing"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
	Planning PlanningConfig `yaml:"planning"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// AuthConfig holds session and identity-token configuration
type AuthConfig struct {
	CookieName     string `yaml:"cookie_name"`
	CookieMaxAge   int    `yaml:"cookie_max_age"`
	CookieSecure   bool   `yaml:"cookie_secure"`
	TokenSecret    string `yaml:"token_secret"`     // HS256 shared secret for identity tokens
	TokenPublicKey string `yaml:"token_public_key"` // PEM RSA key for RS256 identity tokens
	TokenIssuer    string `yaml:"token_issuer"`
	TokenAudience  string `yaml:"token_audience"`
	GoogleClientID string `yaml:"google_client_id"`
	GoogleSecret   string `yaml:"google_client_secret"`
	BaseURL        string `yaml:"base_url"`
}

// SessionTTL returns the cookie lifetime as a duration
func (c AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.CookieMaxAge) * time.Second
}

// StorageConfig selects the document store backend
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory, dynamodb, postgres
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain
	DatabaseURL   string `yaml:"database_url"`
}

// RedisConfig holds the Redis connection used for sessions, the outbox and locks
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis URL was configured
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// LLMConfig holds the language-model provider configuration
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // bedrock, anthropic, openai
	Model          string  `yaml:"model"`
	AnthropicKey   string  `yaml:"anthropic_api_key"`
	OpenAIKey      string  `yaml:"openai_api_key"`
	BaseURL        string  `yaml:"base_url"`
	Region         string  `yaml:"region"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PromptsConfig points at an optional external prompt pack
type PromptsConfig struct {
	Path string `yaml:"path"`
}

// ImportConfig holds CSV import limits
type ImportConfig struct {
	BatchSize    int   `yaml:"batch_size"`
	PreviewRows  int   `yaml:"preview_rows"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// OutboxConfig holds reconciler settings for LaunchContent writes
type OutboxConfig struct {
	RemoteTimeoutSeconds int  `yaml:"remote_timeout_seconds"`
	PollIntervalSeconds  int  `yaml:"poll_interval_seconds"`
	MaxAttempts          int  `yaml:"max_attempts"`
	RunInServer          bool `yaml:"run_in_server"`
}

// RemoteTimeout returns the per-write timeout as a duration
func (c OutboxConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

// PollInterval returns the reconciler polling interval
func (c OutboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MailingConfig holds SES delivery and scheduler configuration
type MailingConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Region              string `yaml:"region"`
	AccessKey           string `yaml:"access_key"`
	SecretKey           string `yaml:"secret_key"`
	FromEmail           string `yaml:"from_email"`
	FromName            string `yaml:"from_name"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// PollInterval returns the scheduler polling interval
func (c MailingConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ArchiveConfig selects where raw CSV uploads are kept between preview and commit
type ArchiveConfig struct {
	Type      string `yaml:"type"` // local, s3
	LocalPath string `yaml:"local_path"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
	AWSRegion string `yaml:"aws_region"`
}

// LoggingConfig holds structured logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// PlanningConfig holds the planning-chat limits
type PlanningConfig struct {
	MaxTurns       int `yaml:"max_turns"`
	MaxNewsletters int `yaml:"max_newsletters"`
	FallbackCount  int `yaml:"fallback_count"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied and no file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 5 * 24 * 60 * 60
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.DynamoDBTable == "" {
		cfg.Storage.DynamoDBTable = "letteros"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o"
		case "bedrock":
			cfg.LLM.Model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
		default:
			cfg.LLM.Model = "claude-sonnet-4-20250514"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4000
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.Region == "" {
		cfg.LLM.Region = cfg.Storage.AWSRegion
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 500
	}
	if cfg.Import.PreviewRows == 0 {
		cfg.Import.PreviewRows = 10
	}
	if cfg.Import.MaxFileBytes == 0 {
		cfg.Import.MaxFileBytes = 32 << 20
	}
	if cfg.Outbox.RemoteTimeoutSeconds == 0 {
		cfg.Outbox.RemoteTimeoutSeconds = 3
	}
	if cfg.Outbox.PollIntervalSeconds == 0 {
		cfg.Outbox.PollIntervalSeconds = 5
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 10
	}
	if cfg.Mailing.Region == "" {
		cfg.Mailing.Region = cfg.Storage.AWSRegion
	}
	if cfg.Mailing.PollIntervalSeconds == 0 {
		cfg.Mailing.PollIntervalSeconds = 30
	}
	if cfg.Mailing.FromName == "" {
		cfg.Mailing.FromName = "LetterOS"
	}
	if cfg.Archive.Type == "" {
		cfg.Archive.Type = "local"
	}
	if cfg.Archive.LocalPath == "" {
		cfg.Archive.LocalPath = "./data/imports"
	}
	if cfg.Archive.S3Prefix == "" {
		cfg.Archive.S3Prefix = "imports/"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = cfg.Storage.AWSRegion
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.RedactPII == nil {
		redact := true
		cfg.Logging.RedactPII = &redact
	}
	if cfg.Planning.MaxTurns == 0 {
		cfg.Planning.MaxTurns = 10
	}
	if cfg.Planning.MaxNewsletters == 0 {
		cfg.Planning.MaxNewsletters = 12
	}
	if cfg.Planning.FallbackCount == 0 {
		cfg.Planning.FallbackCount = 3
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// A missing config file is not an error; defaults are used instead.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("PROMPTS_PATH"); v != "" {
		cfg.Prompts.Path = v
	}

	// Auth overrides
	if v := os.Getenv("AUTH_TOKEN_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := os.Getenv("AUTH_TOKEN_PUBLIC_KEY"); v != "" {
		cfg.Auth.TokenPublicKey = v
	}
	if v := os.Getenv("AUTH_TOKEN_AUDIENCE"); v != "" {
		cfg.Auth.TokenAudience = v
	}
	if v := os.Getenv("AUTH_TOKEN_ISSUER"); v != "" {
		cfg.Auth.TokenIssuer = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleSecret = v
	}
	if v := os.Getenv("AUTH_BASE_URL"); v != "" {
		cfg.Auth.BaseURL = v
	}

	// Mailing overrides
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Mailing.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Mailing.SecretKey = v
	}
	if v := os.Getenv("MAILING_FROM_EMAIL"); v != "" {
		cfg.Mailing.FromEmail = v
		cfg.Mailing.Enabled = true
	}

	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.Type = "s3"
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
