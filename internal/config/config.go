package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Azure    AzureConfig
	Auth     AuthConfig
	Analysis AnalysisConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL string
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Storage StorageConfig
}

// OpenAIConfig holds the primary and fallback Azure OpenAI deployments.
// The fallback endpoint and key default to the primary's when unset, so a
// second deployment in the same resource is the minimal configuration.
type OpenAIConfig struct {
	Endpoint           string
	APIKey             string
	Deployment         string
	FallbackEndpoint   string
	FallbackAPIKey     string
	FallbackDeployment string
	RequestTimeout     time.Duration
}

// StorageConfig holds Azure Blob Storage configuration for optional raw
// audio retention. Retention is off unless explicitly enabled.
type StorageConfig struct {
	AccountName    string
	AccountKey     string
	AudioContainer string
	RetainAudio    bool
}

// AuthConfig holds identity token verification configuration.
// When no key files are configured an ephemeral pair is generated, which is
// only useful for development.
type AuthConfig struct {
	PublicKeyPath  string
	PrivateKeyPath string
}

// AnalysisConfig holds tunables of the analysis pipeline
type AnalysisConfig struct {
	ShortClipFloorSeconds float64
	HistoryDefaultLimit   int
	HistoryMaxLimit       int
}

// SecurityConfig holds at-rest encryption configuration. MetadataKey is a
// base64-encoded 32-byte AES key; metadata is stored in the clear when empty.
type SecurityConfig struct {
	MetadataKey string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyFallbackDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Model defaults. The request timeout is generous because audio-capable
	// generative models can take minutes under load.
	v.SetDefault("azure.openai.requesttimeout", 540*time.Second)

	// Storage defaults
	v.SetDefault("azure.storage.audiocontainer", "cough-recordings")
	v.SetDefault("azure.storage.retainaudio", false)

	// Analysis defaults
	v.SetDefault("analysis.shortclipfloorseconds", 0.5)
	v.SetDefault("analysis.historydefaultlimit", 10)
	v.SetDefault("analysis.historymaxlimit", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure.openai.fallbackendpoint", "AZURE_OPENAI_FALLBACK_ENDPOINT")
	v.BindEnv("azure.openai.fallbackapikey", "AZURE_OPENAI_FALLBACK_API_KEY")
	v.BindEnv("azure.openai.fallbackdeployment", "AZURE_OPENAI_FALLBACK_DEPLOYMENT")
	v.BindEnv("azure.openai.requesttimeout", "AZURE_OPENAI_REQUEST_TIMEOUT")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.audiocontainer", "AZURE_STORAGE_AUDIO_CONTAINER")
	v.BindEnv("azure.storage.retainaudio", "RETAIN_AUDIO")

	// Auth
	v.BindEnv("auth.publickeypath", "AUTH_PUBLIC_KEY_PATH")
	v.BindEnv("auth.privatekeypath", "AUTH_PRIVATE_KEY_PATH")

	// Analysis
	v.BindEnv("analysis.shortclipfloorseconds", "SHORT_CLIP_FLOOR_SECONDS")
	v.BindEnv("analysis.historydefaultlimit", "HISTORY_DEFAULT_LIMIT")
	v.BindEnv("analysis.historymaxlimit", "HISTORY_MAX_LIMIT")

	// Security
	v.BindEnv("security.metadatakey", "METADATA_ENCRYPTION_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// applyFallbackDefaults fills fallback model credentials from the primary's
// when only a fallback deployment name was configured.
func (c *Config) applyFallbackDefaults() {
	if c.Azure.OpenAI.FallbackEndpoint == "" {
		c.Azure.OpenAI.FallbackEndpoint = c.Azure.OpenAI.Endpoint
	}
	if c.Azure.OpenAI.FallbackAPIKey == "" {
		c.Azure.OpenAI.FallbackAPIKey = c.Azure.OpenAI.APIKey
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Azure.OpenAI.Endpoint == "" {
		return fmt.Errorf("azure.openai.endpoint is required")
	}

	if c.Azure.OpenAI.APIKey == "" {
		return fmt.Errorf("azure.openai.apikey is required")
	}

	if c.Azure.OpenAI.Deployment == "" {
		return fmt.Errorf("azure.openai.deployment is required")
	}

	if c.Azure.OpenAI.FallbackDeployment == "" {
		return fmt.Errorf("azure.openai.fallbackdeployment is required")
	}

	if c.Azure.Storage.RetainAudio && (c.Azure.Storage.AccountName == "" || c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage credentials are required when audio retention is enabled")
	}

	if c.Analysis.ShortClipFloorSeconds < 0 {
		return fmt.Errorf("analysis.shortclipfloorseconds must not be negative")
	}

	if c.Analysis.HistoryDefaultLimit <= 0 || c.Analysis.HistoryMaxLimit < c.Analysis.HistoryDefaultLimit {
		return fmt.Errorf("history limits are inconsistent")
	}

	return nil
}
