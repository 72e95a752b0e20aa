package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phantomx-ai/phantomx/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. PHANTOMX_SERVER_ADDR.
const EnvPrefix = "PHANTOMX"

// Config holds PhantomX configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   logger.Config   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	NLP       NLPConfig       `mapstructure:"nlp"`
	Deepfake  DeepfakeConfig  `mapstructure:"deepfake"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// AuthConfig maps API keys to client ids. Auth is off when no client is listed.
type AuthConfig struct {
	Clients []ClientConfig `mapstructure:"clients" validate:"dive"`
}

type ClientConfig struct {
	ID      string   `mapstructure:"id" validate:"required"`
	APIKeys []string `mapstructure:"api_keys" validate:"min=1,dive,required"`
}

// Enabled reports whether requests must carry an API key.
func (a AuthConfig) Enabled() bool { return len(a.Clients) > 0 }

type SpeechConfig struct {
	Provider             string        `mapstructure:"provider" validate:"oneof=none google whisper"`
	APIKeyEnv            string        `mapstructure:"api_key_env"`
	BaseURL              string        `mapstructure:"base_url" validate:"omitempty,url"`
	Language             string        `mapstructure:"language"`
	AlternativeLanguages []string      `mapstructure:"alternative_languages"`
	WhisperURL           string        `mapstructure:"whisper_url" validate:"omitempty,url"`
	WhisperModel         string        `mapstructure:"whisper_model"`
	Timeout              time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type NLPConfig struct {
	Provider  string        `mapstructure:"provider" validate:"oneof=none google"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type DeepfakeConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BundleDir    string        `mapstructure:"bundle_dir"`
	FeaturesURL  string        `mapstructure:"features_url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	WarmupOnBoot bool          `mapstructure:"warmup_on_boot"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	HistoryLimit  int    `mapstructure:"history_limit" validate:"gt=0"`
}

type EventsConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	FilePath          string            `mapstructure:"file_path"`
	WebhookURL        string            `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookHeaders    map[string]string `mapstructure:"webhook_headers"`
	WebhookTimeout    time.Duration     `mapstructure:"webhook_timeout" validate:"gte=0"`
	QueueSize         int               `mapstructure:"queue_size" validate:"gte=0"`
	Workers           int               `mapstructure:"workers" validate:"gte=0"`
	TranscriptPreview bool              `mapstructure:"transcript_preview"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Protocol string `mapstructure:"protocol" validate:"omitempty,oneof=grpc http"`
}

// Options controls where Load looks for files.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load reads configuration from an optional YAML file, an optional .env file
// and PHANTOMX_* environment variables, in increasing order of precedence.
// A missing config file is not an error; defaults apply.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// setDefaults registers every key with viper so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(25<<20))
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("speech.provider", "google")
	v.SetDefault("speech.api_key_env", "GOOGLE_API_KEY")
	v.SetDefault("speech.base_url", "")
	v.SetDefault("speech.language", "en-IN")
	v.SetDefault("speech.alternative_languages", []string{"hi-IN", "ta-IN", "te-IN", "bn-IN", "mr-IN"})
	v.SetDefault("speech.whisper_url", "")
	v.SetDefault("speech.whisper_model", "")
	v.SetDefault("speech.timeout", 60*time.Second)

	v.SetDefault("nlp.provider", "google")
	v.SetDefault("nlp.api_key_env", "GOOGLE_API_KEY")
	v.SetDefault("nlp.base_url", "")
	v.SetDefault("nlp.timeout", 15*time.Second)

	v.SetDefault("deepfake.enabled", false)
	v.SetDefault("deepfake.bundle_dir", "")
	v.SetDefault("deepfake.features_url", "")
	v.SetDefault("deepfake.timeout", 30*time.Second)
	v.SetDefault("deepfake.warmup_on_boot", false)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.key_prefix", "phantomx")
	v.SetDefault("storage.history_limit", 50)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.file_path", "")
	v.SetDefault("events.webhook_url", "")
	v.SetDefault("events.webhook_timeout", 5*time.Second)
	v.SetDefault("events.queue_size", 1000)
	v.SetDefault("events.workers", 2)
	v.SetDefault("events.transcript_preview", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.protocol", "grpc")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 25 << 20
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 180 * time.Second
	}

	cfg.Logging.ApplyDefaults()

	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = "none"
	}
	cfg.Speech.Provider = strings.ToLower(cfg.Speech.Provider)
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = "en-IN"
	}

	if cfg.NLP.Provider == "" {
		cfg.NLP.Provider = "none"
	}
	cfg.NLP.Provider = strings.ToLower(cfg.NLP.Provider)

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if cfg.Storage.HistoryLimit <= 0 {
		cfg.Storage.HistoryLimit = 50
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "phantomx"
	}

	if cfg.Events.QueueSize <= 0 {
		cfg.Events.QueueSize = 1000
	}
	if cfg.Events.Workers <= 0 {
		cfg.Events.Workers = 2
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	cfg.Telemetry.Protocol = strings.ToLower(cfg.Telemetry.Protocol)
}

// APIKey resolves a key from the named environment variable.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}
