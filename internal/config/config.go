package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the mlserver configuration.
type Config struct {
	Env        string           `mapstructure:"env"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Adapter    AdapterConfig    `mapstructure:"adapter"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Hugot      HugotConfig      `mapstructure:"hugot"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port              int             `mapstructure:"port"`
	ReadHeaderTimeout time.Duration   `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration   `mapstructure:"shutdown_timeout"`
	CORS              CORSConfig      `mapstructure:"cors"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig limits requests to the model routes. RPS 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type AdapterConfig struct {
	Chat      ChatConfig      `mapstructure:"chat"`
	Embed     EmbedConfig     `mapstructure:"embed"`
	Toxicity  ToxicityConfig  `mapstructure:"toxicity"`
	Summarize SummarizeConfig `mapstructure:"summarize"`
}

// ChatConfig selects the chat model. Provider labels the OpenAI compatible
// backend in metrics. OnnxFilePath and ExternalDataPath only apply to hugot.
type ChatConfig struct {
	Name             string        `mapstructure:"name"`
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float32       `mapstructure:"temperature"`
	OnnxFilePath     string        `mapstructure:"onnx_file_path"`
	ExternalDataPath string        `mapstructure:"external_data_path"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
	HalfOpenMax  uint32        `mapstructure:"half_open_max"`
}

type EmbedConfig struct {
	Name         string        `mapstructure:"name"`
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	OnnxFilePath string        `mapstructure:"onnx_file_path"`
	Cache        string        `mapstructure:"cache"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type ToxicityConfig struct {
	Model             string  `mapstructure:"model"`
	OnnxFilePath      string  `mapstructure:"onnx_file_path"`
	ToxicityThreshold float64 `mapstructure:"toxicity_threshold"`
	InsultThreshold   float64 `mapstructure:"insult_threshold"`
}

type SummarizeConfig struct {
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryMax       int           `mapstructure:"retry_max"`
	MaxInputTokens int           `mapstructure:"max_input_tokens"`
	MinLength      int           `mapstructure:"min_length"`
	MaxLength      int           `mapstructure:"max_length"`
	NumBeams       int           `mapstructure:"num_beams"`
	LengthPenalty  float64       `mapstructure:"length_penalty"`
	Encoding       string        `mapstructure:"encoding"`
}

type SimilarityConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// MongoConfig points at the question collection. An empty URI disables it.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Limit      int           `mapstructure:"limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Protocol  int    `mapstructure:"protocol"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type HugotConfig struct {
	ModelsDir string `mapstructure:"models_dir"`
}

const envPrefix = "MLSERVER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log.level", "info")

	v.SetDefault("http.port", 5000)
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.cors.allowed_origins", []string{"*"})
	v.SetDefault("http.rate_limit.rps", 0)
	v.SetDefault("http.rate_limit.burst", 10)

	v.SetDefault("adapter.chat.name", "openai")
	v.SetDefault("adapter.chat.provider", "huggingface")
	v.SetDefault("adapter.chat.model", "meta-llama/Llama-3.1-8B-Instruct")
	v.SetDefault("adapter.chat.base_url", "https://router.huggingface.co/v1")
	v.SetDefault("adapter.chat.api_key", "")
	v.SetDefault("adapter.chat.max_tokens", 512)
	v.SetDefault("adapter.chat.temperature", 0.2)
	v.SetDefault("adapter.chat.onnx_file_path", "onnx/model.onnx")
	v.SetDefault("adapter.chat.external_data_path", "")
	v.SetDefault("adapter.chat.breaker.enabled", true)
	v.SetDefault("adapter.chat.breaker.min_requests", 5)
	v.SetDefault("adapter.chat.breaker.failure_ratio", 0.6)
	v.SetDefault("adapter.chat.breaker.open_timeout", 30*time.Second)
	v.SetDefault("adapter.chat.breaker.half_open_max", 1)

	v.SetDefault("adapter.embed.name", "hugot")
	v.SetDefault("adapter.embed.provider", "")
	v.SetDefault("adapter.embed.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("adapter.embed.base_url", "")
	v.SetDefault("adapter.embed.api_key", "")
	v.SetDefault("adapter.embed.onnx_file_path", "onnx/model.onnx")
	v.SetDefault("adapter.embed.cache", "memory")
	v.SetDefault("adapter.embed.cache_ttl", 24*time.Hour)

	v.SetDefault("adapter.toxicity.model", "unitary/toxic-bert")
	v.SetDefault("adapter.toxicity.onnx_file_path", "onnx/model.onnx")
	v.SetDefault("adapter.toxicity.toxicity_threshold", 0.70)
	v.SetDefault("adapter.toxicity.insult_threshold", 0.60)

	v.SetDefault("adapter.summarize.model", "facebook/bart-large-cnn")
	v.SetDefault("adapter.summarize.base_url", "https://router.huggingface.co/hf-inference/models")
	v.SetDefault("adapter.summarize.api_key", "")
	v.SetDefault("adapter.summarize.timeout", 60*time.Second)
	v.SetDefault("adapter.summarize.retry_max", 3)
	v.SetDefault("adapter.summarize.max_input_tokens", 1024)
	v.SetDefault("adapter.summarize.min_length", 30)
	v.SetDefault("adapter.summarize.max_length", 200)
	v.SetDefault("adapter.summarize.num_beams", 5)
	v.SetDefault("adapter.summarize.length_penalty", 2.0)
	v.SetDefault("adapter.summarize.encoding", "r50k_base")

	v.SetDefault("similarity.threshold", 0.80)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "stackit")
	v.SetDefault("mongo.collection", "questions")
	v.SetDefault("mongo.limit", 1000)
	v.SetDefault("mongo.timeout", 5*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.protocol", 2)
	v.SetDefault("redis.key_prefix", "emb:")

	v.SetDefault("hugot.models_dir", "./models")
}

// Load reads config.yaml from the given directories (first match wins), applies
// MLSERVER_* environment overrides and falls back to defaults for the rest.
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider tokens are usually exported under their well known names.
	if err := v.BindEnv("adapter.chat.api_key", envPrefix+"_ADAPTER_CHAT_API_KEY", "HF_TOKEN", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("adapter.embed.api_key", envPrefix+"_ADAPTER_EMBED_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("adapter.summarize.api_key", envPrefix+"_ADAPTER_SUMMARIZE_API_KEY", "HF_TOKEN"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Similarity.Threshold < -1 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be between -1 and 1, got %v", c.Similarity.Threshold)
	}
	switch c.Adapter.Chat.Name {
	case "openai", "google-genai":
	case "hugot":
		// The local generation pipeline renders prompts with the Gemma chat template.
		if !strings.Contains(strings.ToLower(c.Adapter.Chat.Model), "gemma") {
			return fmt.Errorf("hugot chat adapter needs a Gemma instruction model, got %q", c.Adapter.Chat.Model)
		}
		if c.Adapter.Chat.OnnxFilePath == "" {
			return fmt.Errorf("hugot chat adapter needs onnx_file_path")
		}
	default:
		return fmt.Errorf("unknown chat adapter: %s", c.Adapter.Chat.Name)
	}
	switch c.Adapter.Embed.Name {
	case "openai", "google-genai", "hugot":
	default:
		return fmt.Errorf("unknown embed adapter: %s", c.Adapter.Embed.Name)
	}
	switch c.Adapter.Embed.Cache {
	case "", "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown embedding cache: %s", c.Adapter.Embed.Cache)
	}
	if c.Adapter.Chat.Breaker.Enabled && c.Adapter.Chat.Breaker.HalfOpenMax == 0 {
		return fmt.Errorf("circuit breaker half_open_max must be at least 1")
	}
	if c.HTTP.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps cannot be negative")
	}
	return nil
}
