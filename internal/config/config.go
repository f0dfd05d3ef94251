package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Dify      DifyConfig      `yaml:"dify" mapstructure:"dify"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer" mapstructure:"analyzer"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the reference-rate database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// DifyConfig holds credentials and tuning for the hosted Dify workflows.
type DifyConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	EmailWorkflowID   string  `yaml:"email_workflow_id" mapstructure:"email_workflow_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for the direct vision
// extraction provider.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig selects the bill extraction provider.
type ExtractConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// BenchmarkConfig configures reference-rate matching.
type BenchmarkConfig struct {
	Strategy            string  `yaml:"strategy" mapstructure:"strategy"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// AnalyzerConfig configures the anomaly analysis engine.
type AnalyzerConfig struct {
	DuplicatePolicy        string  `yaml:"duplicate_policy" mapstructure:"duplicate_policy"`
	ClampPercentage        bool    `yaml:"clamp_percentage" mapstructure:"clamp_percentage"`
	UnmatchedFlagThreshold float64 `yaml:"unmatched_flag_threshold" mapstructure:"unmatched_flag_threshold"`
	UnmatchedBenchmark     float64 `yaml:"unmatched_benchmark" mapstructure:"unmatched_benchmark"`
	FallbackFlagThreshold  float64 `yaml:"fallback_flag_threshold" mapstructure:"fallback_flag_threshold"`
	FallbackBenchmarkRatio float64 `yaml:"fallback_benchmark_ratio" mapstructure:"fallback_benchmark_ratio"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEEVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 20)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("dify.base_url", "https://api.dify.ai/v1")
	v.SetDefault("dify.requests_per_second", 2.0)
	v.SetDefault("dify.timeout_secs", 120)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("extract.provider", "dify")
	v.SetDefault("benchmark.strategy", "keyword")
	v.SetDefault("benchmark.similarity_threshold", 0.3)
	v.SetDefault("analyzer.duplicate_policy", "flag_all")
	v.SetDefault("analyzer.clamp_percentage", false)
	v.SetDefault("analyzer.unmatched_flag_threshold", 15000)
	v.SetDefault("analyzer.unmatched_benchmark", 10000)
	v.SetDefault("analyzer.fallback_flag_threshold", 10000)
	v.SetDefault("analyzer.fallback_benchmark_ratio", 0.8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
