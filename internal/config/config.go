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
	Reddit    RedditConfig    `yaml:"reddit" mapstructure:"reddit"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RedditConfig configures the public content-platform client.
type RedditConfig struct {
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent           string `yaml:"user_agent" mapstructure:"user_agent"`
	MinDelaySecs        int    `yaml:"min_delay_secs" mapstructure:"min_delay_secs"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ProfileCommentLimit int    `yaml:"profile_comment_limit" mapstructure:"profile_comment_limit"`
}

// AnthropicConfig holds generative-model settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	ClassifyBatchSize int     `yaml:"classify_batch_size" mapstructure:"classify_batch_size"`
	BatchDelaySecs    float64 `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
}

// ScrapeConfig holds default run parameters, overridable per request.
type ScrapeConfig struct {
	Subreddits []string `yaml:"subreddits" mapstructure:"subreddits"`
	Keywords   []string `yaml:"keywords" mapstructure:"keywords"`
	PostLimit  int      `yaml:"post_limit" mapstructure:"post_limit"`
	MaxAgeDays int      `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// ScoringConfig holds the domain keyword list and author denylist consumed
// by the scorer and extractor.
type ScoringConfig struct {
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	Denylist []string `yaml:"denylist" mapstructure:"denylist"`
}

// AnalyticsConfig configures the subreddit tracker thresholds.
type AnalyticsConfig struct {
	HighConversionRate float64 `yaml:"high_conversion_rate" mapstructure:"high_conversion_rate"`
	LowConversionRate  float64 `yaml:"low_conversion_rate" mapstructure:"low_conversion_rate"`
	MinSamplePosts     int     `yaml:"min_sample_posts" mapstructure:"min_sample_posts"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("reddit.base_url", "https://www.reddit.com")
	v.SetDefault("reddit.user_agent", "leadgen-cli/1.0")
	v.SetDefault("reddit.min_delay_secs", 2)
	v.SetDefault("reddit.timeout_secs", 15)
	v.SetDefault("reddit.profile_comment_limit", 25)

	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("anthropic.classify_batch_size", 3)
	v.SetDefault("anthropic.batch_delay_secs", 1.5)

	v.SetDefault("scrape.subreddits", []string{
		"CamGirlProblems", "OnlyFansAdvice", "CreatorAdvice", "SexWorkersOnly", "LegalAdvice",
	})
	v.SetDefault("scrape.keywords", []string{
		"onlyfans leak", "content stolen", "dmca help", "nsfw leak", "privacy violation", "content removal",
	})
	v.SetDefault("scrape.post_limit", 10)
	v.SetDefault("scrape.max_age_days", 120)

	v.SetDefault("scoring.keywords", []string{
		"leak", "leaked", "dmca", "takedown", "stolen", "reposted", "pirated",
		"copyright", "onlyfans", "content removal", "revenge porn",
	})
	v.SetDefault("scoring.denylist", []string{
		"[deleted]", "[removed]", "AutoModerator",
	})

	v.SetDefault("analytics.high_conversion_rate", 0.1)
	v.SetDefault("analytics.low_conversion_rate", 0.05)
	v.SetDefault("analytics.min_sample_posts", 20)
}

// Validate checks startup-level requirements before a pipeline run. API
// credential problems are fatal here rather than mid-run.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (LEADGEN_ANTHROPIC_KEY)")
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	return nil
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
