package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Jina        JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Score       ScoreConfig       `yaml:"score" mapstructure:"score"`
	Emails      EmailsConfig      `yaml:"emails" mapstructure:"emails"`
	Personalize PersonalizeConfig `yaml:"personalize" mapstructure:"personalize"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Sequence    SequenceConfig    `yaml:"sequence" mapstructure:"sequence"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ScrapeConfig configures website enrichment.
type ScrapeConfig struct {
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Concurrency       int      `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec        float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst             int      `yaml:"burst" mapstructure:"burst"`
	MeasurementRounds int      `yaml:"measurement_rounds" mapstructure:"measurement_rounds"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	Categories        []string `yaml:"categories" mapstructure:"categories"`
	MaxBodyKB         int      `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// RetryConfig configures retry behavior for outbound calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// JinaConfig holds Jina AI Reader settings. The reader is only used as a
// fallback when a site blocks direct fetches.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScoreConfig holds the points table used by the score stage.
type ScoreConfig struct {
	SSLPoints         int      `yaml:"ssl_points" mapstructure:"ssl_points"`
	NoSSLPoints       int      `yaml:"no_ssl_points" mapstructure:"no_ssl_points"`
	LoadTimeBands     []Band   `yaml:"load_time_bands" mapstructure:"load_time_bands"`
	MetaPoints        int      `yaml:"meta_points" mapstructure:"meta_points"`
	OGPoints          int      `yaml:"og_points" mapstructure:"og_points"`
	H1Points          int      `yaml:"h1_points" mapstructure:"h1_points"`
	MobilePoints      int      `yaml:"mobile_points" mapstructure:"mobile_points"`
	ContactPagePoints int      `yaml:"contact_page_points" mapstructure:"contact_page_points"`
	PhonePoints       int      `yaml:"phone_points" mapstructure:"phone_points"`
	SlowMs            int      `yaml:"slow_ms" mapstructure:"slow_ms"`
	VerySlowMs        int      `yaml:"very_slow_ms" mapstructure:"very_slow_ms"`
	HotTier           int      `yaml:"hot_tier" mapstructure:"hot_tier"`
	WarmTier          int      `yaml:"warm_tier" mapstructure:"warm_tier"`
	CoolTier          int      `yaml:"cool_tier" mapstructure:"cool_tier"`
	OldCMSMarkers     []string `yaml:"old_cms_markers" mapstructure:"old_cms_markers"`
}

// Band awards Points when a measured value is at most MaxMs.
type Band struct {
	MaxMs  int `yaml:"max_ms" mapstructure:"max_ms"`
	Points int `yaml:"points" mapstructure:"points"`
}

// EmailsConfig configures draft email generation.
type EmailsConfig struct {
	Threshold     int    `yaml:"threshold" mapstructure:"threshold"`
	MaxGuesses    int    `yaml:"max_guesses" mapstructure:"max_guesses"`
	TemplatesFile string `yaml:"templates_file" mapstructure:"templates_file"`
	SenderName    string `yaml:"sender_name" mapstructure:"sender_name"`
}

// PersonalizeConfig configures the AI personalization stage.
type PersonalizeConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens        int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SequenceConfig configures follow-up cadence generation.
type SequenceConfig struct {
	CadenceFile string `yaml:"cadence_file" mapstructure:"cadence_file"`
	SenderName  string `yaml:"sender_name" mapstructure:"sender_name"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file, .env and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
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
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.concurrency", 10)
	v.SetDefault("scrape.rate_per_sec", 10.0)
	v.SetDefault("scrape.burst", 10)
	v.SetDefault("scrape.measurement_rounds", 3)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; outreach-cli/1.0)")
	v.SetDefault("scrape.categories", []string{
		"performance", "security", "seo", "cms", "mobile", "business", "accessibility",
	})
	v.SetDefault("scrape.max_body_kb", 1024)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)

	v.SetDefault("jina.base_url", "https://r.jina.ai")

	v.SetDefault("score.ssl_points", 40)
	v.SetDefault("score.no_ssl_points", 10)
	v.SetDefault("score.load_time_bands", []map[string]int{
		{"max_ms": 500, "points": 40},
		{"max_ms": 1000, "points": 32},
		{"max_ms": 2000, "points": 24},
		{"max_ms": 3000, "points": 16},
		{"max_ms": 5000, "points": 8},
	})
	v.SetDefault("score.meta_points", 5)
	v.SetDefault("score.og_points", 3)
	v.SetDefault("score.h1_points", 2)
	v.SetDefault("score.mobile_points", 5)
	v.SetDefault("score.contact_page_points", 3)
	v.SetDefault("score.phone_points", 2)
	v.SetDefault("score.slow_ms", 3000)
	v.SetDefault("score.very_slow_ms", 5000)
	v.SetDefault("score.hot_tier", 80)
	v.SetDefault("score.warm_tier", 60)
	v.SetDefault("score.cool_tier", 40)
	v.SetDefault("score.old_cms_markers", []string{
		"wordpress 4.", "wordpress 3.", "joomla 2.", "joomla 1.", "drupal 7", "drupal 6",
	})

	v.SetDefault("emails.threshold", 40)
	v.SetDefault("emails.max_guesses", 3)

	v.SetDefault("personalize.provider", "gemini")
	v.SetDefault("personalize.concurrency", 4)
	v.SetDefault("personalize.rate_per_sec", 1.0)
	v.SetDefault("personalize.burst", 1)
	v.SetDefault("personalize.timeout_secs", 30)
	v.SetDefault("personalize.max_tokens", 100)
	v.SetDefault("personalize.temperature", 0.7)
	v.SetDefault("personalize.breaker_threshold", 5)
	v.SetDefault("personalize.breaker_reset_secs", 30)

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
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

// Validate checks that settings required by the given mode are present.
// Mode "personalize" requires credentials for the configured provider;
// mode "run" checks only numeric limits.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Scrape.Concurrency < 1 {
		errs = append(errs, "scrape.concurrency must be >= 1")
	}
	if c.Scrape.TimeoutSecs < 1 {
		errs = append(errs, "scrape.timeout_secs must be >= 1")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Emails.Threshold < 0 || c.Emails.Threshold > 100 {
		errs = append(errs, "emails.threshold must be between 0 and 100")
	}

	if mode == "personalize" {
		if c.Personalize.Concurrency < 1 {
			errs = append(errs, "personalize.concurrency must be >= 1")
		}
		if c.Personalize.RatePerSec <= 0 {
			errs = append(errs, "personalize.rate_per_sec must be > 0")
		}
		switch c.Personalize.Provider {
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "stub":
		default:
			errs = append(errs, "personalize.provider must be one of gemini, anthropic, stub")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
