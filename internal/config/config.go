package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-dedup/internal/match"
	"github.com/sells-group/lead-dedup/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DedupConfig configures matching and batch orchestration.
type DedupConfig struct {
	Exact       bool               `yaml:"exact" mapstructure:"exact"`
	Fuzzy       bool               `yaml:"fuzzy" mapstructure:"fuzzy"`
	Threshold   float64            `yaml:"threshold" mapstructure:"threshold"`
	MatchFields []string           `yaml:"match_fields" mapstructure:"match_fields"`
	Rules       []match.RuleConfig `yaml:"rules" mapstructure:"rules"`
	RulesFile   string             `yaml:"rules_file" mapstructure:"rules_file"`
	BatchSize   int                `yaml:"batch_size" mapstructure:"batch_size"`
	UseParallel bool               `yaml:"use_parallel" mapstructure:"use_parallel"`
	MaxWorkers  int                `yaml:"max_workers" mapstructure:"max_workers"`
}

// MatchOptions converts the dedup section into match.Build options,
// loading RulesFile when no inline rules are set.
func (d DedupConfig) MatchOptions() (match.Options, error) {
	opts := match.Options{
		Exact:       d.Exact,
		Fuzzy:       d.Fuzzy,
		Threshold:   d.Threshold,
		MatchFields: d.MatchFields,
		Rules:       d.Rules,
	}
	if len(opts.Rules) == 0 && d.RulesFile != "" {
		rules, err := match.LoadRulesFile(d.RulesFile)
		if err != nil {
			return match.Options{}, err
		}
		opts.Rules = rules
	}
	return opts, nil
}

// ValidationConfig configures record validation and filtering.
type ValidationConfig struct {
	MinQualityScore int                `yaml:"min_quality_score" mapstructure:"min_quality_score"`
	ValidMode       string             `yaml:"valid_mode" mapstructure:"valid_mode"`
	DefaultCountry  string             `yaml:"default_country" mapstructure:"default_country"`
	Weights         map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// CacheConfig bounds the validation verdict cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	MaxItems   int `yaml:"max_items" mapstructure:"max_items"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// StoreConfig selects the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	// MaxBodyMB caps request bodies on the record endpoints.
	MaxBodyMB int `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// LogConfig configures the global zap logger.
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
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dedup.exact", true)
	v.SetDefault("dedup.fuzzy", true)
	v.SetDefault("dedup.threshold", match.DefaultThreshold)
	v.SetDefault("dedup.match_fields", []string{})
	v.SetDefault("dedup.rules", []match.RuleConfig{})
	v.SetDefault("dedup.rules_file", "")
	v.SetDefault("dedup.batch_size", 5000)
	v.SetDefault("dedup.use_parallel", true)
	v.SetDefault("dedup.max_workers", 4)
	v.SetDefault("validation.min_quality_score", 0)
	v.SetDefault("validation.valid_mode", "both")
	v.SetDefault("validation.default_country", "")
	v.SetDefault("validation.weights", map[string]float64{})
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.max_items", 10000)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lead-dedup.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_body_mb", 32)
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

// Validate checks the settings the command given by mode depends on.
// Modes are "dedup", "validate", "serve" and "runs".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "dedup":
		if err := c.validateDedup(); err != nil {
			return err
		}
		return c.validateValidation()
	case "validate":
		return c.validateValidation()
	case "serve":
		if c.Server.Port <= 0 {
			return &model.ConfigurationError{Setting: "server.port", Reason: "server.port must be > 0"}
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
			return &model.ConfigurationError{Setting: "server.rate_limit", Reason: "rate limit and burst must be > 0"}
		}
		if err := c.validateDedup(); err != nil {
			return err
		}
		return c.validateValidation()
	case "runs":
		return nil
	default:
		return &model.ConfigurationError{Setting: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
}

func (c *Config) validateDedup() error {
	if c.Dedup.BatchSize <= 0 {
		return &model.ConfigurationError{Setting: "dedup.batch_size", Reason: fmt.Sprintf("must be positive, got %d", c.Dedup.BatchSize)}
	}
	if c.Dedup.Threshold < 0 || c.Dedup.Threshold > 100 {
		return &model.ConfigurationError{Setting: "dedup.threshold", Reason: fmt.Sprintf("%v outside 0-100", c.Dedup.Threshold)}
	}
	if !c.Dedup.Exact && !c.Dedup.Fuzzy {
		return &model.ConfigurationError{Setting: "dedup", Reason: "exact and fuzzy matching are both disabled"}
	}
	return nil
}

func (c *Config) validateValidation() error {
	switch strings.ToLower(c.Validation.ValidMode) {
	case "", "both", "either":
	default:
		return &model.ConfigurationError{Setting: "validation.valid_mode", Reason: fmt.Sprintf("unknown mode %q", c.Validation.ValidMode)}
	}
	for f, w := range c.Validation.Weights {
		if w < 0 {
			return &model.ConfigurationError{Setting: "validation.weights." + f, Reason: "must not be negative"}
		}
	}
	if c.Validation.MinQualityScore < 0 || c.Validation.MinQualityScore > 100 {
		return &model.ConfigurationError{Setting: "validation.min_quality_score", Reason: "must be between 0 and 100"}
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
