package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalysisConfig holds the tunable gates and thresholds of the analytics
// pipeline. Clinical scoring bands are code constants, not configuration.
type AnalysisConfig struct {
	TrendMinPoints        int     `mapstructure:"trend_min_points"`
	TrendMinDays          int     `mapstructure:"trend_min_days"`
	RetrainInterval       string  `mapstructure:"retrain_interval"`
	CorrelationElevated   float64 `mapstructure:"correlation_elevated"`
	CorrelationHigh       float64 `mapstructure:"correlation_high"`
	MinFeatureRows        int     `mapstructure:"min_feature_rows"`
	MinPairRows           int     `mapstructure:"min_pair_rows"`
	RuleBlendWeight       float64 `mapstructure:"rule_blend_weight"`
	ModelBlendWeight      float64 `mapstructure:"model_blend_weight"`
	WorseningTrendPenalty int     `mapstructure:"worsening_trend_penalty"`
	ImprovingTrendBonus   int     `mapstructure:"improving_trend_bonus"`
}

// RetrainTTL parses the retrain interval, falling back to 24h.
func (a AnalysisConfig) RetrainTTL() time.Duration {
	d, err := time.ParseDuration(a.RetrainInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	// Validate retrain interval duration
	if config.Analysis.RetrainInterval != "" {
		if _, err := time.ParseDuration(config.Analysis.RetrainInterval); err != nil {
			return nil, fmt.Errorf("invalid retrain interval duration: %w", err)
		}
	}

	// Blend weights must combine the two score sources completely
	sum := config.Analysis.RuleBlendWeight + config.Analysis.ModelBlendWeight
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("blend weights must sum to 1.0, got %.3f", sum)
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Analysis
	viper.SetDefault("analysis.trend_min_points", 5)
	viper.SetDefault("analysis.trend_min_days", 14)
	viper.SetDefault("analysis.retrain_interval", "24h")
	viper.SetDefault("analysis.correlation_elevated", 0.6)
	viper.SetDefault("analysis.correlation_high", 0.8)
	viper.SetDefault("analysis.min_feature_rows", 14)
	viper.SetDefault("analysis.min_pair_rows", 7)
	viper.SetDefault("analysis.rule_blend_weight", 0.6)
	viper.SetDefault("analysis.model_blend_weight", 0.4)
	viper.SetDefault("analysis.worsening_trend_penalty", 3)
	viper.SetDefault("analysis.improving_trend_bonus", 2)
}
