package config

import (
	"strings"
	"time"

	"alcyxob/tricoach/internal/planner"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Planner  PlannerConfig  `mapstructure:"planner"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// S3Config configures the bucket audit exports are written to.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration.
// Expiration must be a duration string ("60m", "24h") in config.yaml.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// OpenAIConfig configures the optional model-backed proposal engine. With an
// empty APIKey the deterministic engine is used regardless of Engine.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// PlannerConfig selects the proposal engine and exposes the adaptation
// policy thresholds for tuning without a rebuild.
type PlannerConfig struct {
	Engine        string         `mapstructure:"engine"`
	TriggerWindow int            `mapstructure:"trigger_window_days"`
	Policy        planner.Policy `mapstructure:"policy"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: nested keys map through the replacer,
	// e.g. server.address -> SERVER_ADDRESS, planner.engine -> PLANNER_ENGINE.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "tricoach_default")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("planner.engine", planner.EngineDeterministic)
	viper.SetDefault("planner.trigger_window_days", 10)
	setPolicyDefaults(planner.DefaultPolicy())

	err = viper.ReadInConfig()
	// A missing config file is fine, the app can run on env vars and
	// defaults alone. Any other read error is fatal.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}

// setPolicyDefaults registers every policy threshold so a partial
// planner.policy block in config.yaml only overrides what it names.
func setPolicyDefaults(pol planner.Policy) {
	viper.SetDefault("planner.policy.too_hard_min_signals", pol.TooHardMinSignals)
	viper.SetDefault("planner.policy.too_hard_effort_floor", pol.TooHardEffortFloor)
	viper.SetDefault("planner.policy.missed_key_min_opportunities", pol.MissedKeyMinOpportunities)
	viper.SetDefault("planner.policy.missed_key_rate_threshold", pol.MissedKeyRateThreshold)
	viper.SetDefault("planner.policy.high_compliance_min_samples", pol.HighComplianceMinSamples)
	viper.SetDefault("planner.policy.high_compliance_rate_threshold", pol.HighComplianceRateThreshold)
	viper.SetDefault("planner.policy.soreness_volume_cut_pct", pol.SorenessVolumeCutPct)
	viper.SetDefault("planner.policy.too_hard_volume_cut_pct", pol.TooHardVolumeCutPct)
	viper.SetDefault("planner.policy.missed_key_duration_cut_pct", pol.MissedKeyDurationCutPct)
	viper.SetDefault("planner.policy.high_compliance_volume_boost_pct", pol.HighComplianceVolumeBoostPct)
	viper.SetDefault("planner.policy.high_compliance_long_boost_pct", pol.HighComplianceLongBoostPct)
	viper.SetDefault("planner.policy.volume_delta_min_pct", pol.VolumeDeltaMinPct)
	viper.SetDefault("planner.policy.volume_delta_max_pct", pol.VolumeDeltaMaxPct)
	viper.SetDefault("planner.policy.duration_increase_cap_pct", pol.DurationIncreaseCapPct)
	viper.SetDefault("planner.policy.min_session_minutes", pol.MinSessionMinutes)
}
