package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the bridge process.
// Tags use mapstructure for Viper unmarshalling; every key can be set via
// environment variable of the same name.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"` // optional; empty selects the in-memory token cache
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Remote learning system.
	MoodleBaseURL string `mapstructure:"MOODLE_BASE_URL"`
	MoodleWSToken string `mapstructure:"MOODLE_WS_TOKEN"`

	// SSO token contract.
	TokenSecret   string `mapstructure:"TOKEN_SECRET"`
	TokenTTLMin   int    `mapstructure:"TOKEN_TTL_MIN"`
	SharedAPIKey  string `mapstructure:"SHARED_API_KEY"` // presented by partner apps on verify
	AdminAPIKey   string `mapstructure:"ADMIN_API_KEY"`  // guards the manual sync trigger

	// Downstream consumer; empty base URL disables the push pass.
	DownstreamURL    string `mapstructure:"DOWNSTREAM_URL"`
	DownstreamBearer string `mapstructure:"DOWNSTREAM_BEARER"`

	// Reconciliation.
	SyncSchedule   string `mapstructure:"SYNC_SCHEDULE"`
	UpdateExisting bool   `mapstructure:"SYNC_UPDATE_EXISTING"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/lms-bridge/")
	v.AddConfigPath("$HOME/.lms-bridge")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/lms_bridge_dev")
	v.SetDefault("MONGO_DB_NAME", "lms_bridge_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("MOODLE_BASE_URL", "http://localhost:8888")
	v.SetDefault("TOKEN_SECRET", "a_very_secret_token_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("TOKEN_TTL_MIN", 60)
	v.SetDefault("SYNC_SCHEDULE", "0 * * * *") // hourly
	v.SetDefault("SYNC_UPDATE_EXISTING", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Missing config file is fine; defaults and env vars apply.
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
