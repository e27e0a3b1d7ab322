package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/emotibot/emotibot/internal"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

var validate = validator.New()

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix("EMOTIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine, defaults and ENV still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, err
		}
		log.Warn("config file not found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for key, env := range map[string]string{
		"llm.openai_api_key":        "EMOTIBOT_OPENAI_API_KEY",
		"llm.anthropic_api_key":     "EMOTIBOT_ANTHROPIC_API_KEY",
		"llm.google_api_key":        "EMOTIBOT_GOOGLE_API_KEY",
		"embeddings.openai_api_key": "EMOTIBOT_OPENAI_API_KEY",
		"embeddings.google_api_key": "EMOTIBOT_GOOGLE_API_KEY",
		"auth.secret":               "EMOTIBOT_AUTH_SECRET",
		"store.postgres.dsn":        "EMOTIBOT_POSTGRES_DSN",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the config against its struct tags and a few cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Store.Type == "postgres" && cfg.Store.Postgres.DSN == "" {
		return fmt.Errorf("invalid config: store.postgres.dsn must be set")
	}
	if cfg.Store.Type == "badger" && cfg.Store.Badger.Path == "" {
		return fmt.Errorf("invalid config: store.badger.path must be set")
	}
	if cfg.Embeddings.Service == "local" && cfg.Embeddings.LocalServerURL == "" {
		return fmt.Errorf("invalid config: embeddings.local_server_url must be set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.service", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("embeddings.service", "local")
	v.SetDefault("embeddings.model", "all-MiniLM-L6-v2")
	v.SetDefault("embeddings.dimensions", 384)
	v.SetDefault("embeddings.local_server_url", "http://localhost:5557")
	v.SetDefault("store.type", "badger")
	v.SetDefault("store.collection", "emotibot_memory")
	v.SetDefault("store.badger.path", "./emotibot_db")
	v.SetDefault("memory.chunk_size", 1000)
	v.SetDefault("memory.chunk_overlap", 100)
	v.SetDefault("memory.search_results", 5)
	v.SetDefault("memory.max_context_length", 2000)
	v.SetDefault("memory.stats_sample_size", 100)
	v.SetDefault("memory.assistant_name", "EmotiBot")
	v.SetDefault("assistant.generation_timeout", 90*time.Second)
	v.SetDefault("assistant.max_retries", 2)
	v.SetDefault("assistant.session_max_turns", 50)
	v.SetDefault("assistant.max_sessions", 1000)
	v.SetDefault("assistant.session_idle_ttl", time.Hour)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_request_size", 5<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
