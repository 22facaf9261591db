// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like FRANCETRAVAIL_CLIENT_ID
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay (config.development.yaml etc.)
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations (running from different directories)
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// Expand ${VAR} placeholders left in YAML values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.FranceTravail.ClientID == "" {
		if val := os.Getenv("FRANCETRAVAIL_CLIENT_ID"); val != "" {
			cfg.APIs.FranceTravail.ClientID = val
		}
	}
	if cfg.APIs.FranceTravail.ClientSecret == "" {
		if val := os.Getenv("FRANCETRAVAIL_CLIENT_SECRET"); val != "" {
			cfg.APIs.FranceTravail.ClientSecret = val
		}
	}
	if cfg.APIs.GenAI.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.APIKey = val
		}
	}
	if cfg.APIs.Embeddings.APIKey == "" {
		if val := os.Getenv("EMBEDDINGS_API_KEY"); val != "" {
			cfg.APIs.Embeddings.APIKey = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "jobsearch-api"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "smart-search-audit"
	}

	if cfg.APIs.FranceTravail.BaseURL == "" {
		cfg.APIs.FranceTravail.BaseURL = "https://api.francetravail.io/partenaire/offresdemploi/v2"
	}
	if cfg.APIs.FranceTravail.TokenURL == "" {
		cfg.APIs.FranceTravail.TokenURL = "https://entreprise.francetravail.fr/connexion/oauth2/access_token"
	}
	if cfg.APIs.FranceTravail.Timeout == 0 {
		cfg.APIs.FranceTravail.Timeout = 10000
	}
	if cfg.APIs.Geo.BaseURL == "" {
		cfg.APIs.Geo.BaseURL = "https://geo.api.gouv.fr"
	}
	if cfg.APIs.Geo.Timeout == 0 {
		cfg.APIs.Geo.Timeout = 5000
	}
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 30000
	}
	if cfg.APIs.Embeddings.Timeout == 0 {
		cfg.APIs.Embeddings.Timeout = 15000
	}

	if cfg.Search.MaxConcurrency == 0 {
		cfg.Search.MaxConcurrency = 4
	}
	if cfg.Search.PacingDelayMs == 0 {
		cfg.Search.PacingDelayMs = 150
	}
	if cfg.Search.DescriptionLimit == 0 {
		cfg.Search.DescriptionLimit = 1500
	}
	if cfg.Search.TaskTimeout == 0 {
		cfg.Search.TaskTimeout = 10000
	}
	if cfg.Search.RequestTimeout == 0 {
		cfg.Search.RequestTimeout = 60000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Search.MaxConcurrency < 1 {
		return fmt.Errorf("search.max_concurrency must be at least 1")
	}
	if cfg.Search.PacingDelayMs < 0 {
		return fmt.Errorf("search.pacing_delay_ms cannot be negative")
	}
	if cfg.APIs.FranceTravail.BaseURL == "" {
		return fmt.Errorf("apis.francetravail.base_url is required")
	}
	if cfg.APIs.Geo.BaseURL == "" {
		return fmt.Errorf("apis.geo.base_url is required")
	}
	return nil
}
