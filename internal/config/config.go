package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Ledgermatch"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"ledgermatch"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// HMAC secret used to verify bearer tokens issued by the outer
		// platform. Token issuance lives outside this service.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	TUI struct {
		// The TUI talks to the database directly and needs an explicit
		// user to scope queries by.
		UserID string `envconfig:"TUI_USER_ID"`
	}

	Import struct {
		MatchingEnabled    bool `envconfig:"MATCHING_ENABLED" default:"true"`
		AutoMergeThreshold int  `envconfig:"AUTO_MERGE_THRESHOLD" default:"90"`
		ChunkSize          int  `envconfig:"IMPORT_CHUNK_SIZE" default:"100"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
