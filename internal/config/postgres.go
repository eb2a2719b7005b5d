package config

import (
	"fmt"
	"strings"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string
	SSLMode  string
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     GetEnvWithDefault("POSTGRES_HOST", "localhost"),
		Port:     GetEnvWithDefault("POSTGRES_PORT", "5432"),
		User:     GetEnvWithDefault("POSTGRES_USER", "postgres"),
		Password: GetEnvWithDefault("POSTGRES_PASS", "postgres"),
		DbName:   GetEnvWithDefault("DB_NAME", "shelf"),
		SSLMode:  GetEnvWithDefault("POSTGRES_SSLMODE", "disable"),
	}
}

// PgConnectionString is the URL form used by the migrator.
func (cfg PostgresConfig) PgConnectionString(options ...string) string {
	options = append(options, "sslmode="+cfg.sslMode())
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName, strings.Join(options, "&"))
}

// String is the keyword/value form used by pgxpool.
func (cfg PostgresConfig) String() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName, cfg.sslMode())
}

func (cfg PostgresConfig) sslMode() string {
	if cfg.SSLMode == "" {
		return "disable"
	}
	return cfg.SSLMode
}
