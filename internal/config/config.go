package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the kiosk's runtime configuration. Values come from a TOML file,
// with environment variables taking precedence so containerized deployments
// can override without editing the file.
type Config struct {
	Name   string `toml:"name"`
	Listen string `toml:"listen"`

	Storage StorageConfig `toml:"storage"`
	Kafka   KafkaConfig   `toml:"kafka"`
	Admin   AdminConfig   `toml:"admin"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// DSN is the sqlite file path or the postgres connection string.
	DSN string `toml:"dsn"`
}

type KafkaConfig struct {
	// Enabled turns outbound notification publishing on.
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type AdminConfig struct {
	// PasswordHash is the bcrypt hash of the admin password.
	PasswordHash string `toml:"password_hash"`
	JWTSecret    string `toml:"jwt_secret"`
}

func defaults() Config {
	return Config{
		Name:   "minibar",
		Listen: ":8080",
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "minibar.db",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "minibar-events",
		},
	}
}

// Load reads the config file at path (missing file is fine, defaults apply)
// and layers environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.Admin.JWTSecret != "" && len(cfg.Admin.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("admin jwt_secret must be at least 32 characters")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Listen = getEnv("MINIBAR_LISTEN", cfg.Listen)
	cfg.Storage.Driver = getEnv("MINIBAR_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv("MINIBAR_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
		cfg.Kafka.Enabled = true
	}
	cfg.Admin.PasswordHash = getEnv("MINIBAR_ADMIN_PASSWORD_HASH", cfg.Admin.PasswordHash)
	cfg.Admin.JWTSecret = getEnv("MINIBAR_JWT_SECRET", cfg.Admin.JWTSecret)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
