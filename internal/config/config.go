package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "sensorhub/libs/config"
)

// Config defines sensor hub configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"SENSORHUB_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"SENSORHUB_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"SENSORHUB_REDIS_ADDR"`
		Password string `yaml:"password" env:"SENSORHUB_REDIS_PASSWORD"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"SENSORHUB_JWT_SECRET"`
	} `yaml:"auth"`
	Ingest struct {
		QueueCapacity int `yaml:"queueCapacity" env:"SENSORHUB_QUEUE_CAPACITY"`
		HistoryLimit  int `yaml:"historyLimit" env:"SENSORHUB_HISTORY_LIMIT"`
	} `yaml:"ingest"`
	Rollup struct {
		Interval time.Duration `yaml:"interval" env:"SENSORHUB_ROLLUP_INTERVAL"`
	} `yaml:"rollup"`
	WS struct {
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"SENSORHUB_WS_WRITE_TIMEOUT"`
		PingInterval time.Duration `yaml:"pingInterval" env:"SENSORHUB_WS_PING_INTERVAL"`
	} `yaml:"ws"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Ingest.QueueCapacity = 100
	cfg.Ingest.HistoryLimit = 500
	cfg.Rollup.Interval = time.Hour
	cfg.WS.WriteTimeout = 10 * time.Second
	cfg.WS.PingInterval = 30 * time.Second

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
