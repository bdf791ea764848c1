package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	// Port for the loopback status server.
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	// Path of the on-device SQLite file.
	Path string `mapstructure:"path"`
}

type SyncConfig struct {
	RemoteURL        string        `mapstructure:"remote_url"`
	Interval         time.Duration `mapstructure:"interval"`
	BatchSize        int           `mapstructure:"batch_size"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	RetryCeiling     int           `mapstructure:"retry_ceiling"`
	BatchesPerSecond float64       `mapstructure:"batches_per_second"`
}

type CacheConfig struct {
	FacilityTTL time.Duration `mapstructure:"facility_ttl"`
	SchemeTTL   time.Duration `mapstructure:"scheme_ttl"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8600)
	viper.SetDefault("database.path", "sahayak.db")
	viper.SetDefault("sync.interval", "15m")
	viper.SetDefault("sync.batch_size", 50)
	viper.SetDefault("sync.batch_timeout", "30s")
	viper.SetDefault("sync.retry_ceiling", 5)
	viper.SetDefault("sync.batches_per_second", 1.0)
	viper.SetDefault("cache.facility_ttl", "5m")
	viper.SetDefault("cache.scheme_ttl", "10m")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
