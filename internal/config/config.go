package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URI string
}

type RedisConfig struct {
	// URI is optional; without it the hub runs single-instance and
	// presence tracking is disabled.
	URI string
}

type JWTConfig struct {
	Secret string
}

type KafkaConfig struct {
	// Brokers is optional; without it message notifications are dropped.
	Brokers []string
	Topic   string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("DM_HOST", "")
		viper.SetDefault("DM_PORT", "8080")
		viper.SetDefault("DM_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("DM_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("DM_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("DM_JWT_SECRET", "secret")
		viper.SetDefault("DATABASE_URL", "host=localhost user=postgres password=password dbname=postgres port=5432 sslmode=disable")
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("KAFKA_BROKERS", "")
		viper.SetDefault("KAFKA_TOPIC", "notifications")
		viper.AutomaticEnv()

		var brokers []string
		if raw := viper.GetString("KAFKA_BROKERS"); raw != "" {
			for _, b := range strings.Split(raw, ",") {
				brokers = append(brokers, strings.TrimSpace(b))
			}
		}

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("DM_HOST"),
				Port:         viper.GetString("DM_PORT"),
				ReadTimeout:  viper.GetDuration("DM_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("DM_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("DM_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				URI: viper.GetString("DATABASE_URL"),
			},
			Redis: RedisConfig{
				URI: viper.GetString("REDIS_URL"),
			},
			JWT: JWTConfig{
				Secret: viper.GetString("DM_JWT_SECRET"),
			},
			Kafka: KafkaConfig{
				Brokers: brokers,
				Topic:   viper.GetString("KAFKA_TOPIC"),
			},
		}
	})

	return ConfigInstance, nil
}
