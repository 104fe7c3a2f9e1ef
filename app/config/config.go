package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment EnvironmentConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cipher      CipherConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Tracing     TracingConfig
}

type EnvironmentConfig struct {
	Current string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CipherConfig holds the at-rest encryption key. There is no default:
// operating without an explicit key is worse than refusing to start.
// Rotating the key invalidates every previously stored ciphertext.
type CipherConfig struct {
	Key string
}

type AuthConfig struct {
	// SecretKey is the HMAC secret shared with the external identity
	// provider. Required enforces Bearer tokens on the REST surface.
	SecretKey string
	Required  bool
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func LoadConfig() (config Config, err error) {
	viper.SetConfigName("app")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("environment.current", "development")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readtimeout", 15)
	viper.SetDefault("server.writetimeout", 15)
	viper.SetDefault("server.idletimeout", 60)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "jbnet")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.secretkey", "")
	viper.SetDefault("auth.required", false)
	viper.SetDefault("ratelimit.maxrequests", 100)
	viper.SetDefault("ratelimit.window", time.Minute)
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	viper.SetDefault("tracing.servicename", "jbnet-chat")

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Cipher.Key == "" {
		return config, fmt.Errorf("cipher.key is required: refusing to start without an at-rest encryption key")
	}
	if len(config.Cipher.Key) != 32 {
		return config, fmt.Errorf("cipher.key must be exactly 32 bytes, got %d", len(config.Cipher.Key))
	}

	return config, nil
}
