package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	HTTP       ServerConfig
	MySQL      MySQLConfig
	Redis      RedisConfig
	Log        LogConfig
	Simulation SimulationConfig
	Settlement SettlementConfig
	Webhook    WebhookConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

// SimulationConfig forces settlement outcomes for integration tests; when
// disabled, outcomes are drawn from the configured success rates.
type SimulationConfig struct {
	Enabled       bool
	ForcedSuccess bool
	ForcedDelay   time.Duration
}

type SettlementConfig struct {
	Slots           int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	UPISuccessRate  float64
	CardSuccessRate float64
	MaxAttempts     int
	RetryDelay      time.Duration
}

type WebhookConfig struct {
	BackoffType  string
	BackoffDelay time.Duration
	MaxAttempts  int
	HTTPTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-gateway"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Simulation: SimulationConfig{
			Enabled:       getBoolEnv("SIMULATION_ENABLED", false),
			ForcedSuccess: getBoolEnv("SIMULATION_FORCED_SUCCESS", true),
			ForcedDelay:   getMillisEnv("SIMULATION_FORCED_DELAY_MS", time.Second),
		},
		Settlement: SettlementConfig{
			Slots:           getIntEnv("SETTLEMENT_SLOTS", 4),
			MinDelay:        getMillisEnv("SETTLEMENT_MIN_DELAY_MS", 5*time.Second),
			MaxDelay:        getMillisEnv("SETTLEMENT_MAX_DELAY_MS", 10*time.Second),
			UPISuccessRate:  getFloatEnv("SETTLEMENT_UPI_SUCCESS_RATE", 0.90),
			CardSuccessRate: getFloatEnv("SETTLEMENT_CARD_SUCCESS_RATE", 0.95),
			MaxAttempts:     getIntEnv("SETTLEMENT_MAX_ATTEMPTS", 3),
			RetryDelay:      getMillisEnv("SETTLEMENT_RETRY_DELAY_MS", time.Second),
		},
		Webhook: WebhookConfig{
			BackoffType:  getEnv("WEBHOOK_BACKOFF_TYPE", "exponential"),
			BackoffDelay: getMillisEnv("WEBHOOK_BACKOFF_DELAY_MS", 5*time.Second),
			MaxAttempts:  getIntEnv("WEBHOOK_MAX_ATTEMPTS", 5),
			HTTPTimeout:  getSecondsEnv("WEBHOOK_HTTP_TIMEOUT_SECONDS", 5*time.Second),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
