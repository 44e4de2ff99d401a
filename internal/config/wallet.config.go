package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type FXConfig struct {
	APIURL          string
	APIKey          string
	ProviderTimeout time.Duration
	ProviderRPS     float64
	CacheTTL        time.Duration
	BaseCurrency    string
	RefreshInterval time.Duration
	RefreshOnStart  bool
}

type JWTConfig struct {
	PublicKeyPath string
	Issuer        string
	Audience      string
}

type AppConfig struct {
	Env      string
	HTTPAddr string

	StoreDriver string // postgres | memory
	DB          DBConfig

	RedisAddr    string
	RedisPass    string
	KafkaBrokers []string

	EventsDriver     string // redis | kafka | none
	EventsKafkaTopic string

	FX FXConfig

	PendingMaxAge       time.Duration
	PendingReapInterval time.Duration
	DefaultCurrencies   []string

	JWT JWTConfig
}

func Load() AppConfig {
	return AppConfig{
		Env:         getEnv("APP_ENV", "production"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8030"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "fx_wallet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 50)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 10)),
		},
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPass:        getEnv("REDIS_PASS", ""),
		KafkaBrokers:     getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		EventsDriver:     getEnv("EVENTS_DRIVER", "none"),
		EventsKafkaTopic: getEnv("EVENTS_KAFKA_TOPIC", "wallet.transactions"),
		FX: FXConfig{
			APIURL:          getEnv("FX_API_URL", "https://v6.exchangerate-api.com/v6"),
			APIKey:          getEnv("FX_API_KEY", ""),
			ProviderTimeout: getEnvAsDuration("FX_PROVIDER_TIMEOUT", 10*time.Second),
			ProviderRPS:     getEnvAsFloat("FX_PROVIDER_RPS", 5),
			CacheTTL:        getEnvAsDuration("FX_CACHE_TTL", 5*time.Minute),
			BaseCurrency:    getEnv("FX_BASE_CURRENCY", "USD"),
			RefreshInterval: getEnvAsDuration("FX_REFRESH_INTERVAL", time.Hour),
			RefreshOnStart:  getEnvAsBool("FX_REFRESH_ON_START", true),
		},
		PendingMaxAge:       getEnvAsDuration("PENDING_TX_MAX_AGE", 10*time.Minute),
		PendingReapInterval: getEnvAsDuration("PENDING_REAP_INTERVAL", time.Minute),
		DefaultCurrencies:   getEnvSlice("WALLET_DEFAULT_CURRENCIES", []string{"NGN", "USD", "EUR", "GBP"}),
		JWT: JWTConfig{
			PublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:        getEnv("JWT_ISSUER", ""),
			Audience:      getEnv("JWT_AUDIENCE", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
