package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	SearchAPI SearchAPIConfig
	Search    SearchConfig
	Analytics AnalyticsConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	SessionCookie  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	Enabled      bool
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
	QueryBy    string
}

// SearchAPIConfig selects and configures the upstream hybrid search service.
type SearchAPIConfig struct {
	Backend        string // "http" or "typesense"
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	AIInstructions string
}

// SearchConfig holds the site-operator ranking settings.
type SearchConfig struct {
	DefaultLimit          int
	MaxLimit              int
	CandidateLimit        int
	ProtectedCount        int
	RelevanceThreshold    float64
	PriorityOrder         []string
	NavigationalKeywords  []string
	TransactionalKeywords []string
}

// AnalyticsConfig holds search analytics settings
type AnalyticsConfig struct {
	Enabled       bool
	CacheEnabled  bool
	AggregateTTL  time.Duration
	RecentTTL     time.Duration
	RetentionDays int
	ClickWindow   time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			SessionCookie:  getEnv("SESSION_COOKIE_NAME", "ai_search_session"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "ai_search"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "aisearch:"),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "site_content"),
			QueryBy:    getEnv("TYPESENSE_QUERY_BY", "title,excerpt,content"),
		},
		SearchAPI: SearchAPIConfig{
			Backend:        strings.ToLower(getEnv("SEARCH_API_BACKEND", "http")),
			BaseURL:        getEnv("SEARCH_API_URL", "http://localhost:8000"),
			APIKey:         getEnv("SEARCH_API_KEY", ""),
			Timeout:        getEnvAsDuration("SEARCH_API_TIMEOUT", 15*time.Second),
			AIInstructions: getEnv("SEARCH_AI_INSTRUCTIONS", ""),
		},
		Search: SearchConfig{
			DefaultLimit:       getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:           getEnvAsInt("SEARCH_MAX_LIMIT", 50),
			CandidateLimit:     getEnvAsInt("SEARCH_CANDIDATE_LIMIT", 100),
			ProtectedCount:     getEnvAsInt("SEARCH_PROTECTED_COUNT", 3),
			RelevanceThreshold: getEnvAsFloat("SEARCH_RELEVANCE_THRESHOLD", 0.85),
			PriorityOrder:      getEnvAsList("SEARCH_PRIORITY_ORDER", []string{"page", "post"}),
			NavigationalKeywords: getEnvAsList("SEARCH_NAVIGATIONAL_KEYWORDS", []string{
				"contact", "about", "login", "team", "location", "careers", "sign in", "address",
			}),
			TransactionalKeywords: getEnvAsList("SEARCH_TRANSACTIONAL_KEYWORDS", []string{
				"buy", "download", "order", "hire", "price", "quote", "book", "subscribe",
			}),
		},
		Analytics: AnalyticsConfig{
			Enabled:       getEnvAsBool("ANALYTICS_ENABLED", true),
			CacheEnabled:  getEnvAsBool("ANALYTICS_CACHE_ENABLED", true),
			AggregateTTL:  getEnvAsDuration("ANALYTICS_AGGREGATE_TTL", time.Hour),
			RecentTTL:     getEnvAsDuration("ANALYTICS_RECENT_TTL", 5*time.Minute),
			RetentionDays: getEnvAsInt("ANALYTICS_RETENTION_DAYS", 90),
			ClickWindow:   getEnvAsDuration("ANALYTICS_CLICK_WINDOW", 30*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ai-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SearchAPI.Backend {
	case "http", "typesense":
	default:
		return fmt.Errorf("unsupported SEARCH_API_BACKEND %q", c.SearchAPI.Backend)
	}
	if c.Search.MaxLimit < 1 {
		return fmt.Errorf("SEARCH_MAX_LIMIT must be positive, got %d", c.Search.MaxLimit)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be within [1,%d], got %d", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.ProtectedCount < 0 {
		return fmt.Errorf("SEARCH_PROTECTED_COUNT must not be negative, got %d", c.Search.ProtectedCount)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
