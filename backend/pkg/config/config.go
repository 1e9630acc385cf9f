package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	GraphStore = "store"
	GraphNeo4j = "neo4j"
)

// Config holds all application configuration
type Config struct {
	// App
	Port        string
	Env         string
	LogLevel    string
	ServiceName string

	// Document store
	StoreBackend      string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	// Follow graph
	GraphBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Coordination and fan-out (optional)
	RedisAddr     string
	RedisPassword string
	NatsURL       string

	// Sessions
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// HTTP
	AllowedOrigins  []string
	DefaultPageSize int
	MaxPageSize     int

	// Identity providers: provider name -> userinfo endpoint
	UserInfoURLs map[string]string

	// Tracing, disabled when empty
	OtelEndpoint string
}

// fileOverlay is the optional YAML document named by CONFIG_FILE
type fileOverlay struct {
	AllowedOrigins []string          `yaml:"allowed_origins"`
	UserInfoURLs   map[string]string `yaml:"userinfo_urls"`
	Pagination     struct {
		Default int `yaml:"default"`
		Max     int `yaml:"max"`
	} `yaml:"pagination"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		ServiceName:       getEnv("SERVICE_NAME", "thinkflow"),
		StoreBackend:      getEnv("STORE_BACKEND", StoreMongo),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "thinkflow"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", false),
		GraphBackend:      getEnv("GRAPH_BACKEND", GraphStore),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		NatsURL:           getEnv("NATS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "thinkflow"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		DefaultPageSize:   getEnvInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:       getEnvInt("MAX_PAGE_SIZE", 100),
		OtelEndpoint:      getEnv("OTEL_ENDPOINT", ""),
		UserInfoURLs: map[string]string{
			"google":   getEnv("GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
			"facebook": getEnv("FACEBOOK_USERINFO_URL", "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overlays the settings present in a YAML file; absent keys keep their env values
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if len(overlay.AllowedOrigins) > 0 {
		c.AllowedOrigins = overlay.AllowedOrigins
	}
	for provider, url := range overlay.UserInfoURLs {
		c.UserInfoURLs[strings.ToLower(provider)] = url
	}
	if overlay.Pagination.Default > 0 {
		c.DefaultPageSize = overlay.Pagination.Default
	}
	if overlay.Pagination.Max > 0 {
		c.MaxPageSize = overlay.Pagination.Max
	}
	return nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return apperrors.NewConfigMissingRequired("JWT_SECRET")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return apperrors.NewConfigValidationFailed("JWT_SECRET", "must be at least 32 bytes in production")
	}

	switch c.StoreBackend {
	case StoreMongo:
		if c.MongoURI == "" {
			return apperrors.NewConfigMissingRequired("MONGO_URI")
		}
		if c.MongoDatabase == "" {
			return apperrors.NewConfigMissingRequired("MONGO_DATABASE")
		}
	case StoreMemory:
		if c.IsProduction() {
			return apperrors.NewConfigValidationFailed("STORE_BACKEND", "memory store is not allowed in production")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}

	switch c.GraphBackend {
	case GraphStore:
	case GraphNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	default:
		return apperrors.NewConfigValidationFailed("GRAPH_BACKEND", fmt.Sprintf("unknown backend %q", c.GraphBackend))
	}

	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return apperrors.NewConfigValidationFailed("DEFAULT_PAGE_SIZE", "must be positive and not exceed MAX_PAGE_SIZE")
	}
	if c.TokenTTL <= 0 {
		return apperrors.NewConfigValidationFailed("TOKEN_TTL", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
