package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars and an optional YAML file.
type Config struct {
	Port        string
	BindHost    string
	Store       string
	DatabaseURL string
	RedisAddr   string
	SessionKey  string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string
	LogFormat   string
	LogLevel    string
}

// fileConfig mirrors Config for the YAML overlay. Environment variables win.
type fileConfig struct {
	Port        string   `yaml:"port"`
	BindHost    string   `yaml:"bind_host"`
	Store       string   `yaml:"store"`
	DatabaseURL string   `yaml:"database_url"`
	RedisAddr   string   `yaml:"redis_addr"`
	SessionKey  string   `yaml:"session_key"`
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTIssuer   string   `yaml:"jwt_issuer"`
	JWTTTL      int      `yaml:"jwt_ttl_minutes"`
	CORSOrigins []string `yaml:"cors_allowed_origins"`
	LogFormat   string   `yaml:"log_format"`
	LogLevel    string   `yaml:"log_level"`
}

// Load reads configuration from the environment, layered over the YAML file
// named by FARMCONNECT_CONFIG, and performs minimal validation.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("FARMCONNECT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), fallback(file.Port, "8080")),
		BindHost:    fallback(os.Getenv("BIND_HOST"), fallback(file.BindHost, "127.0.0.1")),
		Store:       strings.ToLower(fallback(os.Getenv("STORE"), fallback(file.Store, StorePostgres))),
		DatabaseURL: fallback(os.Getenv("DATABASE_URL"), file.DatabaseURL),
		RedisAddr:   fallback(os.Getenv("REDIS_ADDR"), file.RedisAddr),
		SessionKey:  fallback(os.Getenv("SESSION_KEY"), fallback(file.SessionKey, "farmconnect:session")),
		JWTSecret:   fallback(os.Getenv("JWT_SECRET"), file.JWTSecret),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), fallback(file.JWTIssuer, "farmconnect")),
		LogFormat:   strings.ToLower(fallback(os.Getenv("LOG_FORMAT"), fallback(file.LogFormat, "json"))),
		LogLevel:    strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), fallback(file.LogLevel, "info"))),
	}

	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if strings.TrimSpace(origins) == "" && len(file.CORSOrigins) > 0 {
		origins = strings.Join(file.CORSOrigins, ",")
	}
	cfg.CORSOrigins = parseCSV(fallback(origins, "*"))

	defaultTTL := "60"
	if file.JWTTTL > 0 {
		defaultTTL = strconv.Itoa(file.JWTTTL)
	}
	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), defaultTTL)
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q", StorePostgres, StoreMemory)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return net.JoinHostPort(c.BindHost, c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
