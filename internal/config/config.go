package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string
	JWTSecret          string
	JWTTTL             time.Duration
	DatabaseURL        string
	MongoURL           string
	MongoDatabase      string
	RedisURL           string
	AIProvider         string
	AIKey              string
	AIModel            string
	RapidAPIKey        string
	RapidAPIHost       string
	PostCount          int
	AITimeout          time.Duration
	ProfileTimeout     time.Duration
	MailTimeout        time.Duration
	LogLevel           string
	Env                string
}

// fileConfig mirrors the optional YAML overlay named by CONFIG_FILE.
type fileConfig struct {
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"ai"`
	Profile struct {
		Host      string `yaml:"host"`
		PostCount int    `yaml:"post_count"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"profile"`
	Mail struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"mail"`
	Storage struct {
		DatabaseURL   string `yaml:"database_url"`
		MongoURL      string `yaml:"mongo_url"`
		MongoDatabase string `yaml:"mongo_database"`
		RedisURL      string `yaml:"redis_url"`
	} `yaml:"storage"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var file fileConfig
	if path := GetEnv("CONFIG_FILE", ""); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	aiTimeout, err := parseDuration(firstNonEmpty(file.AI.Timeout, GetEnv("AI_TIMEOUT", "30s")))
	if err != nil {
		return nil, fmt.Errorf("invalid ai timeout: %w", err)
	}
	profileTimeout, err := parseDuration(firstNonEmpty(file.Profile.Timeout, GetEnv("PROFILE_TIMEOUT", "10s")))
	if err != nil {
		return nil, fmt.Errorf("invalid profile timeout: %w", err)
	}
	mailTimeout, err := parseDuration(firstNonEmpty(file.Mail.Timeout, GetEnv("MAIL_TIMEOUT", "15s")))
	if err != nil {
		return nil, fmt.Errorf("invalid mail timeout: %w", err)
	}
	jwtTTL, err := parseDuration(GetEnv("JWT_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	postCount := file.Profile.PostCount
	if postCount <= 0 {
		postCount = getEnvInt("POST_COUNT", 12)
	}

	return &Config{
		Port:               GetEnv("PORT", "8080"),
		BaseURL:            GetEnv("BASE_URL", "http://localhost:8080"),
		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		SessionSecret:      GetEnv("SESSION_SECRET", "175cd51c-b5e7-4218-81ed-e6832c8b53f1"),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTTTL:             jwtTTL,
		DatabaseURL:        firstNonEmpty(file.Storage.DatabaseURL, GetEnv("DATABASE_URL", "")),
		MongoURL:           firstNonEmpty(file.Storage.MongoURL, GetEnv("MONGO_URL", "")),
		MongoDatabase:      firstNonEmpty(file.Storage.MongoDatabase, GetEnv("MONGO_DATABASE", "mailto")),
		RedisURL:           firstNonEmpty(file.Storage.RedisURL, GetEnv("REDIS_URL", "")),
		AIProvider:         firstNonEmpty(file.AI.Provider, GetEnv("AI_PROVIDER", "gemini")),
		AIKey:              GetEnv("AI_API_KEY", ""),
		AIModel:            firstNonEmpty(file.AI.Model, GetEnv("AI_MODEL", "")),
		RapidAPIKey:        GetEnv("RAPID_API_KEY", ""),
		RapidAPIHost:       firstNonEmpty(file.Profile.Host, GetEnv("RAPID_API_HOST", "twitter241.p.rapidapi.com")),
		PostCount:          postCount,
		AITimeout:          aiTimeout,
		ProfileTimeout:     profileTimeout,
		MailTimeout:        mailTimeout,
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		Env:                GetEnv("ENV", "development"),
	}, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var file fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return &file, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", v)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.AIKey == "" {
		return fmt.Errorf("AI_API_KEY is required")
	}
	switch c.AIProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("AI_PROVIDER must be gemini or openai, got %q", c.AIProvider)
	}
	if c.PostCount <= 0 {
		return fmt.Errorf("POST_COUNT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
