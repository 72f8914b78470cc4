package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OpenAIAPIKey           string
	EmbeddingModel         string
	EmbeddingTimeout       time.Duration
	Stage1Threshold        float64
	SemanticHighThreshold  float64
	SemanticModerate       float64
	StructuralModerate     float64
	CheckLockTTL           time.Duration
	SSEKeepAlive           time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VERITAS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Veritas API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "veritas/submissions")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("plagiarism.stage1_threshold", 0.4)
	v.SetDefault("plagiarism.semantic_high", 0.8)
	v.SetDefault("plagiarism.semantic_moderate", 0.6)
	v.SetDefault("plagiarism.structural_moderate", 0.6)
	v.SetDefault("plagiarism.lock_ttl", "30s")
	v.SetDefault("sse.keepalive", "30s")

	embeddingTimeout, err := parseDuration(v.GetString("embedding.timeout"), "embedding timeout")
	if err != nil {
		return Config{}, err
	}

	lockTTL, err := parseDuration(v.GetString("plagiarism.lock_ttl"), "plagiarism lock ttl")
	if err != nil {
		return Config{}, err
	}

	sseKeepAlive, err := parseDuration(v.GetString("sse.keepalive"), "sse keepalive")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		EmbeddingModel:         v.GetString("embedding.model"),
		EmbeddingTimeout:       embeddingTimeout,
		Stage1Threshold:        v.GetFloat64("plagiarism.stage1_threshold"),
		SemanticHighThreshold:  v.GetFloat64("plagiarism.semantic_high"),
		SemanticModerate:       v.GetFloat64("plagiarism.semantic_moderate"),
		StructuralModerate:     v.GetFloat64("plagiarism.structural_moderate"),
		CheckLockTTL:           lockTTL,
		SSEKeepAlive:           sseKeepAlive,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

func parseDuration(value, label string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("invalid %s: empty", label)
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}

	return parsed, nil
}
