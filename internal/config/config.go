package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Media     MediaConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	PublicDir      string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	MigrationsDir string
	SeedSample    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	WindowSeconds     int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // in minutes
}

type AuthConfig struct {
	Enabled       bool
	AdminUsername string
	AdminPassword string
}

type MediaConfig struct {
	UploadsDir string
	TempDir    string
	MaxBytes   int64
	FullMax    int // bounding box edge for the full-size derivative
	ThumbMax   int // bounding box edge for the thumbnail
	MaxPixels  int64
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("PUBLIC_DIR", "public")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("MIGRATIONS_DIR", "")
	viper.SetDefault("SEED_SAMPLE_DATA", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 60)
	viper.SetDefault("AUTH_ENABLED", false)
	viper.SetDefault("UPLOADS_DIR", "uploads")
	viper.SetDefault("UPLOAD_TEMP_DIR", "tmp/uploads")
	viper.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)
	viper.SetDefault("IMAGE_FULL_MAX", 1024)
	viper.SetDefault("IMAGE_THUMB_MAX", 300)
	viper.SetDefault("IMAGE_MAX_PIXELS", 50_000_000)
	viper.SetDefault("OTEL_SERVICE_NAME", "catalog-api")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			PublicDir:      viper.GetString("PUBLIC_DIR"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Database:      viper.GetString("DB_DATABASE"),
			Schema:        viper.GetString("DB_SCHEMA"),
			MigrationsDir: viper.GetString("MIGRATIONS_DIR"),
			SeedSample:    viper.GetBool("SEED_SAMPLE_DATA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           viper.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:     viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Auth: AuthConfig{
			Enabled:       viper.GetBool("AUTH_ENABLED"),
			AdminUsername: viper.GetString("ADMIN_USERNAME"),
			AdminPassword: viper.GetString("ADMIN_PASSWORD"),
		},
		Media: MediaConfig{
			UploadsDir: viper.GetString("UPLOADS_DIR"),
			TempDir:    viper.GetString("UPLOAD_TEMP_DIR"),
			MaxBytes:   viper.GetInt64("UPLOAD_MAX_BYTES"),
			FullMax:    viper.GetInt("IMAGE_FULL_MAX"),
			ThumbMax:   viper.GetInt("IMAGE_THUMB_MAX"),
			MaxPixels:  viper.GetInt64("IMAGE_MAX_PIXELS"),
		},
		Tracing: TracingConfig{
			Endpoint:    viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: viper.GetString("OTEL_SERVICE_NAME"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
