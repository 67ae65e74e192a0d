package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	Store       string
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool

	SecretKey     string
	SecureCookies bool
	SessionTTL    time.Duration
	PostsPerPage  int
	IndexCacheTTL time.Duration

	RedisAddr string

	MediaRoot   string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	KafkaBrokers []string
	KafkaTopic   string

	FirebaseCredentialsPath string

	OTELEndpoint    string
	OTELServiceName string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] .env not loaded: %v", err)
	}

	cfg := &Config{
		AppPort:     getEnv("APP_PORT", ":8000"),
		Store:       getEnv("STORE", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "file::memory:"),
		AutoMigrate: getBool("AUTO_MIGRATE", false),

		SecretKey:     getEnv("SECRET_KEY", ""),
		SecureCookies: getBool("SECURE_COOKIES", false),
		SessionTTL:    getDuration("SESSION_TTL", 14*24*time.Hour),
		PostsPerPage:  getInt("POSTS_PER_PAGE", 10),
		IndexCacheTTL: getDuration("INDEX_CACHE_TTL", 20*time.Second),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		MediaRoot:   getEnv("MEDIA_ROOT", "media"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minio"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minio123"),
		S3Bucket:    getEnv("S3_BUCKET_NAME", "yatube-media"),
		S3UseSSL:    getBool("S3_USE_SSL", false),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "yatube.events"),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "yatube"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "yatube"),
		)
	}
	return cfg
}

var ErrMissingSecret = errors.New("SECRET_KEY must be set")

// Validate checks settings the server cannot start without. A sqlite run
// without SECRET_KEY gets a random key, so sessions end on restart.
func (c *Config) Validate() error {
	switch c.Store {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.SecretKey != "" {
		return nil
	}
	if c.Store != "sqlite" {
		return ErrMissingSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}
	c.SecretKey = hex.EncodeToString(buf)
	log.Println("[Config] SECRET_KEY not set, using a random key for this sqlite run")
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("AppPort=%s, Store=%s, PostsPerPage=%d, IndexCacheTTL=%s, Redis=%t, S3=%t, Kafka=%t, FCM=%t",
		c.AppPort, c.Store, c.PostsPerPage, c.IndexCacheTTL,
		c.RedisAddr != "", c.S3Endpoint != "", len(c.KafkaBrokers) > 0, c.FirebaseCredentialsPath != "")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
