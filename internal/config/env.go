package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects the cloud capability set the process runs against.
type Backend string

const (
	BackendAWS Backend = "aws"
	BackendGCP Backend = "gcp"
)

type Config struct {
	Backend Backend
	Port    string
	// PublicURL is the externally reachable base used in emailed links.
	PublicURL string
	LogLevel  string

	AwsProfile string
	AwsRegion  string
	// AwsAccessKey and AwsSecretKey pin static credentials; empty uses the default chain.
	AwsAccessKey string
	AwsSecretKey string
	GcpProject   string
	GcpRegion    string
	// GeminiAPIKey is used instead of application default credentials when set.
	GeminiAPIKey string

	// DBHost overrides the host stored in the secret store when set.
	DBHost      string
	DBPort      int
	DBName      string
	DBSSLMode   string
	SslCertPath string

	ModelID        string
	CookieSecret   string
	SecureCookie   bool
	AllowedOrigins []string
	ReaperInterval time.Duration
}

// LoadConfig loads .env (if present) and the environment and returns the config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		Backend:        Backend(strings.ToLower(getEnv("BACKEND", string(BackendAWS)))),
		Port:           getEnv("PORT", "8080"),
		PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AwsProfile:     getEnv("AWS_PROFILE", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-1"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		GcpProject:     getEnv("GCP_PROJECT", ""),
		GcpRegion:      getEnv("GCP_REGION", "us-central1"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		DBHost:         getEnv("DB_HOST", ""),
		DBPort:         getEnvInt("DB_PORT", 5432),
		DBName:         getEnv("DB_NAME", "genai"),
		DBSSLMode:      getEnv("DB_SSLMODE", "require"),
		SslCertPath:    getEnv("SSL_CERT_PATH", ""),
		ModelID:        getEnv("MODEL_ID", ""),
		CookieSecret:   getEnv("COOKIE_SECRET", ""),
		SecureCookie:   getEnvBool("SECURE_COOKIE", false),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
		ReaperInterval: getEnvDuration("REAPER_INTERVAL", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAWS:
		if c.AwsRegion == "" {
			return fmt.Errorf("AWS_REGION not set")
		}
	case BackendGCP:
		if c.GcpRegion == "" {
			return fmt.Errorf("GCP_REGION not set")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q (want aws or gcp)", c.Backend)
	}
	if (c.AwsAccessKey == "") != (c.AwsSecretKey == "") {
		return fmt.Errorf("AWS_ACCESS_KEY and AWS_SECRET_KEY must be set together")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT not set")
	}
	if c.ReaperInterval < 0 {
		return fmt.Errorf("REAPER_INTERVAL must not be negative")
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
