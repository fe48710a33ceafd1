package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	CookieSecure     bool

	CORSOrigins []string

	AdminUsername string
	AdminPassword string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LoginMaxAttempts int
	LoginWindow      time.Duration

	UploadDir      string
	UploadMaxBytes int64

	DefaultLang string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	env := EnvDefault("APP_ENV", "development")

	return Config{
		Env:         env,
		ServiceName: EnvDefault("SERVICE_NAME", "blog-api"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:       EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:     env == "production" || EnvBoolDefault("COOKIE_SECURE", false),

		CORSOrigins: CSV(EnvDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "blogs"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          EnvIntDefault("REDIS_DB", 0),
		LoginMaxAttempts: EnvIntDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      EnvDurationDefault("LOGIN_WINDOW", 15*time.Minute),

		UploadDir:      EnvDefault("UPLOAD_DIR", "uploads"),
		UploadMaxBytes: int64(EnvIntDefault("UPLOAD_MAX_BYTES", 5<<20)),

		DefaultLang: EnvDefault("DEFAULT_LANG", "en"),
	}
}

func (c Config) Production() bool { return c.Env == "production" }

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
