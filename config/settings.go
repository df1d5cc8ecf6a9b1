// config/settings.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goodsco/referidos_backend/utils"
	"github.com/joho/godotenv"
)

var logger = utils.PackageLogger("config")

// Settings is the process configuration read from the environment
type Settings struct {
	Env      string
	Port     string
	LogLevel string

	StoreBackend string
	MongoURI     string
	DBName       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	DefaultOwnerID       string
	DefaultOwnerEmail    string
	DefaultOwnerCacheTTL time.Duration
	LeadDedupPolicy      string
	AdminRoles           []string

	WebhookSecret   string
	PublicBaseURL   string
	WithdrawalPhone string
	CORSOrigins     []string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string
	FirebaseProjectID         string
}

// Development reports whether the process runs in a development environment
func (s *Settings) Development() bool {
	return s.Env == "development" || s.Env == "dev"
}

// Load reads .env (when present) and the environment
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found")
	}

	s := &Settings{
		Env:      getEnv("ENV", "production"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		MongoURI:     getEnv("MONGO_URI", os.Getenv("MONGODB_URI")),
		DBName:       getEnv("DB_NAME", "referidos"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("JWT_TTL", 72*time.Hour),

		DefaultOwnerID:       os.Getenv("DEFAULT_OWNER_ID"),
		DefaultOwnerEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_OWNER_EMAIL"))),
		DefaultOwnerCacheTTL: getDuration("DEFAULT_OWNER_CACHE_TTL", 5*time.Minute),
		LeadDedupPolicy:      getEnv("LEAD_DEDUP_POLICY", "owner_scoped"),
		AdminRoles:           getList("ADMIN_ROLES", []string{"ADMIN"}),

		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		WithdrawalPhone: os.Getenv("WITHDRAWAL_PHONE"),
		CORSOrigins:     getList("CORS_ALLOWED_ORIGINS", nil),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getInt("SMTP_PORT", 2525),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		FirebaseProjectID:         os.Getenv("FIREBASE_PROJECT_ID"),
	}
	return s
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid integer")
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logger.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid duration")
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
