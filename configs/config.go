package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    int
	DataDir string
	LogDir  string

	JWTSecret    string
	JWTExpiresIn time.Duration

	OTPTTL             time.Duration
	OTPDevMode         bool
	OTPRequireDelivery bool

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool
	FromEmail  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	SyncMode        string
	CORSOrigins     string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// stay quiet under go test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using environment and default values")
		}
	}

	devMode := getBool("OTP_DEV_MODE", false)

	return Config{
		Port:    getInt("PORT", 5002),
		DataDir: getString("DATA_DIR", "data"),
		LogDir:  getString("LOG_DIR", "logs"),

		JWTSecret:    getString("JWT_SECRET", "dev-secret"),
		JWTExpiresIn: getDuration("JWT_EXPIRES_IN", 2*time.Hour),

		OTPTTL:             getDuration("OTP_TTL", 10*time.Minute),
		OTPDevMode:         devMode,
		OTPRequireDelivery: getBool("OTP_REQUIRE_DELIVERY", !devMode),

		SMTPHost:   os.Getenv("SMTP_HOST"),
		SMTPPort:   getInt("SMTP_PORT", 587),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		SMTPSecure: getBool("SMTP_SECURE", false),
		FromEmail:  firstNonEmpty(os.Getenv("FROM_EMAIL"), os.Getenv("SMTP_FROM"), os.Getenv("SMTP_USER"), "no-reply@tasktracker.local"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		SyncMode:        strings.ToLower(getString("SYNC_MODE", "replace")),
		CORSOrigins:     getString("CORS_ORIGINS", "*"),
		RateLimitMax:    getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func getString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid value for %s: %v", key, err)
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("invalid value for %s: %v", key, err)
		return fallback
	}
	return parsed
}

// getDuration accepts Go duration strings ("2h", "90s"); a bare number is read as seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid value for %s: %v", key, err)
		return fallback
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
