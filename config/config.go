package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv pulls a local .env into the process environment if one exists.
// Missing file is fine; deployments set real env vars.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
}

// Config is everything read from the environment at boot.
type Config struct {
	Port      string
	WebOrigin string

	RedisAddr string
	RedisPwd  string

	SessionTTL time.Duration

	RazorpayKeyID  string
	RazorpaySecret string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	ContactInbox string
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() Config {
	ttl := 24 * time.Hour
	if sec := os.Getenv("SESSION_TTL_SECONDS"); sec != "" {
		if d, err := time.ParseDuration(sec + "s"); err == nil {
			ttl = d
		}
	}
	smtpPort := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			smtpPort = n
		}
	}
	return Config{
		Port:      get("PORT", "3001"),
		WebOrigin: get("WEB_ORIGIN", "http://localhost:3000"),

		RedisAddr: get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:  os.Getenv("REDIS_PASSWORD"),

		SessionTTL: ttl,

		RazorpayKeyID:  os.Getenv("RAZORPAY_KEY_ID"),
		RazorpaySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		SMTPHost: get("SMTP_HOST", "127.0.0.1"),
		SMTPPort: smtpPort,
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASSWORD"),

		ContactInbox: get("CONTACT_INBOX", "support@borrowbuddy.local"),
	}
}
