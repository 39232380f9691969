package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	ScraperAllowedHosts []string
	ScraperTimeout      time.Duration
	ScraperAttempts     uint

	FeedSize int

	GuestCookieName   string
	GuestCookieMaxAge time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=goodlist port=5432 sslmode=disable TimeZone=Asia/Tokyo")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_SECRET", "secret_key_change_me")
	v.SetDefault("JWT_SECRET", "jwt_secret_change_me")
	v.SetDefault("JWT_TTL", "72h")
	v.SetDefault("SCRAPER_ALLOWED_HOSTS", "www.dlsite.com")
	v.SetDefault("SCRAPER_TIMEOUT", "5s")
	v.SetDefault("SCRAPER_ATTEMPTS", 2)
	v.SetDefault("FEED_SIZE", 50)
	v.SetDefault("GUEST_COOKIE_NAME", "guest_id")
	v.SetDefault("GUEST_COOKIE_MAX_AGE", "8760h")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	return &Config{
		Port:                v.GetString("PORT"),
		Env:                 v.GetString("ENV"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTTTL:              v.GetDuration("JWT_TTL"),
		ScraperAllowedHosts: splitList(v.GetString("SCRAPER_ALLOWED_HOSTS")),
		ScraperTimeout:      v.GetDuration("SCRAPER_TIMEOUT"),
		ScraperAttempts:     v.GetUint("SCRAPER_ATTEMPTS"),
		FeedSize:            v.GetInt("FEED_SIZE"),
		GuestCookieName:     v.GetString("GUEST_COOKIE_NAME"),
		GuestCookieMaxAge:   v.GetDuration("GUEST_COOKIE_MAX_AGE"),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
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
