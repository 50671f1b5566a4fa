package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListingURL string
	StateFile  string

	CheckIntervalSec int
	ScrollSettleMs   int
	MaxScrolls       int
	WaitTimeoutSec   int

	SMTPServer    string
	SMTPPort      int
	EmailFrom     string
	EmailPassword string
	EmailTo       []string

	// ArchiveDSN enables the Postgres snapshot archive when non-empty.
	ArchiveDSN string

	ChromeBin string
	Debug     bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		ListingURL: getEnv("STUYTOWN_URL",
			"https://www.stuytown.com/nyc-apartments-for-rent/?Order=low-price&Bedrooms=1-2"),
		StateFile: getEnv("STATE_FILE", "apartments.json"),

		CheckIntervalSec: getEnvInt("CHECK_INTERVAL_SEC", 30),
		ScrollSettleMs:   getEnvInt("SCROLL_SETTLE_MS", 2000),
		MaxScrolls:       getEnvInt("MAX_SCROLLS", 50),
		WaitTimeoutSec:   getEnvInt("WAIT_TIMEOUT_SEC", 10),

		SMTPServer:    getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		EmailTo:       getEnvList("EMAIL_TO"),

		ArchiveDSN: getEnv("ARCHIVE_DSN", ""),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Debug:     getEnv("DEBUG", "") != "",
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvList parses a comma-separated environment variable into a slice,
// dropping empty entries.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
