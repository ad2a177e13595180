package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sujalbistaa/raisehand/internal/ratelimit"
)

type Config struct {
	Addr           string
	SnapshotURL    string
	CORSOrigin     string
	AdminToken     string
	AllowedOrigins []string
	Rules          map[ratelimit.Class]ratelimit.Rule
	SweepInterval  time.Duration
	ConnectRPS     float64
	ConnectBurst   int
}

// Load reads configuration from flags, falling back to environment variables.
// Flags win over the environment.
func Load(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("raisehand", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "HTTP listen address (default :$PORT or :8080)")
	fs.StringVar(&cfg.SnapshotURL, "snapshot", "", "Snapshot store: file://, sqlite:// or postgres:// URL")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		if _, err := strconv.Atoi(port); err != nil {
			return Config{}, errors.New("invalid PORT env variable")
		}
		cfg.Addr = ":" + port
	}

	if cfg.SnapshotURL == "" {
		cfg.SnapshotURL = getenv("SNAPSHOT_URL", "file://questions.json")
	}
	cfg.CORSOrigin = getenv("CORS_ORIGIN", "*") // allow all for local dev
	cfg.AdminToken = os.Getenv("X_ADMIN_TOKEN")
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.Rules = ratelimit.DefaultRules()
	for class, key := range map[ratelimit.Class]string{
		ratelimit.Questions: "RATE_QUESTIONS",
		ratelimit.Upvotes:   "RATE_UPVOTES",
		ratelimit.Teacher:   "RATE_TEACHER",
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		rule, err := ratelimit.ParseRule(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
		cfg.Rules[class] = rule
	}

	var err error
	if cfg.SweepInterval, err = durationEnv("RATE_SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ConnectRPS, err = floatEnv("WS_CONNECT_RPS", 1); err != nil {
		return Config{}, err
	}
	if cfg.ConnectBurst, err = intEnv("WS_CONNECT_BURST", 10); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}
