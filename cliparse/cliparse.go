package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultPort         = 3917
	DefaultSessionTTL   = 15 * time.Minute
	DefaultPollDuration = time.Hour
	DefaultMaxBodyBytes = 6 << 20
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	SessionTTL   time.Duration
	PollDuration time.Duration
	MaxBodyBytes int64
}

// ParseFlags validates flags and fills in environment fallbacks
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("cipherroom", flag.ContinueOnError)

	// Network and storage config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Tunables (prefer env variables, but allow CLI for dev)
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Sliding session lifetime")
	fs.DurationVar(&cfg.PollDuration, "poll-duration", 0, "Poll open window")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body", 0, "Request body size limit in bytes")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (want sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.SessionTTL == 0 {
		ttl, err := durationEnv("SESSION_TTL", DefaultSessionTTL)
		if err != nil {
			return Config{}, err
		}
		cfg.SessionTTL = ttl
	}

	if cfg.PollDuration == 0 {
		d, err := durationEnv("POLL_DURATION", DefaultPollDuration)
		if err != nil {
			return Config{}, err
		}
		cfg.PollDuration = d
	}

	if cfg.MaxBodyBytes == 0 {
		if raw := os.Getenv("MAX_BODY_BYTES"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				return Config{}, errors.New("invalid MAX_BODY_BYTES env variable")
			}
			cfg.MaxBodyBytes = n
		} else {
			cfg.MaxBodyBytes = DefaultMaxBodyBytes
		}
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return d, nil
}
