// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3917)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - SessionTTL: Sliding session lifetime (default: 15m)
  - PollDuration: How long a poll stays open (default: 1h)
  - MaxBodyBytes: Request body size gate (default: 6 MiB)

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	--session-ttl   Sliding session lifetime
	--poll-duration Poll open window
	--max-body      Body size limit in bytes

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	SESSION_TTL    → --session-ttl
	POLL_DURATION  → --poll-duration
	MAX_BODY_BYTES → --max-body

CLI flags take precedence over environment variables. Durations use Go
syntax ("90s", "15m", "1h").

# Validation

ParseFlags returns an error if DATABASE_URL is missing, if the database
type is not sqlite or postgres, or if a duration or size cannot be parsed.
*/
package cliparse
