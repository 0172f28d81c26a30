// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cipherroom/cipherroom/cliparse"
)

// Open connects to the configured database. SQLite connections are capped
// at a single open conn: the driver allows only one writer at a time and
// the pool would otherwise surface busy errors under concurrent handlers.
func Open(cfg cliparse.Config) (*sql.DB, error) {
	switch cfg.DatabaseType {
	case "postgres":
		return sql.Open("postgres", cfg.DatabaseURL)
	case "sqlite":
		conn, err := sql.Open("sqlite", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// NextSeq draws the next value from the global feed sequence. Every ledger
// append and every poll state change takes one inside its own transaction,
// so feed cursors compare against strictly increasing, collision-free values
// regardless of wall-clock resolution.
func NextSeq(tx *sql.Tx) (int64, error) {
	var seq int64
	err := tx.QueryRow(`
		UPDATE feed_seq SET value = value + 1 WHERE id = 1 RETURNING value
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance feed sequence: %w", err)
	}
	return seq, nil
}

// The DDL below runs unchanged on both drivers: $N placeholders, BIGINT
// unix-milli timestamps, and no database-side time defaults.
const schema = `
-- Sessions: one row per live identity
CREATE TABLE IF NOT EXISTS session (
    identity TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    last_seen_at BIGINT NOT NULL
);

-- Global feed sequence (single row)
CREATE TABLE IF NOT EXISTS feed_seq (
    id INT PRIMARY KEY CHECK (id = 1),
    value BIGINT NOT NULL
);

-- Chat messages: append-only opaque envelopes. id doubles as the feed
-- sequence value assigned at insert.
CREATE TABLE IF NOT EXISTS message (
    id BIGINT PRIMARY KEY,
    cipher TEXT NOT NULL,
    iv TEXT NOT NULL,
    sender TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id BIGINT PRIMARY KEY,
    question TEXT NOT NULL,
    created_by TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
    created_at BIGINT NOT NULL,
    expires_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    updated_seq BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_updated_seq ON poll(updated_seq);
CREATE INDEX IF NOT EXISTS idx_poll_status ON poll(status);

-- Options: index-addressed, immutable after poll creation
CREATE TABLE IF NOT EXISTS poll_option (
    poll_id BIGINT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    idx INT NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (poll_id, idx)
);

-- Votes: the authoritative voter-to-choice mapping. Tallies are always
-- derived by counting these rows, never stored separately.
CREATE TABLE IF NOT EXISTS vote (
    poll_id BIGINT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    voter TEXT NOT NULL,
    option_idx INT NOT NULL,
    cast_at BIGINT NOT NULL,
    PRIMARY KEY (poll_id, voter)
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_id ON vote(poll_id);

INSERT INTO feed_seq (id, value) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`
