// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"crypto/hmac"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConflict is returned by Start when a live, unexpired session already
// exists for the identity.
var ErrConflict = errors.New("session already active for this identity")

// GenerateToken creates a random secure bearer token for a session
func GenerateToken() (string, error) {
	b := make([]byte, 24) // 24 bytes = 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// Start creates a session for identity and returns its token. At most one
// live session may exist per identity: a live row means ErrConflict, a stale
// row is deleted and superseded.
func Start(db *sql.DB, identity string, ttl time.Duration) (string, error) {
	now := time.Now().UnixMilli()

	var lastSeen int64
	err := db.QueryRow(`
		SELECT last_seen_at FROM session WHERE identity = $1
	`, identity).Scan(&lastSeen)

	switch {
	case err == nil:
		if now-lastSeen < ttl.Milliseconds() {
			return "", ErrConflict
		}
		// Stale record: the old token is invalidated here. The eviction is
		// pinned to the observed last_seen_at so a racer working from a
		// superseded snapshot deletes nothing and its INSERT below lands on
		// the primary-key conflict instead of destroying the winner's row.
		if _, err := db.Exec(`
			DELETE FROM session WHERE identity = $1 AND last_seen_at = $2
		`, identity, lastSeen); err != nil {
			return "", fmt.Errorf("failed to evict stale session: %w", err)
		}
	case err == sql.ErrNoRows:
		// no prior session
	default:
		return "", fmt.Errorf("failed to query session: %w", err)
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = db.Exec(`
		INSERT INTO session (identity, token, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
	`, identity, token, now, now)

	if err != nil {
		// Two concurrent starts for the same identity race on the primary
		// key; the loser reads as a conflict.
		if isDuplicateKey(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	return token, nil
}

// Validate reports whether (identity, token) names a live session. It fails
// closed: no row, token mismatch, or a stale row all return false. A stale
// row is deleted as a side effect; a successful validation refreshes
// last_seen_at, so liveness is a sliding window.
func Validate(db *sql.DB, identity, token string, ttl time.Duration) bool {
	now := time.Now().UnixMilli()

	var stored string
	var lastSeen int64
	err := db.QueryRow(`
		SELECT token, last_seen_at FROM session WHERE identity = $1
	`, identity).Scan(&stored, &lastSeen)

	if err != nil {
		return false
	}

	if now-lastSeen >= ttl.Milliseconds() {
		_, _ = db.Exec(`DELETE FROM session WHERE identity = $1`, identity)
		return false
	}

	if !hmac.Equal([]byte(stored), []byte(token)) {
		return false
	}

	_, err = db.Exec(`
		UPDATE session SET last_seen_at = $1 WHERE identity = $2
	`, now, identity)
	return err == nil
}

func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
