// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session provides bearer token generation and the session registry.

# Tokens

Session tokens are random 24-byte (192-bit) secrets:

	token, err := session.GenerateToken()

Tokens are URL-safe base64 encoded without padding. They are bearer
credentials, not passwords: the display name is the partition key, and
"one token per name" gives a simple single-active-device model without
real authentication.

# Registry

Sessions live in the session table, one row per identity, so the registry
survives restarts and works across replicas:

	token, err := session.Start(db, "alice", cfg.SessionTTL)
	ok := session.Validate(db, "alice", token, cfg.SessionTTL)

Start fails with ErrConflict while a live session exists for the identity
and silently evicts a stale one. Validate fails closed on any missing,
mismatched, or stale row; a stale row is deleted on observation, and a
successful validation refreshes last_seen_at (sliding liveness, not
absolute expiry from creation).

Token comparison uses hmac.Equal to stay constant-time.
*/
package session
