// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the cipherroom API server.

Cipherroom is a single-room end-to-end-encrypted chat service with built-in
multiple-choice polls. Clients encrypt message payloads before sending; the
server stores opaque ciphertext envelopes, plaintext poll metadata, and
serves one merged, cursor-based synchronization feed.

# Starting the Server

The server requires a database URL via environment variable or CLI flag:

	DATABASE_URL=file:cipherroom.db go run main.go

Or with flags:

	go run main.go -p 3917 -t postgres -d "postgres://..."

A .env file in the working directory is loaded automatically.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string

Optional settings:

  - PORT (-p): Server port (default: 3917)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - SESSION_TTL: Sliding session lifetime (default: 15m)
  - POLL_DURATION: Poll open window (default: 1h)
  - MAX_BODY_BYTES: Request body size gate (default: 6 MiB)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (sessions, messages, polls, votes, feed)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, body size gate, JSON helpers
  - models: Request/response types and validation bounds
  - session: Token generation and the session registry
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
