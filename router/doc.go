// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the cipherroom API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Session:

	POST /session - Start a session, returns the bearer token

Chat (requires X-Identity / X-Session-Token):

	POST /messages - Append an encrypted envelope

Polls (writes require X-Identity / X-Session-Token):

	POST /polls            - Create poll
	GET  /polls/{id}       - Materialized poll view
	POST /polls/{id}/votes - Cast or replace a vote
	POST /polls/{id}/close - Close (creator only)

Synchronization feed (public):

	GET /feed?cursor=N - Items strictly newer than the cursor

# Handler Initialization

The router creates handler instances with dependency injection:

	sessionHandler := handlers.NewSessionHandler(db, cfg)
	pollHandler := handlers.NewPollHandler(db, cfg)
	...

All handlers receive the database connection and configuration.
*/
package router
