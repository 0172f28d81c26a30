// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms),
correlated by a per-request UUID.

# Body Size Gate

MaxBody enforces the transport-level payload limit before any handler
reads the body:

	server := http.Server{
		Handler: middleware.CORS(middleware.MaxBody(limit, mux)),
	}

Oversized bodies surface as *http.MaxBytesError from ParseJSONBody;
RejectBody maps that to 413 (with a human-readable limit) and everything
else to 400.

# CORS Middleware

Allows methods GET, POST, OPTIONS with headers Content-Type, X-Identity,
X-Session-Token.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.RejectBody(w, err, limit)
		return
	}
*/
package middleware
