// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cipherroom/cipherroom/cliparse"
	"github.com/cipherroom/cipherroom/middleware"
	"github.com/cipherroom/cipherroom/models"
	"github.com/cipherroom/cipherroom/session"
)

type SessionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg}
}

// StartSession handles POST /session
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.RejectBody(w, err, h.cfg.MaxBodyBytes)
		return
	}

	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identity is required")
		return
	}
	if len(identity) > models.MaxIdentityLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identity too long")
		return
	}

	token, err := session.Start(h.db, identity, h.cfg.SessionTTL)
	if err != nil {
		if errors.Is(err, session.ErrConflict) {
			middleware.ErrorResponse(w, http.StatusConflict, "Identity already has an active session")
			return
		}
		slog.Error("failed to start session", "error", err, "identity", identity)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	slog.Info("session started", "identity", identity)

	middleware.JSONResponse(w, http.StatusCreated, models.StartSessionResponse{
		Token: token,
	})
}

// RequireSession validates the X-Identity / X-Session-Token headers of a
// mutating request. On failure it writes the 403 response and returns
// ok=false; handlers must return immediately.
func RequireSession(db *sql.DB, cfg cliparse.Config, w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := r.Header.Get("X-Identity")
	token := r.Header.Get("X-Session-Token")
	if identity == "" || token == "" {
		middleware.ErrorResponse(w, http.StatusForbidden, "X-Identity and X-Session-Token headers required")
		return "", false
	}

	if !session.Validate(db, identity, token, cfg.SessionTTL) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Invalid or expired session")
		return "", false
	}

	return identity, true
}
