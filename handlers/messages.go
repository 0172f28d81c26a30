// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/cipherroom/cipherroom/cliparse"
	"github.com/cipherroom/cipherroom/db"
	"github.com/cipherroom/cipherroom/middleware"
	"github.com/cipherroom/cipherroom/models"
)

type MessageHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewMessageHandler(db *sql.DB, cfg cliparse.Config) *MessageHandler {
	return &MessageHandler{db: db, cfg: cfg}
}

// Append handles POST /messages
// The envelope is opaque: cipher and iv are stored exactly as sent and
// never inspected. The ledger is write-once; no update or delete exists.
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	sender, ok := RequireSession(h.db, h.cfg, w, r)
	if !ok {
		return
	}

	var req models.PostMessageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.RejectBody(w, err, h.cfg.MaxBodyBytes)
		return
	}

	if req.Cipher == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "cipher is required")
		return
	}
	if len(req.Cipher) > models.MaxCipherLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "cipher too large")
		return
	}
	if req.IV == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "iv is required")
		return
	}
	if len(req.IV) > models.MaxIVLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "iv too large")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// The message ID is its feed sequence value, so append order and feed
	// order are the same thing.
	msgID, err := db.NextSeq(tx)
	if err != nil {
		slog.Error("failed to assign message ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO message (id, cipher, iv, sender, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msgID, req.Cipher, req.IV, sender, time.Now().UnixMilli())

	if err != nil {
		slog.Error("failed to insert message", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	slog.Info("message stored", "message_id", msgID, "sender", sender)

	w.WriteHeader(http.StatusNoContent)
}
