// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cipherroom/cipherroom/cliparse"
	"github.com/cipherroom/cipherroom/db"
	"github.com/cipherroom/cipherroom/middleware"
	"github.com/cipherroom/cipherroom/models"
)

type VoteHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVoteHandler(db *sql.DB, cfg cliparse.Config) *VoteHandler {
	return &VoteHandler{db: db, cfg: cfg}
}

// CastVote handles POST /polls/{id}/votes
//
// The status check, the lazy close, and the vote replacement run as one
// serialized unit per poll: the poll mutex keeps two writers from
// interleaving their read-check-write sequences, and the transaction keeps
// partial effects from ever being observable.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	voter, ok := RequireSession(h.db, h.cfg, w, r)
	if !ok {
		return
	}

	pollID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.RejectBody(w, err, h.cfg.MaxBodyBytes)
		return
	}

	l := pollMu.Lock(pollID)
	defer l.Unlock()

	now := time.Now().UnixMilli()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var status string
	var expiresAt int64
	err = tx.QueryRow(`
		SELECT status, expires_at FROM poll WHERE id = $1
	`, pollID).Scan(&status, &expiresAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status == models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is closed")
		return
	}

	if now >= expiresAt {
		// This observation is what closes the poll; the transition and the
		// rejection commit together.
		seq, err := db.NextSeq(tx)
		if err != nil {
			slog.Error("failed to advance feed sequence", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		_, err = tx.Exec(`
			UPDATE poll SET status = $1, updated_at = $2, updated_seq = $3
			WHERE id = $4 AND status = $5
		`, models.StatusClosed, now, seq, pollID, models.StatusOpen)

		if err != nil {
			slog.Error("failed to close expired poll", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		if err := tx.Commit(); err != nil {
			slog.Error("failed to commit transaction", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		slog.Info("poll closed on expiry", "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is closed")
		return
	}

	var optionCount int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM poll_option WHERE poll_id = $1
	`, pollID).Scan(&optionCount)

	if err != nil {
		slog.Error("failed to count options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Option < 0 || req.Option >= optionCount {
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	}

	// Idempotent repeat-vote: same voter, same option leaves the poll
	// untouched, including updated_at.
	var current int
	err = tx.QueryRow(`
		SELECT option_idx FROM vote WHERE poll_id = $1 AND voter = $2
	`, pollID, voter).Scan(&current)

	if err == nil && current == req.Option {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to query vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Replace the voter's mapping entry. No counter is touched; tallies are
	// recomputed from the mapping on every read.
	_, err = tx.Exec(`
		INSERT INTO vote (poll_id, voter, option_idx, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, voter) DO UPDATE SET
			option_idx = excluded.option_idx,
			cast_at = excluded.cast_at
	`, pollID, voter, req.Option, now)

	if err != nil {
		slog.Error("failed to upsert vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	seq, err := db.NextSeq(tx)
	if err != nil {
		slog.Error("failed to advance feed sequence", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	_, err = tx.Exec(`
		UPDATE poll SET updated_at = $1, updated_seq = $2 WHERE id = $3
	`, now, seq, pollID)

	if err != nil {
		slog.Error("failed to bump poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		return
	}

	slog.Info("vote cast", "poll_id", pollID, "voter", voter, "option", req.Option)

	w.WriteHeader(http.StatusNoContent)
}
