// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cipherroom/cipherroom/cliparse"
	"github.com/cipherroom/cipherroom/db"
	"github.com/cipherroom/cipherroom/middleware"
	"github.com/cipherroom/cipherroom/models"
)

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	creator, ok := RequireSession(h.db, h.cfg, w, r)
	if !ok {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.RejectBody(w, err, h.cfg.MaxBodyBytes)
		return
	}

	// Validate input
	question := strings.TrimSpace(req.Question)
	if question == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(question) > models.MaxQuestionLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question too long")
		return
	}

	options := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "options must be non-empty")
			return
		}
		if len(opt) > models.MaxOptionLen {
			middleware.ErrorResponse(w, http.StatusBadRequest, "option too long")
			return
		}
		options = append(options, opt)
	}
	if len(options) < models.MinOptions || len(options) > models.MaxOptions {
		middleware.ErrorResponse(w, http.StatusBadRequest,
			"polls need "+strconv.Itoa(models.MinOptions)+" to "+strconv.Itoa(models.MaxOptions)+" options")
		return
	}

	now := time.Now().UnixMilli()
	expiresAt := now + h.cfg.PollDuration.Milliseconds()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// The poll ID is its creation sequence value, which also serves as the
	// initial feed position.
	pollID, err := db.NextSeq(tx)
	if err != nil {
		slog.Error("failed to assign poll ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO poll (id, question, created_by, status, created_at, expires_at, updated_at, updated_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pollID, question, creator, models.StatusOpen, now, expiresAt, now, pollID)

	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	for i, label := range options {
		_, err = tx.Exec(`
			INSERT INTO poll_option (poll_id, idx, label)
			VALUES ($1, $2, $3)
		`, pollID, i, label)

		if err != nil {
			slog.Error("failed to insert option", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "creator", creator, "options", len(options))

	w.WriteHeader(http.StatusCreated)
}

// GetPoll handles GET /polls/{id}
// Returns the materialized view: options, derived tallies, voter map,
// closed flag reflecting lazy expiry at read time.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	if err := CloseExpired(h.db, pollID); err != nil {
		slog.Error("failed to close expired poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	view, err := materializePoll(h.db, pollID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to materialize poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, view)
}

// ClosePoll handles POST /polls/{id}/close
// Only the creator may close; closing is idempotent and never reverses.
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	requester, ok := RequireSession(h.db, h.cfg, w, r)
	if !ok {
		return
	}

	pollID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	l := pollMu.Lock(pollID)
	defer l.Unlock()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var createdBy, status string
	err = tx.QueryRow(`
		SELECT created_by, status FROM poll WHERE id = $1
	`, pollID).Scan(&createdBy, &status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if createdBy != requester {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the poll creator may close it")
		return
	}

	if status == models.StatusOpen {
		now := time.Now().UnixMilli()
		seq, err := db.NextSeq(tx)
		if err != nil {
			slog.Error("failed to advance feed sequence", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
			return
		}

		_, err = tx.Exec(`
			UPDATE poll SET status = $1, updated_at = $2, updated_seq = $3
			WHERE id = $4 AND status = $5
		`, models.StatusClosed, now, seq, pollID, models.StatusOpen)

		if err != nil {
			slog.Error("failed to close poll", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
			return
		}

		if err := tx.Commit(); err != nil {
			slog.Error("failed to commit transaction", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close poll")
			return
		}

		slog.Info("poll closed", "poll_id", pollID, "by", requester)
	}

	w.WriteHeader(http.StatusNoContent)
}

// CloseExpired transitions a poll to closed once its expiry has passed.
// Idempotent and safe to race: the status guard in the UPDATE means the
// open→closed transition is recorded exactly once however many readers or
// writers observe the expiry concurrently. Missing polls are a no-op.
func CloseExpired(dbc *sql.DB, pollID int64) error {
	now := time.Now().UnixMilli()

	var status string
	var expiresAt int64
	err := dbc.QueryRow(`
		SELECT status, expires_at FROM poll WHERE id = $1
	`, pollID).Scan(&status, &expiresAt)

	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if status != models.StatusOpen || now < expiresAt {
		return nil
	}

	l := pollMu.Lock(pollID)
	defer l.Unlock()

	tx, err := dbc.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq, err := db.NextSeq(tx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE poll SET status = $1, updated_at = $2, updated_seq = $3
		WHERE id = $4 AND status = $5
	`, models.StatusClosed, now, seq, pollID, models.StatusOpen)

	if err != nil {
		return err
	}

	return tx.Commit()
}

// materializePoll builds the read-only projection. Tallies are derived by
// grouping the vote mapping; no stored counter exists to drift from it.
func materializePoll(dbc *sql.DB, pollID int64) (models.PollView, error) {
	var p models.Poll
	err := dbc.QueryRow(`
		SELECT id, question, created_by, status, created_at, expires_at, updated_at
		FROM poll
		WHERE id = $1
	`, pollID).Scan(
		&p.ID, &p.Question, &p.CreatedBy, &p.Status,
		&p.CreatedAt, &p.ExpiresAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.PollView{}, err
	}

	options := []string{}
	rows, err := dbc.Query(`
		SELECT label FROM poll_option WHERE poll_id = $1 ORDER BY idx
	`, pollID)
	if err != nil {
		return models.PollView{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return models.PollView{}, err
		}
		options = append(options, label)
	}
	if err := rows.Err(); err != nil {
		return models.PollView{}, err
	}

	votes := make([]int, len(options))
	tallyRows, err := dbc.Query(`
		SELECT option_idx, COUNT(*) FROM vote WHERE poll_id = $1 GROUP BY option_idx
	`, pollID)
	if err != nil {
		return models.PollView{}, err
	}
	defer tallyRows.Close()

	for tallyRows.Next() {
		var idx, n int
		if err := tallyRows.Scan(&idx, &n); err != nil {
			return models.PollView{}, err
		}
		if idx >= 0 && idx < len(votes) {
			votes[idx] = n
		}
	}
	if err := tallyRows.Err(); err != nil {
		return models.PollView{}, err
	}

	voters := map[string]int{}
	voterRows, err := dbc.Query(`
		SELECT voter, option_idx FROM vote WHERE poll_id = $1
	`, pollID)
	if err != nil {
		return models.PollView{}, err
	}
	defer voterRows.Close()

	for voterRows.Next() {
		var voter string
		var idx int
		if err := voterRows.Scan(&voter, &idx); err != nil {
			return models.PollView{}, err
		}
		voters[voter] = idx
	}
	if err := voterRows.Err(); err != nil {
		return models.PollView{}, err
	}

	now := time.Now().UnixMilli()

	return models.PollView{
		ID:        p.ID,
		Question:  p.Question,
		Options:   options,
		Votes:     votes,
		Voters:    voters,
		CreatedBy: p.CreatedBy,
		Closed:    p.Status == models.StatusClosed || now >= p.ExpiresAt,
		CreatedAt: time.UnixMilli(p.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(p.ExpiresAt).UTC(),
		UpdatedAt: time.UnixMilli(p.UpdatedAt).UTC(),
	}, nil
}
