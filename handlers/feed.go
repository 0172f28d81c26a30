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
	"github.com/cipherroom/cipherroom/middleware"
	"github.com/cipherroom/cipherroom/models"
)

type FeedHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewFeedHandler(db *sql.DB, cfg cliparse.Config) *FeedHandler {
	return &FeedHandler{db: db, cfg: cfg}
}

// Fetch handles GET /feed?cursor=N
//
// Returns chat messages and poll views strictly newer than the cursor,
// merged into one sequence ordered by feed position. Chat items sort at
// their creation sequence; poll items sort at their last-update sequence,
// so a poll re-enters the feed once per state change (vote or close) and a
// passive poller sees live tallies without re-fetching history. Clients
// pass the sort_at of the last delivered item back as the next cursor.
func (h *FeedHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var cursor int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		var err error
		cursor, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
	}

	// Lazy-expiry sweep before reading. Racing sweeps are harmless: the
	// close is guarded and happens once.
	h.sweepExpired()

	chats, err := h.chatItems(cursor)
	if err != nil {
		slog.Error("failed to query messages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	polls, err := h.pollItems(cursor)
	if err != nil {
		slog.Error("failed to query polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	items := mergeFeed(chats, polls)

	nextCursor := cursor
	if len(items) > 0 {
		nextCursor = items[len(items)-1].SortAt
	}

	middleware.JSONResponse(w, http.StatusOK, models.FeedResponse{
		Items:      items,
		NextCursor: nextCursor,
	})
}

// sweepExpired closes every open poll whose expiry has passed. Failures are
// logged and skipped; the next access retries.
func (h *FeedHandler) sweepExpired() {
	now := time.Now().UnixMilli()

	rows, err := h.db.Query(`
		SELECT id FROM poll WHERE status = $1 AND expires_at <= $2
	`, models.StatusOpen, now)
	if err != nil {
		slog.Error("failed to query expired polls", "error", err)
		return
	}
	defer rows.Close()

	var due []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Error("failed to scan expired poll", "error", err)
			return
		}
		due = append(due, id)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate expired polls", "error", err)
		return
	}

	for _, id := range due {
		if err := CloseExpired(h.db, id); err != nil {
			slog.Error("failed to close expired poll", "error", err, "poll_id", id)
		}
	}
}

func (h *FeedHandler) chatItems(cursor int64) ([]models.FeedItem, error) {
	rows, err := h.db.Query(`
		SELECT id, cipher, iv, sender, created_at
		FROM message
		WHERE id > $1
		ORDER BY id
	`, cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.FeedItem{}
	for rows.Next() {
		var m models.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Cipher, &m.IV, &m.Sender, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(createdAt).UTC()

		items = append(items, models.FeedItem{
			Kind:    models.KindChat,
			SortAt:  m.ID,
			Message: &m,
		})
	}
	return items, rows.Err()
}

func (h *FeedHandler) pollItems(cursor int64) ([]models.FeedItem, error) {
	rows, err := h.db.Query(`
		SELECT id, updated_seq
		FROM poll
		WHERE updated_seq > $1
		ORDER BY updated_seq
	`, cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pollRef struct {
		id  int64
		seq int64
	}
	var refs []pollRef
	for rows.Next() {
		var ref pollRef
		if err := rows.Scan(&ref.id, &ref.seq); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := []models.FeedItem{}
	for _, ref := range refs {
		view, err := materializePoll(h.db, ref.id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}

		items = append(items, models.FeedItem{
			Kind:   models.KindPoll,
			SortAt: ref.seq,
			Poll:   &view,
		})
	}
	return items, nil
}

// mergeFeed interleaves two feed-position-ordered slices into one. Sequence
// values are globally unique so real ties cannot happen, but the tie-break
// (chat before poll) keeps the order deterministic regardless.
func mergeFeed(chats, polls []models.FeedItem) []models.FeedItem {
	merged := make([]models.FeedItem, 0, len(chats)+len(polls))

	i, j := 0, 0
	for i < len(chats) && j < len(polls) {
		if chats[i].SortAt <= polls[j].SortAt {
			merged = append(merged, chats[i])
			i++
		} else {
			merged = append(merged, polls[j])
			j++
		}
	}
	merged = append(merged, chats[i:]...)
	merged = append(merged, polls[j:]...)

	return merged
}
