// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cipherroom/cipherroom/models"
	"github.com/cipherroom/cipherroom/testutil"
)

func fetchFeed(t *testing.T, h *FeedHandler, cursor int64) models.FeedResponse {
	t.Helper()

	path := "/feed"
	if cursor > 0 {
		path += "?cursor=" + strconv.FormatInt(cursor, 10)
	}
	req := testutil.MakeRequest("GET", path, nil, nil)
	w := httptest.NewRecorder()
	h.Fetch(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.FeedResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func TestFetchFeed_Empty(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewFeedHandler(conn, testutil.GetTestConfig())

	resp := fetchFeed(t, handler, 0)
	if len(resp.Items) != 0 {
		t.Errorf("Expected empty feed, got %d items", len(resp.Items))
	}
	if resp.NextCursor != 0 {
		t.Errorf("Empty feed must echo the cursor, got %d", resp.NextCursor)
	}
}

func TestFetchFeed_InvalidCursor(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewFeedHandler(conn, testutil.GetTestConfig())

	for _, raw := range []string{"abc", "-1", "1.5"} {
		req := testutil.MakeRequest("GET", "/feed?cursor="+raw, nil, nil)
		w := httptest.NewRecorder()
		handler.Fetch(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
}

func TestFetchFeed_OrderAndCursor(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewFeedHandler(conn, testutil.GetTestConfig())

	msgID := testutil.AddTestMessage(t, conn, "alice", "aa", "01")
	pollID := testutil.CreateTestPoll(t, conn, "alice", []string{"Pizza", "Sushi"}, time.Hour)

	// Full history: message first, then the poll, in creation order
	resp := fetchFeed(t, handler, 0)
	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].Kind != models.KindChat || resp.Items[0].Message == nil || resp.Items[0].Message.ID != msgID {
		t.Errorf("Item 0 is not the chat message: %+v", resp.Items[0])
	}
	if resp.Items[1].Kind != models.KindPoll || resp.Items[1].Poll == nil || resp.Items[1].Poll.ID != pollID {
		t.Errorf("Item 1 is not the poll: %+v", resp.Items[1])
	}
	if resp.NextCursor != resp.Items[1].SortAt {
		t.Errorf("NextCursor %d != last item sort_at %d", resp.NextCursor, resp.Items[1].SortAt)
	}

	cursor := resp.NextCursor

	// Caught up: nothing newer than the cursor
	resp = fetchFeed(t, handler, cursor)
	if len(resp.Items) != 0 {
		t.Fatalf("Expected caught-up feed to be empty, got %d items", len(resp.Items))
	}
	if resp.NextCursor != cursor {
		t.Errorf("Caught-up feed must echo the cursor, got %d", resp.NextCursor)
	}

	// A vote re-delivers the poll, and only the poll, with a live tally
	testutil.CastTestVote(t, conn, pollID, "bob", 1)

	resp = fetchFeed(t, handler, cursor)
	if len(resp.Items) != 1 {
		t.Fatalf("Expected exactly the updated poll, got %d items", len(resp.Items))
	}
	item := resp.Items[0]
	if item.Kind != models.KindPoll || item.Poll == nil || item.Poll.ID != pollID {
		t.Fatalf("Expected the updated poll, got %+v", item)
	}
	if item.Poll.Votes[1] != 1 {
		t.Errorf("Redelivered poll carries stale tally: %v", item.Poll.Votes)
	}
	if item.SortAt <= cursor {
		t.Errorf("Updated poll sort_at %d not past cursor %d", item.SortAt, cursor)
	}

	// Exactly-once: the same change is not delivered again
	resp = fetchFeed(t, handler, resp.NextCursor)
	if len(resp.Items) != 0 {
		t.Errorf("Change delivered twice: %d items", len(resp.Items))
	}
}

func TestFetchFeed_StrictCursorBoundary(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewFeedHandler(conn, testutil.GetTestConfig())

	msgID := testutil.AddTestMessage(t, conn, "alice", "aa", "01")

	// Cursor equal to an item's position excludes that item
	resp := fetchFeed(t, handler, msgID)
	if len(resp.Items) != 0 {
		t.Errorf("Cursor equal to sort_at must exclude the item, got %d items", len(resp.Items))
	}

	// Cursor just below it includes it
	resp = fetchFeed(t, handler, msgID-1)
	if len(resp.Items) != 1 {
		t.Errorf("Cursor below sort_at must include the item, got %d items", len(resp.Items))
	}
}

func TestFetchFeed_SweepsExpiredPolls(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewFeedHandler(conn, testutil.GetTestConfig())

	pollID := testutil.CreateTestPoll(t, conn, "alice", []string{"A", "B"}, time.Hour)

	resp := fetchFeed(t, handler, 0)
	if len(resp.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(resp.Items))
	}
	cursor := resp.NextCursor

	// Force the poll past its expiry while still marked open
	past := time.Now().Add(-time.Minute).UnixMilli()
	if _, err := conn.Exec(`UPDATE poll SET expires_at = $1 WHERE id = $2`, past, pollID); err != nil {
		t.Fatalf("Failed to backdate poll: %v", err)
	}

	// The fetch closes it and delivers the closed view as a fresh change
	resp = fetchFeed(t, handler, cursor)
	if len(resp.Items) != 1 {
		t.Fatalf("Expected the closed poll to be redelivered, got %d items", len(resp.Items))
	}
	if !resp.Items[0].Poll.Closed {
		t.Error("Redelivered poll not reported closed")
	}

	var status string
	if err := conn.QueryRow(`SELECT status FROM poll WHERE id = $1`, pollID).Scan(&status); err != nil {
		t.Fatalf("Failed to read poll: %v", err)
	}
	if status != models.StatusClosed {
		t.Errorf("Expected status closed after sweep, got %s", status)
	}

	// Closing is a single change: nothing further past the new cursor
	resp = fetchFeed(t, handler, resp.NextCursor)
	if len(resp.Items) != 0 {
		t.Errorf("Close delivered twice: %d items", len(resp.Items))
	}
}

func TestMergeFeed(t *testing.T) {
	chat := func(seq int64) models.FeedItem {
		return models.FeedItem{Kind: models.KindChat, SortAt: seq}
	}
	poll := func(seq int64) models.FeedItem {
		return models.FeedItem{Kind: models.KindPoll, SortAt: seq}
	}

	tests := []struct {
		name  string
		chats []models.FeedItem
		polls []models.FeedItem
		want  []int64
	}{
		{"both empty", nil, nil, []int64{}},
		{"chats only", []models.FeedItem{chat(1), chat(3)}, nil, []int64{1, 3}},
		{"polls only", nil, []models.FeedItem{poll(2)}, []int64{2}},
		{
			"interleaved",
			[]models.FeedItem{chat(1), chat(4), chat(6)},
			[]models.FeedItem{poll(2), poll(5)},
			[]int64{1, 2, 4, 5, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeFeed(tt.chats, tt.polls)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d items, got %d", len(tt.want), len(got))
			}
			for i, seq := range tt.want {
				if got[i].SortAt != seq {
					t.Errorf("Item %d: sort_at %d, want %d", i, got[i].SortAt, seq)
				}
			}
		})
	}
}
