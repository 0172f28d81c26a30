// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Feed item kinds
const (
	KindChat = "chat"
	KindPoll = "poll"
)

// Validation bounds. The transport layer enforces a coarse byte gate before
// handlers run; these are the business-level limits checked per field.
const (
	MaxIdentityLen = 64
	MaxQuestionLen = 500
	MaxOptionLen   = 100
	MinOptions     = 2
	MaxOptions     = 4
	MaxCipherLen   = 4 << 20
	MaxIVLen       = 64
)

// Request types

type StartSessionRequest struct {
	Identity string `json:"identity"`
}

type PostMessageRequest struct {
	Cipher string `json:"cipher"`
	IV     string `json:"iv"`
}

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type CastVoteRequest struct {
	Option int `json:"option"`
}

// Response types

type StartSessionResponse struct {
	Token string `json:"token"`
}

type FeedResponse struct {
	Items      []FeedItem `json:"items"`
	NextCursor int64      `json:"next_cursor"`
}

// Domain types

type Message struct {
	ID        int64     `json:"id"`
	Cipher    string    `json:"cipher"`
	IV        string    `json:"iv"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

type Poll struct {
	ID        int64
	Question  string
	CreatedBy string
	Status    string
	CreatedAt int64 // unix millis, as stored
	ExpiresAt int64
	UpdatedAt int64
}

// PollView is the read-only projection served to clients. Votes is derived
// by counting the voter mapping, zero-filled per option; Voters carries the
// full mapping so a client can disable voting for a user who already voted.
type PollView struct {
	ID        int64          `json:"id"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     []int          `json:"votes"`
	Voters    map[string]int `json:"voters"`
	CreatedBy string         `json:"created_by"`
	Closed    bool           `json:"closed"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FeedItem is one entry in the synchronization feed: either a chat message
// or a poll view, tagged by kind. SortAt is the feed sequence value clients
// hand back as the cursor on their next fetch.
type FeedItem struct {
	Kind    string    `json:"kind"`
	SortAt  int64     `json:"sort_at"`
	Message *Message  `json:"message,omitempty"`
	Poll    *PollView `json:"poll,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
