// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the cipherroom API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - SessionHandler: Session start
  - MessageHandler: Appending opaque chat envelopes
  - PollHandler: Poll creation, close, and the materialized view
  - VoteHandler: Vote cast/replace
  - FeedHandler: Merged, cursor-based synchronization feed

Handlers are created via constructor functions that accept *sql.DB and Config:

	pollHandler := handlers.NewPollHandler(db, cfg)

# Authorization

Every mutating endpoint validates the X-Identity / X-Session-Token headers
through RequireSession before touching state. Reads (poll view, feed) are
open to anyone in the room.

# Poll Lifecycle

Polls are created open and close exactly once, either explicitly by their
creator or lazily when any read or write observes the expiry time:

	POST /polls            → CreatePoll
	POST /polls/{id}/votes → CastVote (replace semantics, idempotent repeat)
	POST /polls/{id}/close → ClosePoll (creator only, idempotent)
	GET  /polls/{id}       → GetPoll (derived tallies + voter map)

Vote and close operations on the same poll are serialized by a per-poll
mutex (see locks.go) so the check/close/replace sequence never interleaves.
Tallies are always derived from the vote mapping at read time; there is no
stored counter to drift.

# Feed

	GET /feed?cursor=N → Fetch

Returns chat and poll items strictly newer than the cursor, merged by feed
sequence. Polls re-appear once per state change. The sweep that closes
expired polls runs at the top of every fetch.
*/
package handlers
