// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connection and schema creation.

# Drivers

Open dispatches on the configured database type:

	conn, err := db.Open(cfg) // sqlite (modernc.org/sqlite) or postgres (lib/pq)

All SQL in the repository is written to run unchanged on both drivers:
$N placeholders in ascending order, unix-millisecond BIGINT timestamps,
and RETURNING for the feed sequence.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - session: One live session per identity with sliding expiry
  - feed_seq: Single-row global sequence backing feed cursors and IDs
  - message: Append-only opaque chat envelopes
  - poll: Poll metadata and lifecycle state
  - poll_option: Index-addressed option labels per poll
  - vote: Voter-to-choice mapping, the single source of truth for tallies

# Relationships

	poll 1──* poll_option
	poll 1──* vote

All foreign keys use ON DELETE CASCADE.

# Feed Sequence

NextSeq advances the single-row feed_seq relation inside the caller's
transaction and returns the new value. Message IDs, poll IDs, and poll
update markers all draw from this sequence, which gives the feed a strictly
monotonic, collision-free cursor space.
*/
package db
