// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - StartSessionRequest: identity
  - PostMessageRequest: cipher, iv (opaque, client-encrypted)
  - CreatePollRequest: question, options
  - CastVoteRequest: option (zero-based index)

# Response Types

Types for JSON responses:

  - StartSessionResponse: token
  - FeedResponse: items, next_cursor
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Message: immutable ciphertext envelope with server-assigned order
  - Poll: poll row as stored (unix-milli timestamps, feed sequence marker)
  - PollView: read-only projection with derived tallies and the voter map
  - FeedItem: one feed entry, tagged "chat" or "poll"

# Constants

Status values:

	StatusOpen   = "open"
	StatusClosed = "closed"

Feed kinds:

	KindChat = "chat"
	KindPoll = "poll"

Validation bounds (identity/question/option lengths, option counts,
envelope sizes) live here so handlers and tests share one set of limits.
*/
package models
