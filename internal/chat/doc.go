// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates one request/response cycle between the
// conversation store, the API client, and the presentation layer.
//
// A submission walks a fixed state machine:
//
//	Idle -> Sending -> Streaming -> Settling -> Idle
//
// The settling step always runs, on success, failure, and panic alike, so
// the UI's in-progress indicator can never get stuck. Request and stream
// failures are recorded as assistant turns: the conversation log is the
// error surface.
//
// # Key Types
//
//   - Orchestrator: runs Send, one submission in flight at a time
//   - Callbacks: how the presentation layer observes progress
//   - Coalescer: batches increments so fast streams don't redraw per token
package chat
