// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package mutation applies task writes to the cache before the server has
// confirmed them. A Coordinator projects each submitted Mutation into the
// store, sends it, and reconciles the cache with the server's answer.
//
// While offline, submitted mutations are parked and replayed in submission
// order when connectivity returns. A successful response is written to the
// cache only when no other mutation for the same key is still pending; a
// failed one invalidates the entry so the next fetch restores server truth.
package mutation
