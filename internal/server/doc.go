// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package server is a local, in-memory Task Service. It serves the routes
// the client expects, with optional artificial latency so optimistic
// updates can be watched.
package server
