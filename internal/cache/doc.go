// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache provides the in-memory store that holds the last known task
// collection per key. It is the single source of truth for every reader; all
// read-modify-write cycles run inside one critical section.
package cache
