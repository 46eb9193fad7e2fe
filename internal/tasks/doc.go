// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package tasks holds the task model shared by the cache, the client and the
// server, along with the error kinds the core distinguishes.
package tasks
