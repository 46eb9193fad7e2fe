// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package connectivity tracks online/offline transitions and notifies
// subscribers, one of which replays deferred mutations on reconnect.
package connectivity
