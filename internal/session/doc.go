// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package session ties the cache, connectivity monitor, query executor and
// mutation coordinator together for one client lifetime. Renderers read
// state through a Session and subscribe to its change notifications.
package session
