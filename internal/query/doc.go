// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package query fetches the canonical task collection into the cache. Fetches
// are gated on pending mutations and can be cancelled mid-flight.
package query
