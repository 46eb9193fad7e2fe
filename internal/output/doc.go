// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output provides filtering, sorting and emission utilities used by
// commands to present task collections in various formats.
package output
