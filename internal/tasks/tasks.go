// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"fmt"
	"sync/atomic"
)

// Key is the cache key for the task collection.
const Key = "tasks"

// Item is a single task. ID is unique within a Collection. Placeholders carry a
// non-positive ID.
type Item struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// IsPlaceholder reports whether the item stands in for a creation the server
// has not confirmed yet.
func (i Item) IsPlaceholder() bool {
	return i.ID <= 0
}

// Collection is an ordered list of items in display order. A nil Collection is
// undefined (nothing fetched yet); a non-nil empty one is a known empty list.
type Collection []Item

// Defined reports whether c holds a known value, even an empty one.
func (c Collection) Defined() bool {
	return c != nil
}

// Clone returns a copy of c that preserves definedness.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Find returns the item with the given id.
func (c Collection) Find(id int) (Item, bool) {
	for _, it := range c {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Placeholders counts the unconfirmed items in c.
func (c Collection) Placeholders() (n int) {
	for _, it := range c {
		if it.IsPlaceholder() {
			n++
		}
	}
	return
}

// placeholderSeq hands out distinct negative temporary IDs.
var placeholderSeq atomic.Int64

// NewPlaceholder returns an item marking a pending creation. Each call gets a
// distinct negative ID so placeholders never collide with each other.
func NewPlaceholder() Item {
	n := placeholderSeq.Add(1)
	return Item{
		ID:    -int(n),
		Label: fmt.Sprintf("New task #%d", n),
	}
}

// WithItem returns a new Collection with it appended. An undefined prev is
// treated as empty.
func WithItem(prev Collection, it Item) Collection {
	out := make(Collection, 0, len(prev)+1)
	out = append(out, prev...)
	return append(out, it)
}

// WithoutID returns a new Collection without the item whose ID is id. An
// undefined prev stays undefined, and an absent id leaves the content unchanged.
func WithoutID(prev Collection, id int) Collection {
	if prev == nil {
		return nil
	}
	out := make(Collection, 0, len(prev))
	for _, it := range prev {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
