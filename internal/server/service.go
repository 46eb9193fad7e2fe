// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/staranto/tasksync/internal/tasks"
)

// FirstID is the id given to the first created task.
const FirstID = 10

// Default artificial latencies, long enough to watch optimistic updates.
const (
	DefaultListDelay   = 3 * time.Second
	DefaultCreateDelay = 2 * time.Second
)

// Seed returns the collection a fresh service starts with.
func Seed() tasks.Collection {
	return tasks.Collection{
		{ID: 1, Label: "Take photo of truck #1"},
		{ID: 2, Label: "Scan barcode of truck #2"},
	}
}

// Service is the in-memory task store behind the HTTP routes.
type Service struct {
	mu     sync.Mutex
	items  tasks.Collection
	nextID int
}

// NewService returns a service holding seed. A nil seed means Seed().
func NewService(seed tasks.Collection) *Service {
	if seed == nil {
		seed = Seed()
	}
	return &Service{items: seed.Clone(), nextID: FirstID}
}

// List returns the current collection.
func (s *Service) List() tasks.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Create appends a new task and returns the resulting collection.
func (s *Service) Create() (tasks.Item, tasks.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := tasks.Item{ID: s.nextID, Label: fmt.Sprintf("New task %d", s.nextID)}
	s.nextID++
	s.items = tasks.WithItem(s.items, it)
	return it, s.snapshot()
}

// Complete removes the task whose id renders as id. Unknown ids, numeric or
// not, leave the collection unchanged.
func (s *Service) Complete(id string) tasks.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(tasks.Collection, 0, len(s.items))
	for _, it := range s.items {
		if strconv.Itoa(it.ID) != id {
			out = append(out, it)
		}
	}
	s.items = out
	return s.snapshot()
}

func (s *Service) snapshot() tasks.Collection {
	out := s.items.Clone()
	if out == nil {
		out = tasks.Collection{}
	}
	return out
}
