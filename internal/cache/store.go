// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/tasksync/internal/tasks"
)

// FetchStatus tells whether a canonical fetch is outstanding for an entry.
type FetchStatus int

const (
	Idle FetchStatus = iota
	Fetching
)

func (s FetchStatus) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Entry is a snapshot of one cached key.
type Entry struct {
	// Key is the clear-text key, e.g. "tasks".
	Key string
	// Data is the current collection. Nil until the first set.
	Data tasks.Collection
	// Status is the fetch status recorded by the query executor.
	Status FetchStatus
	// Stale is set by Invalidate and cleared by the next Set.
	Stale bool
	// UpdatedAt is when Data was last written.
	UpdatedAt time.Time
	// Mutating is the number of pending or paused mutations for Key.
	Mutating int
}

// EventKind classifies store notifications.
type EventKind int

const (
	// Updated means the entry's data changed.
	Updated EventKind = iota + 1
	// Invalidated means the entry was marked stale.
	Invalidated
	// RefetchRequested asks the query executor for a background fetch.
	RefetchRequested
	// StatusChanged means the fetch status or mutation count changed.
	StatusChanged
)

func (k EventKind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Invalidated:
		return "invalidated"
	case RefetchRequested:
		return "refetch-requested"
	case StatusChanged:
		return "status-changed"
	}
	return "unknown"
}

// Event is delivered to store subscribers.
type Event struct {
	Key  string
	Kind EventKind
}

// Listener receives store events. It is called outside the store lock and
// must not block.
type Listener func(Event)

// Store holds one Entry per key.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	listeners map[int]Listener
	nextID    int
	order     []int
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries:   make(map[string]*Entry),
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// entry returns the entry for key, creating it. Callers hold s.mu.
func (s *Store) entry(key string) *Entry {
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{Key: key}
		s.entries[key] = e
	}
	return e
}

// Get returns the data for key and whether it is defined.
func (s *Store) Get(key string) (tasks.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.Data == nil {
		return nil, false
	}
	return e.Data.Clone(), true
}

// Entry returns a copy of the entry for key.
func (s *Store) Entry(key string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := *s.entry(key)
	e.Data = e.Data.Clone()
	return e
}

// Set overwrites the data for key and clears its stale flag. The write is
// visible to every subsequent Get.
func (s *Store) Set(key string, data tasks.Collection) {
	s.mu.Lock()
	s.set(key, data)
	s.mu.Unlock()

	s.emit(Event{Key: key, Kind: Updated})
}

func (s *Store) set(key string, data tasks.Collection) {
	e := s.entry(key)
	e.Data = data.Clone()
	e.Stale = false
	e.UpdatedAt = s.now()
	log.Debugf("cache set: key=%s items=%d", key, len(data))
}

// Update applies fn to the current data for key and stores the result, all in
// one critical section, so fn always sees the latest value. It returns what
// was stored.
func (s *Store) Update(key string, fn func(prev tasks.Collection) tasks.Collection) tasks.Collection {
	s.mu.Lock()
	prev := s.entry(key).Data.Clone()
	next := fn(prev)
	s.set(key, next)
	s.mu.Unlock()

	s.emit(Event{Key: key, Kind: Updated})
	return next.Clone()
}

// Invalidate marks key stale and requests a background refetch. It never
// blocks on the fetch itself. While mutations are pending the refetch request
// is held back and re-issued by MutationSettled.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	e := s.entry(key)
	e.Stale = true
	mutating := e.Mutating
	s.mu.Unlock()

	log.Debugf("cache invalidate: key=%s mutating=%d", key, mutating)
	s.emit(Event{Key: key, Kind: Invalidated})
	if mutating == 0 {
		s.emit(Event{Key: key, Kind: RefetchRequested})
	}
}

// Purge drops the entry for key entirely.
func (s *Store) Purge(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	s.emit(Event{Key: key, Kind: Updated})
}

// MutationStarted increments the mutation counter for key.
func (s *Store) MutationStarted(key string) int {
	s.mu.Lock()
	e := s.entry(key)
	e.Mutating++
	n := e.Mutating
	s.mu.Unlock()

	s.emit(Event{Key: key, Kind: StatusChanged})
	return n
}

// MutationSettled decrements the mutation counter for key. When it reaches
// zero on a stale entry the refetch held back by Invalidate is requested.
func (s *Store) MutationSettled(key string) int {
	s.mu.Lock()
	e := s.entry(key)
	if e.Mutating > 0 {
		e.Mutating--
	}
	n := e.Mutating
	stale := e.Stale
	s.mu.Unlock()

	s.emit(Event{Key: key, Kind: StatusChanged})
	if n == 0 && stale {
		s.emit(Event{Key: key, Kind: RefetchRequested})
	}
	return n
}

// Mutating returns the number of pending or paused mutations for key.
func (s *Store) Mutating(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry(key).Mutating
}

// SetFetching records whether a canonical fetch is outstanding for key.
func (s *Store) SetFetching(key string, fetching bool) {
	status := Idle
	if fetching {
		status = Fetching
	}

	s.mu.Lock()
	e := s.entry(key)
	changed := e.Status != status
	e.Status = status
	s.mu.Unlock()

	if changed {
		s.emit(Event{Key: key, Kind: StatusChanged})
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// emit calls every listener in subscription order. Callers must not hold s.mu.
func (s *Store) emit(ev Event) {
	s.mu.Lock()
	ls := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		ls = append(ls, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}
