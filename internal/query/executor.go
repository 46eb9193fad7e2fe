// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apex/log"

	"github.com/staranto/tasksync/internal/cache"
	"github.com/staranto/tasksync/internal/connectivity"
	"github.com/staranto/tasksync/internal/tasks"
)

// ErrDisabled is returned by Fetch while mutations are pending for the key.
// A fetch started then could overwrite an optimistic projection.
var ErrDisabled = errors.New("query disabled while mutations are pending")

// Fetcher loads the canonical collection for a key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (tasks.Collection, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) (tasks.Collection, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key string) (tasks.Collection, error) {
	return f(ctx, key)
}

// Status distinguishes the first-ever fetch from background refetches.
type Status int

const (
	Idle Status = iota
	// Loading is a fetch with no data to show yet.
	Loading
	// Refetching is a fetch while older data is on screen.
	Refetching
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Refetching:
		return "refetching"
	}
	return "idle"
}

type call struct {
	id     uint64
	cancel context.CancelFunc
}

// Executor runs canonical fetches against the cache store. At most one fetch
// per key is current; a newer one, a Cancel or a starting mutation supersedes
// it and its result is discarded.
type Executor struct {
	store   *cache.Store
	fetcher Fetcher

	mu       sync.Mutex
	inflight map[string]*call
	seq      uint64

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()
	online func() bool
}

// New returns an executor that writes into store.
func New(store *cache.Store, fetcher Fetcher) *Executor {
	ctx, stop := context.WithCancel(context.Background())
	return &Executor{
		store:    store,
		fetcher:  fetcher,
		inflight: make(map[string]*call),
		ctx:      ctx,
		stop:     stop,
	}
}

// Fetch loads the collection for key and, unless superseded, stores it. The
// caller's ctx cancels the fetch cooperatively.
func (e *Executor) Fetch(ctx context.Context, key string) (tasks.Collection, error) {
	e.mu.Lock()
	if n := e.store.Mutating(key); n > 0 {
		e.mu.Unlock()
		log.Debugf("fetch %s skipped: %d mutation(s) pending", key, n)
		return nil, ErrDisabled
	}
	if old, ok := e.inflight[key]; ok {
		log.Debugf("fetch %s #%d superseded", key, old.id)
		old.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.seq++
	c := &call{id: e.seq, cancel: cancel}
	e.inflight[key] = c
	e.store.SetFetching(key, true)
	e.mu.Unlock()

	log.Debugf("fetch %s #%d started", key, c.id)
	data, err := e.fetcher.Fetch(fctx, key)

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.inflight[key] == c
	if current {
		delete(e.inflight, key)
		e.store.SetFetching(key, false)
	}

	switch {
	case !current || fctx.Err() != nil:
		log.Debugf("fetch %s #%d discarded: cancelled", key, c.id)
		return nil, fmt.Errorf("fetch %s: %w", key, tasks.ErrCancelled)
	case err != nil:
		if tasks.IsCancelled(err) {
			return nil, fmt.Errorf("fetch %s: %w", key, tasks.ErrCancelled)
		}
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	case e.store.Mutating(key) > 0:
		log.Debugf("fetch %s #%d discarded: mutation started", key, c.id)
		return nil, fmt.Errorf("fetch %s: %w", key, tasks.ErrCancelled)
	}

	if data == nil {
		data = tasks.Collection{}
	}
	e.store.Set(key, data)
	log.Debugf("fetch %s #%d stored %d item(s)", key, c.id, len(data))
	return data.Clone(), nil
}

// Cancel aborts the outstanding fetch for key, if any. Its result will be
// discarded even if it has already arrived on the wire.
func (e *Executor) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.inflight[key]
	if !ok {
		return false
	}
	c.cancel()
	delete(e.inflight, key)
	e.store.SetFetching(key, false)
	log.Debugf("fetch %s #%d cancelled", key, c.id)
	return true
}

// Status reports whether key is idle, loading for the first time or
// refetching in the background.
func (e *Executor) Status(key string) Status {
	entry := e.store.Entry(key)
	if entry.Status != cache.Fetching {
		return Idle
	}
	if entry.Data == nil {
		return Loading
	}
	return Refetching
}

// Refetch starts a background fetch for key and returns immediately. Errors
// are logged; cancellations and gated fetches are expected and ignored.
func (e *Executor) Refetch(key string) {
	if e.ctx.Err() != nil {
		return
	}
	if e.online != nil && !e.online() {
		log.Debugf("refetch %s deferred: offline", key)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Fetch(e.ctx, key); err != nil {
			if errors.Is(err, ErrDisabled) || tasks.IsCancelled(err) {
				log.Debugf("refetch %s: %v", key, err)
				return
			}
			log.WithError(err).Warnf("refetch %s failed", key)
		}
	}()
}

// Watch wires background refetching: store refetch requests and, when m is
// not nil, reconnects for keys that are stale or were never loaded. While m
// reports offline, refetches are deferred to the next reconnect.
func (e *Executor) Watch(m *connectivity.Monitor, keys ...string) {
	e.unsubs = append(e.unsubs, e.store.Subscribe(func(ev cache.Event) {
		if ev.Kind == cache.RefetchRequested {
			e.Refetch(ev.Key)
		}
	}))

	if m == nil {
		return
	}
	e.online = m.Online
	e.unsubs = append(e.unsubs, m.Subscribe(func(online bool) {
		if !online {
			return
		}
		for _, key := range keys {
			entry := e.store.Entry(key)
			if entry.Stale || entry.Data == nil {
				e.Refetch(key)
			}
		}
	}))
}

// Close cancels outstanding fetches and waits for background work to finish.
func (e *Executor) Close() {
	for _, u := range e.unsubs {
		u()
	}
	e.stop()

	e.mu.Lock()
	for key, c := range e.inflight {
		c.cancel()
		delete(e.inflight, key)
		e.store.SetFetching(key, false)
	}
	e.mu.Unlock()

	e.wg.Wait()
}
