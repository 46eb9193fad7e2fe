// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/tasksync/internal/cache"
	"github.com/staranto/tasksync/internal/connectivity"
	"github.com/staranto/tasksync/internal/mutation"
	"github.com/staranto/tasksync/internal/query"
	"github.com/staranto/tasksync/internal/tasks"
)

// Backend is everything a session needs from the Task Service.
type Backend interface {
	query.Fetcher
	mutation.Remote
	connectivity.Pinger
}

// Options tune a session. The zero value is usable.
type Options struct {
	// ProbeInterval is how often reachability is checked. Zero means
	// connectivity.DefaultInterval; negative disables probing.
	ProbeInterval time.Duration
	// StartOffline starts the monitor offline until the first probe.
	StartOffline bool
}

// Session owns the cache and everything that reads or writes it for one
// client lifetime.
type Session struct {
	store       *cache.Store
	monitor     *connectivity.Monitor
	executor    *query.Executor
	coordinator *mutation.Coordinator
	prober      *connectivity.Prober

	mu           sync.Mutex
	forceOffline bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a session against backend. Nothing runs until Start.
func New(backend Backend, opts Options) *Session {
	store := cache.New()
	monitor := connectivity.NewMonitor(!opts.StartOffline)
	executor := query.New(store, backend)
	coordinator := mutation.New(store, executor, backend, monitor)

	s := &Session{
		store:       store,
		monitor:     monitor,
		executor:    executor,
		coordinator: coordinator,
		ctx:         context.Background(),
	}
	if opts.ProbeInterval >= 0 {
		s.prober = connectivity.NewProber(monitor, backend, opts.ProbeInterval)
		s.prober.PauseWhen(s.offlineForced)
	}
	return s
}

// Start begins background refetching and probing and kicks off the initial
// load. It returns without waiting for the load.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.ctx = ctx
	s.done = make(chan struct{})

	s.executor.Watch(s.monitor, tasks.Key)

	go func() {
		defer close(s.done)
		if s.prober != nil {
			_ = s.prober.Run(ctx)
			return
		}
		<-ctx.Done()
	}()

	s.executor.Refetch(tasks.Key)
}

// Close stops background work, failing paused mutations.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.coordinator.Close()
	s.executor.Close()
	log.Debug("session closed")
}

// Store exposes the cache for inspection.
func (s *Session) Store() *cache.Store { return s.store }

// Monitor exposes the connectivity monitor.
func (s *Session) Monitor() *connectivity.Monitor { return s.monitor }

// CurrentCollection returns the cached tasks. The bool is false until the
// first load completes.
func (s *Session) CurrentCollection() (tasks.Collection, bool) {
	return s.store.Get(tasks.Key)
}

// IsInitialLoading reports a fetch in progress with nothing to show yet.
func (s *Session) IsInitialLoading() bool {
	return s.executor.Status(tasks.Key) == query.Loading
}

// IsFetching reports any fetch in progress.
func (s *Session) IsFetching() bool {
	return s.executor.Status(tasks.Key) != query.Idle
}

// PendingMutationCount is the number of optimistic or paused mutations. It
// reads the store counter, so listeners may call it.
func (s *Session) PendingMutationCount() int {
	return s.store.Mutating(tasks.Key)
}

// IsOnline reports the monitor state.
func (s *Session) IsOnline() bool { return s.monitor.Online() }

// UpdatedAt is when the collection was last written, zero if never.
func (s *Session) UpdatedAt() time.Time {
	return s.store.Entry(tasks.Key).UpdatedAt
}

// SubmitCreate adds a task optimistically.
func (s *Session) SubmitCreate() *mutation.Future {
	return s.coordinator.Submit(mutation.Create())
}

// SubmitComplete completes the task with id optimistically.
func (s *Session) SubmitComplete(id int) *mutation.Future {
	return s.coordinator.Submit(mutation.Complete(id))
}

// Refetch loads the collection in the foreground.
func (s *Session) Refetch(ctx context.Context) (tasks.Collection, error) {
	return s.executor.Fetch(ctx, tasks.Key)
}

// SetOffline forces the session offline, or hands control back to the
// prober. Mutations submitted while forced offline are paused.
func (s *Session) SetOffline(offline bool) {
	s.mu.Lock()
	s.forceOffline = offline
	s.mu.Unlock()

	if offline {
		s.monitor.SetOnline(false)
		return
	}
	if s.prober != nil {
		go s.prober.Check(s.ctx)
		return
	}
	s.monitor.SetOnline(true)
}

func (s *Session) offlineForced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceOffline
}

// OfflineForced reports whether the session was forced offline.
func (s *Session) OfflineForced() bool { return s.offlineForced() }

// Subscribe registers fn to be called after any observable change: cache
// data, fetch status, pending count or connectivity. fn must not block.
func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	u1 := s.store.Subscribe(func(cache.Event) { fn() })
	u2 := s.monitor.Subscribe(func(bool) { fn() })
	return func() {
		u1()
		u2()
	}
}

// OnError registers fn for mutation failures worth reporting.
func (s *Session) OnError(fn func(m mutation.Mutation, err error)) (unsubscribe func()) {
	return s.coordinator.OnError(func(f *mutation.Future, err error) {
		fn(f.Mutation(), err)
	})
}
