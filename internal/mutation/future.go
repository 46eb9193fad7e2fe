// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"sync"

	"github.com/staranto/tasksync/internal/tasks"
)

// State is a mutation's position in its lifecycle.
type State int

const (
	Idle State = iota
	Optimistic
	Paused
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Paused:
		return "paused"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Result is what a settled mutation produced.
type Result struct {
	// Data is the server's collection after the change.
	Data tasks.Collection
	// Applied reports whether Data was written to the cache. It is false when
	// another mutation for the same key was still pending.
	Applied bool
}

// Future tracks one submitted mutation.
type Future struct {
	id       string
	seq      uint64
	mutation Mutation

	mu     sync.Mutex
	state  State
	result Result
	err    error
	done   chan struct{}
}

func newFuture(id string, m Mutation) *Future {
	return &Future{
		id:       id,
		mutation: m,
		done:     make(chan struct{}),
	}
}

// ID identifies the mutation in logs.
func (f *Future) ID() string { return f.id }

// Seq is the submission order within the coordinator.
func (f *Future) Seq() uint64 { return f.seq }

// Mutation returns the descriptor that was submitted.
func (f *Future) Mutation() Mutation { return f.mutation }

// State returns the current state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done is closed once the mutation reaches a terminal state.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the mutation settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-f.done:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *Future) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Future) resolve(s State, r Result, err error) {
	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		return
	}
	f.state = s
	f.result = r
	f.err = err
	f.mu.Unlock()
	close(f.done)
}
