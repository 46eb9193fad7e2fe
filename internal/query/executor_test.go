// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/tasksync/internal/cache"
	"github.com/staranto/tasksync/internal/connectivity"
	"github.com/staranto/tasksync/internal/tasks"
)

// gatedFetcher blocks every fetch until a response is pushed on release. It
// honors ctx only when honorCtx is set, which lets tests model a response
// that arrives after the caller gave up.
type gatedFetcher struct {
	started  chan struct{}
	release  chan tasks.Collection
	honorCtx bool
	calls    atomic.Int32
}

func newGatedFetcher(honorCtx bool) *gatedFetcher {
	return &gatedFetcher{
		started:  make(chan struct{}, 16),
		release:  make(chan tasks.Collection, 16),
		honorCtx: honorCtx,
	}
}

func (f *gatedFetcher) Fetch(ctx context.Context, key string) (tasks.Collection, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	if f.honorCtx {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case data := <-f.release:
			return data, nil
		}
	}
	return <-f.release, nil
}

func waitStarted(t *testing.T, f *gatedFetcher) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(time.Second):
		t.Fatal("fetch did not start")
	}
}

func TestExecutor_FetchStores(t *testing.T) {
	store := cache.New()
	want := tasks.Collection{{ID: 1, Label: "a"}}
	e := New(store, FetcherFunc(func(ctx context.Context, key string) (tasks.Collection, error) {
		return want, nil
	}))
	defer e.Close()

	got, err := e.Fetch(context.Background(), tasks.Key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, ok := store.Get(tasks.Key)
	assert.True(t, ok)
	assert.Equal(t, want, data)
	assert.Equal(t, Idle, e.Status(tasks.Key))
}

func TestExecutor_NilResponseIsEmpty(t *testing.T) {
	store := cache.New()
	e := New(store, FetcherFunc(func(ctx context.Context, key string) (tasks.Collection, error) {
		return nil, nil
	}))
	defer e.Close()

	_, err := e.Fetch(context.Background(), tasks.Key)
	require.NoError(t, err)
	data, ok := store.Get(tasks.Key)
	assert.True(t, ok)
	assert.Empty(t, data)
}

func TestExecutor_DisabledWhileMutating(t *testing.T) {
	store := cache.New()
	f := newGatedFetcher(true)
	e := New(store, f)
	defer e.Close()

	store.MutationStarted(tasks.Key)
	_, err := e.Fetch(context.Background(), tasks.Key)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestExecutor_LoadingVsRefetching(t *testing.T) {
	store := cache.New()
	f := newGatedFetcher(true)
	e := New(store, f)
	defer e.Close()

	done := make(chan error, 1)
	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		done <- err
	}()
	waitStarted(t, f)
	assert.Equal(t, Loading, e.Status(tasks.Key))
	f.release <- tasks.Collection{{ID: 1, Label: "a"}}
	require.NoError(t, <-done)

	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		done <- err
	}()
	waitStarted(t, f)
	assert.Equal(t, Refetching, e.Status(tasks.Key))
	f.release <- tasks.Collection{}
	require.NoError(t, <-done)
	assert.Equal(t, Idle, e.Status(tasks.Key))
}

func TestExecutor_CancelDiscardsLateResult(t *testing.T) {
	store := cache.New()
	store.Set(tasks.Key, tasks.Collection{{ID: 1, Label: "a"}})
	f := newGatedFetcher(false)
	e := New(store, f)
	defer e.Close()

	done := make(chan error, 1)
	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		done <- err
	}()
	waitStarted(t, f)

	assert.True(t, e.Cancel(tasks.Key))
	assert.False(t, e.Cancel(tasks.Key))

	// An optimistic write lands after the cancel.
	store.Set(tasks.Key, tasks.Collection{{ID: 1, Label: "a"}, {ID: -1, Label: "placeholder"}})

	// The stale response arrives anyway.
	f.release <- tasks.Collection{{ID: 1, Label: "a"}}
	err := <-done
	assert.True(t, tasks.IsCancelled(err))

	data, _ := store.Get(tasks.Key)
	assert.Len(t, data, 2, "late fetch result must not overwrite the projection")
}

func TestExecutor_DiscardsWhenMutationStarted(t *testing.T) {
	store := cache.New()
	f := newGatedFetcher(false)
	e := New(store, f)
	defer e.Close()

	done := make(chan error, 1)
	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		done <- err
	}()
	waitStarted(t, f)

	store.MutationStarted(tasks.Key)
	f.release <- tasks.Collection{{ID: 1, Label: "a"}}
	assert.True(t, tasks.IsCancelled(<-done))

	_, ok := store.Get(tasks.Key)
	assert.False(t, ok)
}

func TestExecutor_NewerFetchSupersedes(t *testing.T) {
	store := cache.New()
	f := newGatedFetcher(true)
	e := New(store, f)
	defer e.Close()

	first := make(chan error, 1)
	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		first <- err
	}()
	waitStarted(t, f)

	second := make(chan error, 1)
	go func() {
		_, err := e.Fetch(context.Background(), tasks.Key)
		second <- err
	}()

	assert.True(t, tasks.IsCancelled(<-first))
	waitStarted(t, f)
	f.release <- tasks.Collection{{ID: 2, Label: "b"}}
	require.NoError(t, <-second)

	data, _ := store.Get(tasks.Key)
	assert.Equal(t, tasks.Collection{{ID: 2, Label: "b"}}, data)
}

func TestExecutor_CallerContextCancels(t *testing.T) {
	store := cache.New()
	f := newGatedFetcher(true)
	e := New(store, f)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Fetch(ctx, tasks.Key)
		done <- err
	}()
	waitStarted(t, f)
	cancel()

	assert.True(t, tasks.IsCancelled(<-done))
	assert.Equal(t, Idle, e.Status(tasks.Key))
}

func TestExecutor_FetchErrorKeepsData(t *testing.T) {
	store := cache.New()
	store.Set(tasks.Key, tasks.Collection{{ID: 1, Label: "a"}})
	boom := tasks.NetworkError("GET /tasks", errors.New("connection refused"))
	e := New(store, FetcherFunc(func(ctx context.Context, key string) (tasks.Collection, error) {
		return nil, boom
	}))
	defer e.Close()

	_, err := e.Fetch(context.Background(), tasks.Key)
	assert.True(t, tasks.IsNetwork(err))

	data, _ := store.Get(tasks.Key)
	assert.Len(t, data, 1)
}

func TestExecutor_WatchRefetchesOnInvalidate(t *testing.T) {
	store := cache.New()
	var calls atomic.Int32
	e := New(store, FetcherFunc(func(ctx context.Context, key string) (tasks.Collection, error) {
		calls.Add(1)
		return tasks.Collection{{ID: 3, Label: "c"}}, nil
	}))
	defer e.Close()
	e.Watch(nil, tasks.Key)

	store.Set(tasks.Key, tasks.Collection{{ID: 1, Label: "a"}})
	store.Invalidate(tasks.Key)

	assert.Eventually(t, func() bool {
		data, _ := store.Get(tasks.Key)
		return len(data) == 1 && data[0].ID == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecutor_WatchRefetchesOnReconnect(t *testing.T) {
	store := cache.New()
	m := connectivity.NewMonitor(false)
	var calls atomic.Int32
	e := New(store, FetcherFunc(func(ctx context.Context, key string) (tasks.Collection, error) {
		calls.Add(1)
		return tasks.Collection{{ID: 1, Label: "a"}}, nil
	}))
	defer e.Close()
	e.Watch(m, tasks.Key)

	// Offline: the refetch is deferred, the entry stays stale.
	store.Invalidate(tasks.Key)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	m.SetOnline(true)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !store.Entry(tasks.Key).Stale }, time.Second, time.Millisecond)
}
