// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/staranto/tasksync/internal/cache"
	"github.com/staranto/tasksync/internal/connectivity"
	"github.com/staranto/tasksync/internal/tasks"
)

// Canceler aborts an outstanding read for a key. The query executor
// implements it.
type Canceler interface {
	Cancel(key string) bool
}

// ErrorListener is told about mutation failures worth reporting to the user.
// Cancellations are not reported.
type ErrorListener func(f *Future, err error)

// Coordinator applies mutations optimistically, sends them, reconciles the
// cache with the server's answer and parks them while offline.
type Coordinator struct {
	store   *cache.Store
	reads   Canceler
	remote  Remote
	monitor *connectivity.Monitor

	mu        sync.Mutex
	seq       uint64
	active    map[string][]*Future // optimistic or paused, in submission order
	paused    []*Future            // in submission order
	replaying bool
	listeners map[int]ErrorListener
	nextID    int

	ctx   context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup
	unsub func()
}

// New returns a coordinator. monitor may be nil, in which case the
// coordinator always considers itself online. reads may be nil when no query
// executor shares the store.
func New(store *cache.Store, reads Canceler, remote Remote, monitor *connectivity.Monitor) *Coordinator {
	ctx, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		store:     store,
		reads:     reads,
		remote:    remote,
		monitor:   monitor,
		active:    make(map[string][]*Future),
		listeners: make(map[int]ErrorListener),
		ctx:       ctx,
		stop:      stop,
	}
	if monitor != nil {
		c.unsub = monitor.Subscribe(func(online bool) {
			if online {
				c.Resume()
			}
		})
	}
	return c
}

// Submit applies m's projection to the cache and dispatches it. The
// projection is visible to every reader before Submit returns. When offline
// the mutation is parked as Paused and replayed on reconnect.
func (c *Coordinator) Submit(m Mutation) *Future {
	f := newFuture(uuid.Must(uuid.NewV7()).String(), m)
	key := m.key()

	c.mu.Lock()
	c.seq++
	f.seq = c.seq
	c.active[key] = append(c.active[key], f)
	c.store.MutationStarted(key)

	// A fetch that lands after the projection would overwrite it.
	if c.reads != nil {
		c.reads.Cancel(key)
	}
	c.store.Update(key, func(prev tasks.Collection) tasks.Collection {
		return m.Projector()(prev)
	})
	f.setState(Optimistic)

	ctxLog := log.WithFields(log.Fields{"mutation": f.id, "seq": f.seq, "op": m.String()})
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		c.settle(f, nil, fmt.Errorf("%s: %w", m, tasks.ErrCancelled))
		return f
	}
	if c.monitor != nil && !c.monitor.Online() {
		f.setState(Paused)
		c.paused = append(c.paused, f)
		c.mu.Unlock()
		ctxLog.Info("offline, mutation paused")
		return f
	}
	c.wg.Add(1)
	c.mu.Unlock()

	ctxLog.Debug("mutation submitted")
	go func() {
		defer c.wg.Done()
		c.dispatch(f)
	}()
	return f
}

// dispatch sends f and settles it. It blocks for the duration of the call.
func (c *Coordinator) dispatch(f *Future) {
	data, err := f.mutation.send(c.ctx, c.remote)
	if err != nil && c.ctx.Err() != nil {
		err = fmt.Errorf("%s: %w: %w", f.mutation, tasks.ErrCancelled, err)
	}
	c.settle(f, data, err)
}

// settle moves f to its terminal state and reconciles the cache.
func (c *Coordinator) settle(f *Future, data tasks.Collection, err error) {
	key := f.mutation.key()
	ctxLog := log.WithFields(log.Fields{"mutation": f.id, "seq": f.seq, "op": f.mutation.String()})

	c.mu.Lock()
	c.removeActive(key, f)
	others := len(c.active[key])

	var (
		report []ErrorListener
		state  = Succeeded
		result Result
	)
	switch {
	case err == nil:
		// Only the last writer standing may replace the composed projection.
		applied := others == 0
		if applied {
			if data == nil {
				data = tasks.Collection{}
			}
			c.store.Set(key, data)
			ctxLog.Debug("mutation succeeded, cache reconciled")
		} else {
			ctxLog.Debugf("mutation succeeded, response discarded: %d other mutation(s) pending", others)
		}
		result = Result{Data: data.Clone(), Applied: applied}
	default:
		// The server state is unknown; refetch rather than roll back.
		c.store.Invalidate(key)
		state = Failed
		if tasks.IsCancelled(err) {
			ctxLog.Debug("mutation cancelled")
		} else {
			ctxLog.WithError(err).Warn("mutation failed")
			for _, id := range sortedIDs(c.listeners) {
				report = append(report, c.listeners[id])
			}
		}
	}
	c.store.MutationSettled(key)
	c.mu.Unlock()

	for _, l := range report {
		l(f, err)
	}
	f.resolve(state, result, err)
}

func (c *Coordinator) removeActive(key string, f *Future) {
	list := c.active[key]
	for i, v := range list {
		if v == f {
			c.active[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(c.active[key]) == 0 {
		delete(c.active, key)
	}
}

// Resume replays paused mutations, one at a time, in submission order. It
// returns immediately; a replay already running picks up new work itself.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	if c.replaying || len(c.paused) == 0 || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.replaying = true
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.replay()
	}()
}

func (c *Coordinator) replay() {
	for {
		c.mu.Lock()
		if len(c.paused) == 0 || c.ctx.Err() != nil || (c.monitor != nil && !c.monitor.Online()) {
			c.replaying = false
			c.mu.Unlock()
			return
		}
		f := c.paused[0]
		c.paused[0] = nil
		c.paused = c.paused[1:]
		f.setState(Optimistic)
		c.mu.Unlock()

		log.WithFields(log.Fields{"mutation": f.id, "seq": f.seq, "op": f.mutation.String()}).Info("replaying paused mutation")
		c.dispatch(f)
	}
}

// Pending returns the number of optimistic or paused mutations for key.
func (c *Coordinator) Pending(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active[key])
}

// Paused returns the parked mutations in submission order.
func (c *Coordinator) Paused() []*Future {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Future, len(c.paused))
	copy(out, c.paused)
	return out
}

// OnError registers l for reportable failures and returns a function that
// removes it.
func (c *Coordinator) OnError(l ErrorListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close aborts in-flight mutations, fails paused ones and waits for
// background work to finish.
func (c *Coordinator) Close() {
	if c.unsub != nil {
		c.unsub()
	}

	c.mu.Lock()
	c.stop()
	paused := c.paused
	c.paused = nil
	c.mu.Unlock()

	for _, f := range paused {
		c.settle(f, nil, fmt.Errorf("%s: %w", f.mutation, tasks.ErrCancelled))
	}
	c.wg.Wait()
}

func sortedIDs(m map[int]ErrorListener) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
