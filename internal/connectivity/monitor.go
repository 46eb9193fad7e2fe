// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"sync"

	"github.com/apex/log"
)

// Listener is told about every online/offline transition.
type Listener func(online bool)

// Monitor tracks whether the Task Service is reachable. It holds no mutation
// data; it only reports transitions.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]Listener
	order     []int
	nextID    int
}

// NewMonitor returns a monitor in the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online:    online,
		listeners: make(map[int]Listener),
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the state. On a transition every listener is called
// synchronously, in subscription order, before SetOnline returns. Setting the
// current state again is a no-op.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	ls := make([]Listener, 0, len(m.order))
	for _, id := range m.order {
		ls = append(ls, m.listeners[id])
	}
	m.mu.Unlock()

	log.WithField("online", online).Info("connectivity changed")
	for _, l := range ls {
		l(online)
	}
}

// Subscribe registers l and returns a function that removes it.
func (m *Monitor) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.order = append(m.order, id)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.listeners, id)
			for i, v := range m.order {
				if v == id {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
		})
	}
}
