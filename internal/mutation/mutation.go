// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"context"
	"fmt"

	"github.com/staranto/tasksync/internal/tasks"
)

// Kind tags the mutation variants.
type Kind int

const (
	KindCreate Kind = iota + 1
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindComplete:
		return "complete"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Projector predicts the collection after a mutation from the collection
// before it. It must be pure: the coordinator calls it inside the store's
// critical section.
type Projector func(prev tasks.Collection) tasks.Collection

// Remote performs mutations against the Task Service. Both calls return the
// authoritative collection after the change.
type Remote interface {
	Create(ctx context.Context) (tasks.Collection, error)
	Complete(ctx context.Context, id int) (tasks.Collection, error)
}

// Mutation describes one write. Build it with Create or Complete.
type Mutation struct {
	Kind Kind
	// Key is the cache key the mutation projects into.
	Key string
	// ID is the item to complete. Unused for creates.
	ID int
	// Placeholder is the item a create shows until the server confirms it.
	Placeholder tasks.Item
	// Project overrides the default projector for Kind when set.
	Project Projector
}

// Create describes the creation of a new task.
func Create() Mutation {
	return Mutation{
		Kind:        KindCreate,
		Key:         tasks.Key,
		Placeholder: tasks.NewPlaceholder(),
	}
}

// Complete describes completing the task with the given id.
func Complete(id int) Mutation {
	return Mutation{
		Kind: KindComplete,
		Key:  tasks.Key,
		ID:   id,
	}
}

// Projector returns the function that computes the optimistic state.
func (m Mutation) Projector() Projector {
	if m.Project != nil {
		return m.Project
	}
	switch m.Kind {
	case KindCreate:
		placeholder := m.Placeholder
		return func(prev tasks.Collection) tasks.Collection {
			return tasks.WithItem(prev, placeholder)
		}
	case KindComplete:
		id := m.ID
		return func(prev tasks.Collection) tasks.Collection {
			return tasks.WithoutID(prev, id)
		}
	}
	return func(prev tasks.Collection) tasks.Collection { return prev }
}

func (m Mutation) key() string {
	if m.Key == "" {
		return tasks.Key
	}
	return m.Key
}

func (m Mutation) send(ctx context.Context, r Remote) (tasks.Collection, error) {
	switch m.Kind {
	case KindCreate:
		return r.Create(ctx)
	case KindComplete:
		return r.Complete(ctx, m.ID)
	}
	return nil, fmt.Errorf("unsupported mutation kind %s", m.Kind)
}

func (m Mutation) String() string {
	if m.Kind == KindComplete {
		return fmt.Sprintf("%s(%d)", m.Kind, m.ID)
	}
	return m.Kind.String()
}
