// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/tasksync/internal/meta"
	"github.com/staranto/tasksync/internal/mutation"
	"github.com/staranto/tasksync/internal/output"
	"github.com/staranto/tasksync/internal/session"
	"github.com/staranto/tasksync/internal/tasks"
)

func newDiffFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "diff",
		Aliases: []string{"d"},
		Usage:   "show the change to the collection instead of the result",
	}
}

// AddCommandAction creates --count tasks.
func AddCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "add") {
		return nil
	}

	count := int(cmd.Int("count"))
	return runMutations(ctx, cmd, func(sess *session.Session, _ tasks.Collection) []*mutation.Future {
		futures := make([]*mutation.Future, 0, count)
		for range count {
			futures = append(futures, sess.SubmitCreate())
		}
		return futures
	})
}

// DoneCommandAction completes the tasks named by id.
func DoneCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "done") {
		return nil
	}

	ids, err := ParseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return runMutations(ctx, cmd, func(sess *session.Session, before tasks.Collection) []*mutation.Future {
		futures := make([]*mutation.Future, 0, len(ids))
		for _, id := range ids {
			if _, ok := before.Find(id); !ok {
				log.Warnf("task %d not found", id)
			}
			futures = append(futures, sess.SubmitComplete(id))
		}
		return futures
	})
}

// runMutations loads the collection, submits the mutations built by submit,
// waits for all of them to settle and prints the outcome. The first mutation
// error is returned after printing.
func runMutations(
	ctx context.Context,
	cmd *cli.Command,
	submit func(*session.Session, tasks.Collection) []*mutation.Future,
) error {
	sess := session.New(NewClient(cmd), session.Options{ProbeInterval: -1})
	defer sess.Close()

	before, err := sess.Refetch(ctx)
	if err != nil {
		return err
	}

	futures := submit(sess, before)
	var g errgroup.Group
	for _, f := range futures {
		g.Go(func() error {
			if _, err := f.Wait(ctx); err != nil {
				return fmt.Errorf("failed to %s: %w", f.Mutation(), err)
			}
			return nil
		})
	}
	mutErr := g.Wait()

	// Concurrent responses may each predate the others' writes, so several
	// mutations end with a fresh read.
	after, ok := sess.CurrentCollection()
	if !ok || len(futures) > 1 || sess.Store().Entry(tasks.Key).Stale {
		if after, err = sess.Refetch(ctx); err != nil {
			if mutErr != nil {
				return mutErr
			}
			return err
		}
	}

	w := Writer(cmd)
	if cmd.Bool("diff") {
		d, err := output.Diff(before, after, cmd.Bool("color"))
		if err != nil {
			return err
		}
		fmt.Fprint(w, d)
		return mutErr
	}

	opts := OutputOptions(cmd)
	opts.Updated = time.Now()
	if err := output.Spit(w, after, opts); err != nil {
		return err
	}
	return mutErr
}

// AddCommandBuilder constructs the cli.Command for "add".
func AddCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	flags := append(NewClientFlags("add", meta.Config.Source),
		newDiffFlag(),
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "number of tasks to create",
			Value:   1,
			Validator: func(value int) error {
				return FlagValidators(value, PositiveIntValidator)
			},
		},
	)
	return (&CommandBuilder{
		Name:      "add",
		Usage:     "create tasks",
		UsageText: `tasksync add [options]`,
		Flags:     flags,
		Action:    AddCommandAction,
		Meta:      meta,
		Output:    true,
	}).Build()
}

// DoneCommandBuilder constructs the cli.Command for "done".
func DoneCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "done",
		Usage:     "complete tasks",
		UsageText: `tasksync done [options] ID...`,
		Flags:     append(NewClientFlags("done", meta.Config.Source), newDiffFlag()),
		Action:    DoneCommandAction,
		Meta:      meta,
		Output:    true,
	}).Build()
}
