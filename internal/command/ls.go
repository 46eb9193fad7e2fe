// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/meta"
	"github.com/staranto/tasksync/internal/output"
)

// LsCommandAction fetches the collection once and prints it.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "ls") {
		return nil
	}

	data, err := NewClient(cmd).Tasks(ctx)
	if err != nil {
		return err
	}

	opts := OutputOptions(cmd)
	opts.Updated = time.Now()
	return output.Spit(Writer(cmd), data, opts)
}

// LsCommandBuilder constructs the cli.Command for "ls".
func LsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list tasks",
		UsageText: `tasksync ls [options]`,
		Flags:     NewClientFlags("ls", meta.Config.Source),
		Action:    LsCommandAction,
		Meta:      meta,
		Output:    true,
	}).Build()
}
