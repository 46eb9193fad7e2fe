// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/meta"
	"github.com/staranto/tasksync/internal/server"
)

// ServeCommandAction runs the in-memory Task Service until interrupted.
func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "serve") {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := server.Handler(server.NewService(server.Seed()), server.Options{
		ListDelay:   cmd.Duration("list-delay"),
		CreateDelay: cmd.Duration("create-delay"),
	})

	ready := make(chan string, 1)
	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ctx, cmd.String("addr"), h, ready) }()

	select {
	case addr := <-ready:
		fmt.Fprintf(Writer(cmd), "Task Service listening on %s\n", addr)
	case err := <-errc:
		return err
	}
	return <-errc
}

// ServeCommandBuilder constructs the cli.Command for "serve".
func ServeCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "serve",
		Usage:     "run the in-memory Task Service",
		UsageText: `tasksync serve [options]`,
		Flags:     NewServeFlags(meta.Config.Source),
		Action:    ServeCommandAction,
		Meta:      meta,
	}).Build()
}
