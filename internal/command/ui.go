// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	mylog "github.com/staranto/tasksync/internal/log"
	"github.com/staranto/tasksync/internal/meta"
	"github.com/staranto/tasksync/internal/session"
	"github.com/staranto/tasksync/internal/tui"
)

// UICommandAction runs the interactive task list.
func UICommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "ui") {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("ui requires a terminal; use ls, add or done instead")
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	var logw io.Writer = io.Discard
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logw = f
	}
	mylog.InitLogger(logw)
	defer mylog.InitLogger(os.Stderr)

	sess := session.New(NewClient(cmd), session.Options{
		ProbeInterval: cmd.Duration("probe-interval"),
	})
	if cmd.Bool("offline") {
		sess.SetOffline(true)
	}
	sess.Start(ctx)
	defer sess.Close()

	return tui.Run(ctx, sess)
}

// UICommandBuilder constructs the cli.Command for "ui".
func UICommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	flags := append(NewClientFlags("ui", meta.Config.Source), NewUIFlags(meta.Config.Source)...)
	flags = append(flags, &cli.BoolFlag{
		Name:  "offline",
		Usage: "start offline; toggle with o",
	})
	return (&CommandBuilder{
		Name:      "ui",
		Usage:     "interactive task list",
		UsageText: `tasksync ui [options]`,
		Flags:     flags,
		Action:    UICommandAction,
		Meta:      meta,
	}).Build()
}
