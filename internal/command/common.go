// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/client"
	"github.com/staranto/tasksync/internal/meta"
	"github.com/staranto/tasksync/internal/output"
)

func newTLDRFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "tldr",
		Usage: "show tldr page",
	}
}

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr tasksync <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "tasksync", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CommandBuilder constructs a subcommand with the shared metadata, tldr flag
// and validator. Output commands also get the global output flags.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
	// Output adds --output, --filter, --sort, --titles and --color.
	Output bool
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append(cb.Flags, newTLDRFlag())
	if cb.Output {
		flags = append(flags, NewGlobalFlags(cb.Name)...)
	}
	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: cb.Action,
	}
}

// NewClient builds a Task Service client from the --url, --retry-max and
// --timeout flags.
func NewClient(cmd *cli.Command) *client.Client {
	return client.New(client.Options{
		BaseURL:  cmd.String("url"),
		RetryMax: int(cmd.Int("retry-max")),
		Timeout:  cmd.Duration("timeout"),
	})
}

// OutputOptions collects the global output flags.
func OutputOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format: cmd.String("output"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
	}
}

// Writer is where a command's results go: the root command's Writer, or
// stdout.
func Writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
