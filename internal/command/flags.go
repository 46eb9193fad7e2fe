// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/client"
	"github.com/staranto/tasksync/internal/config"
	"github.com/staranto/tasksync/internal/connectivity"
	"github.com/staranto/tasksync/internal/server"
)

func init() {
	cfg, _ = config.Load()
}

var cfg config.Type

// NewGlobalFlags returns the output flags shared by commands that print a
// collection. params[0] is the config namespace.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"color", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"sort", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"titles", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("titles", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
	}

	return
}

// NewURLFlag constructs the "url" flag naming the Task Service, namespaced to
// a command and config file. params[1] is the config file.
func NewURLFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "Task Service base URL",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("TASKSYNC_URL"),
		),
		Value: client.DefaultURL,
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator, URLValidator)
		},
	}

	if len(params) == 2 {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NewClientFlags returns the transport flags for commands that talk to the
// Task Service.
func NewClientFlags(ns string, path string) []cli.Flag {
	return []cli.Flag{
		NewURLFlag(ns, path),
		&cli.IntFlag{
			Name:  "retry-max",
			Usage: "transport retries for idempotent requests; -1 disables",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TASKSYNC_RETRY_MAX"),
				yaml.YAML(ns+"."+"retry-max", altsrc.StringSourcer(path)),
				yaml.YAML("retry-max", altsrc.StringSourcer(path)),
			),
			Value: 2,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-attempt request timeout; 0 means none",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"timeout", altsrc.StringSourcer(path)),
				yaml.YAML("timeout", altsrc.StringSourcer(path)),
			),
			Value: 30 * time.Second,
		},
	}
}

// NewServeFlags returns the flags of the serve command.
func NewServeFlags(path string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TASKSYNC_ADDR"),
				yaml.YAML("serve.addr", altsrc.StringSourcer(path)),
			),
			Value: ":4000",
		},
		&cli.DurationFlag{
			Name:  "list-delay",
			Usage: "artificial latency for GET /tasks",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("serve.list-delay", altsrc.StringSourcer(path)),
			),
			Value: server.DefaultListDelay,
		},
		&cli.DurationFlag{
			Name:  "create-delay",
			Usage: "artificial latency for POST /tasks/create",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("serve.create-delay", altsrc.StringSourcer(path)),
			),
			Value: server.DefaultCreateDelay,
		},
	}
}

// NewUIFlags returns the flags of the ui command.
func NewUIFlags(path string) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "probe-interval",
			Usage: "how often to check that the Task Service is reachable",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("ui.probe-interval", altsrc.StringSourcer(path)),
			),
			Value: connectivity.DefaultInterval,
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "write logs here instead of discarding them",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TASKSYNC_LOG_FILE"),
				yaml.YAML("ui.log-file", altsrc.StringSourcer(path)),
			),
		},
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)
	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)
	return flag
}
