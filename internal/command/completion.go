// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/tasksync/internal/meta"
)

const bashCompletionScript = `# bash completion for tasksync
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_tasksync()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "serve ls add done ui completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local output="--color -c --filter -f --output -o --sort -s --titles -t --tldr"
    local client="--url -u --retry-max --timeout"

    case "$cmd" in
        serve)
            local opts="--addr --list-delay --create-delay --tldr"
            ;;
        ls)
            local opts="$output $client"
            ;;
        add)
            local opts="$output $client --count -n --diff -d"
            ;;
        done)
            local opts="$output $client --diff -d"
            ;;
        ui)
            local opts="$client --probe-interval --log-file --offline --tldr"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$output"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _tasksync tasksync
`

const zshCompletionScript = `#compdef tasksync

_tasksync() {
  local -a cmds
  cmds=(
    'serve:run the in-memory Task Service'
    'ls:list tasks'
    'add:create tasks'
    'done:complete tasks'
    'ui:interactive task list'
    'completion:generate shell completion script'
  )

  local -a output
  output=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a client
  client=(
  '(-u --url)'{-u,--url}'[Task Service URL]:url'
  '--retry-max[transport retries]:count'
  '--timeout[request timeout]:duration'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'tasksync commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    serve)
      _arguments -C \
        '--addr[listen address]:addr' \
        '--list-delay[list latency]:duration' \
        '--create-delay[create latency]:duration' \
        '--tldr[show tldr page]'
      ;;
    ls)
      _arguments -C $output $client
      ;;
    add)
      _arguments -C \
        $output $client \
        '(-n --count)'{-n,--count}'[number of tasks]:count' \
        '(-d --diff)'{-d,--diff}'[show the change]'
      ;;
    done)
      _arguments -C \
        $output $client \
        '(-d --diff)'{-d,--diff}'[show the change]' \
        '*:task id'
      ;;
    ui)
      _arguments -C \
        $client \
        '--probe-interval[reachability check interval]:duration' \
        '--log-file[log file]:file:_files' \
        '--offline[start offline]' \
        '--tldr[show tldr page]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $output
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _tasksync tasksync
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := Writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: tasksync completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "tasksync completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
