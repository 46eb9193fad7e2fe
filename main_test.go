// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/tasksync/internal/config"
)

func TestMangleArguments(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("testdata", "sets.yaml"))
	require.NoError(t, err)
	t.Setenv(config.EnvPath, path)
	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "defaults",
			args: []string{"tasksync", "ls", "-o", "json"},
			want: []string{"tasksync", "ls", "--titles", "-o", "json"},
		},
		{
			name: "named set",
			args: []string{"tasksync", "ls", "-o", "json", "@mine"},
			want: []string{"tasksync", "ls", "-o", "json", "--filter", "label@truck", "--sort", "-id"},
		},
		{
			name: "unknown set",
			args: []string{"tasksync", "ls", "@nope"},
			want: []string{"tasksync", "ls"},
		},
		{
			name: "no sets for command",
			args: []string{"tasksync", "done", "1"},
			want: []string{"tasksync", "done", "1"},
		},
		{
			name: "help",
			args: []string{"tasksync", "ls", "@mine", "-h"},
			want: []string{"tasksync", "ls", "--help"},
		},
		{
			name: "root flag",
			args: []string{"tasksync", "--version"},
			want: []string{"tasksync", "--version"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]string(nil), tt.args...)
			assert.Equal(t, tt.want, mangleArguments(in))
			assert.Equal(t, tt.args, in, "input must not be modified")
		})
	}
}
