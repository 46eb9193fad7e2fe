// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/tasksync/internal/config"
	"github.com/staranto/tasksync/internal/server"
	"github.com/staranto/tasksync/internal/tasks"
)

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(server.Handler(server.NewService(server.Seed()), server.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes tasksync with args against the test config and returns what
// the command wrote.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	path, err := filepath.Abs(filepath.Join("testdata", "tasksync.yaml"))
	require.NoError(t, err)
	t.Setenv(config.EnvPath, path)
	for _, env := range []string{"TASKSYNC_URL", "TASKSYNC_RETRY_MAX"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	config.Config = config.Type{}

	args = append([]string{"tasksync"}, args...)
	ctx := context.Background()
	app, err := InitApp(ctx, args)
	require.NoError(t, err)

	var out bytes.Buffer
	app.Writer = &out
	err = app.Run(ctx, args)
	return out.String(), err
}

func decode(t *testing.T, s string) tasks.Collection {
	t.Helper()
	var c tasks.Collection
	require.NoError(t, json.Unmarshal([]byte(s), &c))
	return c
}

func TestLs(t *testing.T) {
	srv := newService(t)

	out, err := run(t, "ls", "--url", srv.URL, "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, server.Seed(), decode(t, out))

	out, err = run(t, "ls", "--url", srv.URL, "-o", "json", "-f", "label@barcode")
	require.NoError(t, err)
	assert.Equal(t, tasks.Collection{{ID: 2, Label: "Scan barcode of truck #2"}}, decode(t, out))

	out, err = run(t, "ls", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Take photo of truck #1")
	assert.Contains(t, out, "updated")
}

func TestLs_Unreachable(t *testing.T) {
	srv := newService(t)
	url := srv.URL
	srv.Close()

	_, err := run(t, "ls", "--url", url)
	require.Error(t, err)
	assert.True(t, tasks.IsNetwork(err))
}

func TestAdd(t *testing.T) {
	srv := newService(t)

	out, err := run(t, "add", "--url", srv.URL, "-o", "json")
	require.NoError(t, err)
	got := decode(t, out)
	require.Len(t, got, 3)
	assert.Equal(t, tasks.Item{ID: server.FirstID, Label: "New task 10"}, got[2])

	out, err = run(t, "add", "--url", srv.URL, "-o", "json", "--count", "2")
	require.NoError(t, err)
	got = decode(t, out)
	assert.Len(t, got, 5)
	assert.Empty(t, got.Placeholders())

	_, err = run(t, "add", "--url", srv.URL, "--count", "0")
	assert.Error(t, err)
}

func TestDone(t *testing.T) {
	srv := newService(t)

	out, err := run(t, "done", "--url", srv.URL, "-o", "json", "1")
	require.NoError(t, err)
	assert.Equal(t, tasks.Collection{{ID: 2, Label: "Scan barcode of truck #2"}}, decode(t, out))

	// Unknown ids are a no-op on the server.
	out, err = run(t, "done", "--url", srv.URL, "-o", "json", "99")
	require.NoError(t, err)
	assert.Len(t, decode(t, out), 1)

	out, err = run(t, "done", "--url", srv.URL, "2")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks left!")
}

func TestDone_Diff(t *testing.T) {
	srv := newService(t)

	out, err := run(t, "done", "--url", srv.URL, "--diff", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Take photo of truck #1")
	assert.Contains(t, out, "-")
}

func TestDone_BadArgs(t *testing.T) {
	srv := newService(t)

	_, err := run(t, "done", "--url", srv.URL)
	assert.Error(t, err)

	_, err = run(t, "done", "--url", srv.URL, "abc")
	assert.ErrorContains(t, err, `invalid task id "abc"`)

	_, err = run(t, "done", "--url", srv.URL, "--diff", "-o", "json", "1")
	assert.ErrorContains(t, err, "--diff requires --output text")
}

func TestFlags_Validation(t *testing.T) {
	_, err := run(t, "ls", "-o", "xml")
	assert.Error(t, err)

	_, err = run(t, "ls", "--url", "localhost:4000")
	assert.Error(t, err)
}

func TestCompletion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "complete -F _tasksync tasksync")

	out, err = run(t, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef tasksync")
}

func TestUI_RequiresTerminal(t *testing.T) {
	_, err := run(t, "ui", "--url", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "requires a terminal")
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs([]string{"1", "10"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 10}, ids)

	_, err = ParseIDs(nil)
	assert.Error(t, err)

	_, err = ParseIDs([]string{"-3"})
	assert.ErrorContains(t, err, "still being created")
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      FlagValidatorType
		value   any
		wantErr bool
	}{
		{"output text", OutputValidator, "text", false},
		{"output yaml", OutputValidator, "yaml", false},
		{"output raw", OutputValidator, "raw", true},
		{"url ok", URLValidator, "http://localhost:4000", false},
		{"url no scheme", URLValidator, "localhost:4000", true},
		{"url ftp", URLValidator, "ftp://host", true},
		{"jammed", JammedFlagValidator, "--output", true},
		{"not jammed", JammedFlagValidator, "label~x", false},
		{"positive", PositiveIntValidator, 1, false},
		{"zero", PositiveIntValidator, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
