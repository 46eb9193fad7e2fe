// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/staranto/tasksync/internal/tasks"
)

// DefaultURL is where `tasksync serve` listens by default.
const DefaultURL = "http://localhost:4000"

// ErrMalformed means a response body was not a task collection.
var ErrMalformed = errors.New("malformed task collection")

// Options configure a Client. Zero values fall back to the defaults below.
type Options struct {
	// BaseURL is the Task Service root, e.g. http://localhost:4000.
	BaseURL string
	// RetryMax bounds transport retries of idempotent requests. Negative
	// disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// Timeout bounds a single attempt. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Client talks to the Task Service. It satisfies query.Fetcher,
// mutation.Remote and connectivity.Pinger.
type Client struct {
	base string
	http *retryablehttp.Client
}

type noRetryKey struct{}

// New returns a client for opts.BaseURL.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultURL
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveledLogger{}
	switch {
	case opts.RetryMax < 0:
		rc.RetryMax = 0
	case opts.RetryMax > 0:
		rc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.CheckRetry = checkRetry
	// Hand back the last response so a 5xx stays distinguishable from a
	// transport failure.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, http: rc}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.base }

// checkRetry is the default policy except for requests marked with
// noRetryKey, which get exactly one attempt.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Tasks returns the current collection.
func (c *Client) Tasks(ctx context.Context) (tasks.Collection, error) {
	body, err := c.do(ctx, http.MethodGet, "/tasks")
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Fetch implements query.Fetcher. Only tasks.Key is served.
func (c *Client) Fetch(ctx context.Context, key string) (tasks.Collection, error) {
	if key != tasks.Key {
		return nil, fmt.Errorf("unknown cache key %q", key)
	}
	return c.Tasks(ctx)
}

// Create asks the service for a new task and returns the resulting
// collection. A create is never retried: a lost response could otherwise
// create the task twice.
func (c *Client) Create(ctx context.Context) (tasks.Collection, error) {
	body, err := c.do(context.WithValue(ctx, noRetryKey{}, true), http.MethodPost, "/tasks/create")
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Complete removes the task with id and returns the resulting collection.
func (c *Client) Complete(ctx context.Context, id int) (tasks.Collection, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d/complete", id))
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Ping checks that the service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(context.WithValue(ctx, noRetryKey{}, true), http.MethodGet, "/")
	return err
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	op := method + " " + path

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if ctx.Err() != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%s: %w: %w", op, tasks.ErrCancelled, ctx.Err())
	}
	if err != nil {
		return nil, tasks.NetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debugf("%s returned %s", op, resp.Status)
		return nil, &tasks.ServerError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}

	var doc bytes.Buffer
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, tasks.ErrCancelled, ctx.Err())
		}
		return nil, tasks.NetworkError(op, fmt.Errorf("failed to read response: %w", err))
	}
	return doc.Bytes(), nil
}

// Decode parses a JSON array of {"id", "label"} objects. An empty array
// yields a defined, empty collection.
func Decode(body []byte) (tasks.Collection, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrMalformed, doc.Type)
	}

	out := tasks.Collection{}
	var bad error
	doc.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id")
		if id.Type != gjson.Number {
			bad = fmt.Errorf("%w: item without numeric id: %s", ErrMalformed, v.Raw)
			return false
		}
		out = append(out, tasks.Item{ID: int(id.Int()), Label: v.Get("label").String()})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}
