// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"context"
	"time"

	"github.com/apex/log"
)

// DefaultInterval is how often the prober checks reachability.
const DefaultInterval = 2 * time.Second

// Pinger checks whether the remote service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Prober drives a Monitor from periodic pings.
type Prober struct {
	Monitor  *Monitor
	Pinger   Pinger
	Interval time.Duration
	// Timeout bounds a single ping. Zero means Interval.
	Timeout time.Duration

	// paused suppresses probing, e.g. while the user forces offline mode.
	paused func() bool
}

// NewProber returns a prober for m using p.
func NewProber(m *Monitor, p Pinger, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Prober{Monitor: m, Pinger: p, Interval: interval}
}

// PauseWhen installs a predicate; while it returns true the prober skips its
// checks and leaves the monitor alone.
func (p *Prober) PauseWhen(f func() bool) {
	p.paused = f
}

// Check pings once and records the outcome.
func (p *Prober) Check(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = p.Interval
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.Pinger.Ping(pctx)
	if ctx.Err() != nil {
		// Shutting down; don't report a spurious offline.
		return p.Monitor.Online()
	}
	if err != nil {
		log.WithError(err).Debug("ping failed")
	}
	p.Monitor.SetOnline(err == nil)
	return err == nil
}

// Run checks immediately and then on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if p.paused == nil || !p.paused() {
			p.Check(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
