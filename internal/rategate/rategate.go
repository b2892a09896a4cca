// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package rategate bounds outbound call volume with a sliding window: at
// most Rate admissions in any trailing Window interval, enforced by
// blocking the caller rather than rejecting it.
package rategate

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultRate is the number of calls admitted per window.
	DefaultRate = 20
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 60 * time.Second

	// epsilon pads the computed sleep so the oldest stamp has actually
	// aged out when we re-check.
	epsilon = 10 * time.Millisecond
)

// Gate is a sliding-window call throttle. The zero value is not usable;
// construct with New.
type Gate struct {
	mu     sync.Mutex
	rate   int
	window time.Duration
	stamps []time.Time

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func New(rate int, window time.Duration) *Gate {
	if rate <= 0 {
		rate = DefaultRate
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{
		rate:   rate,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Admit blocks until one more outbound call is safe, then records it.
// The only error condition is ctx expiring while we wait.
func (g *Gate) Admit(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now()
		g.prune(now)

		if len(g.stamps) < g.rate {
			g.stamps = append(g.stamps, now)
			return nil
		}

		// Window is full. Sleep until the oldest stamp falls out, then
		// loop around and re-check.
		wait := g.window - now.Sub(g.stamps[0]) + epsilon
		log.Debugf("rate gate full (%d in %s), waiting %s", len(g.stamps), g.window, wait)

		g.mu.Unlock()
		err := g.sleep(ctx, wait)
		g.mu.Lock()
		if err != nil {
			return err
		}
	}
}

// InWindow reports how many admissions are currently inside the trailing
// window. Intended for observability and tests.
func (g *Gate) InWindow() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.stamps)
}

// prune drops stamps older than the window from the front of the FIFO.
// Caller must hold mu.
func (g *Gate) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.stamps) && !g.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.stamps = append(g.stamps[:0], g.stamps[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
