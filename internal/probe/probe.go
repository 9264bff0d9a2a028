// Package probe checks whether robot-side hosts accept TCP connections.
// The manager uses it to tell "robot host is up but its code is not
// talking" apart from "nothing is there", and to report the radio.
package probe

import (
	"context"
	"sync"
	"time"

	"robolink/internal/transport"
	"robolink/util"
)

const maxConcurrent = 16

// Target is one host/port pair to probe.
type Target struct {
	Name string // "robot", "radio"
	Host string
	Port int
}

// Result records whether a target accepted a connection.
type Result struct {
	Target
	Open bool
	Err  error
}

// Run probes every target concurrently and returns results in input
// order.  Each probe is bounded by timeout.
func Run(ctx context.Context, targets []Target, timeout time.Duration, dial transport.Dialer) []Result {
	if dial == nil {
		dial = &transport.TCPDialer{Timeout: timeout}
	}
	results := make([]Result, len(targets))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, t := range targets {
		wg.Add(1)
		go func(idx int, t Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			conn, err := dial.Dial(pctx, "tcp", util.FormatAddr(t.Host, t.Port))
			if err != nil {
				results[idx] = Result{Target: t, Err: err}
				return
			}
			conn.Close()
			results[idx] = Result{Target: t, Open: true}
		}(i, t)
	}

	wg.Wait()
	return results
}

// Reachable probes a single host/port.
func Reachable(ctx context.Context, host string, port int, timeout time.Duration, dial transport.Dialer) bool {
	if host == "" || port <= 0 {
		return false
	}
	return Run(ctx, []Target{{Host: host, Port: port}}, timeout, dial)[0].Open
}
