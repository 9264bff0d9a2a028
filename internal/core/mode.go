// Package core is the orchestration layer.  It composes the connection
// components into complete operational modes and provides a builder
// that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  link/scanner/netconsole  →  session  →  manager  →  core  →  cmd (CLI)
package core

import (
	"context"
	"io"
	"sync"
)

// Mode represents a complete operational mode of robolink (link,
// console, resolve, or remote command).  Each mode owns its full
// lifecycle from socket setup to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// lockedWriter serialises writes from the event printer and the
// operator input handler.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
