//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package transport

import "syscall"

// Shared binds are unavailable; the second bind on a port will fail.
func reuseControl(network, address string, c syscall.RawConn) error { return nil }
