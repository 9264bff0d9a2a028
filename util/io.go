package util

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
)

// IsHarmless returns true for errors that are expected while a socket
// or stream is being shut down.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// PumpLines reads r line by line and hands each non-empty, trimmed
// line to fn until r reaches EOF or ctx is cancelled.  The read
// goroutine may outlive a cancelled ctx if r never returns.
func PumpLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if line = strings.TrimSpace(line); line != "" {
				fn(line)
			}
		case err := <-errCh:
			if IsHarmless(err) {
				return nil
			}
			return err
		}
	}
}
