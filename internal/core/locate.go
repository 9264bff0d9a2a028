package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"robolink/config"
	rlerr "robolink/internal/errors"
	"robolink/internal/resolver"
	"robolink/util"
)

// Locator finds the robot by resolving candidate addresses in order.
type Locator struct {
	Candidates []string
	Timeout    time.Duration // per candidate
	Resolver   resolver.Config
	Logger     *util.Logger
}

// Locate returns the first candidate that resolves, and its address.
func (l *Locator) Locate(ctx context.Context) (net.IP, string, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = config.DefaultResolveTimeout
	}
	if l.Resolver.Timeout <= 0 {
		l.Resolver.Timeout = timeout
	}

	results := make(chan resolver.Result, 1)
	r := resolver.New(l.Resolver, l.Logger, func(res resolver.Result) {
		select {
		case results <- res:
		default:
		}
	})
	defer r.Close()

	for _, addr := range l.Candidates {
		kind := resolver.Classify(addr)
		if kind == resolver.Unknown {
			continue
		}
		if ip, ok := r.Resolve(addr); ok {
			return ip, addr, nil
		}
		if kind == resolver.Static {
			l.Logger.Verbose("%s: not an IPv4 address", addr)
			continue
		}

		l.Logger.Verbose("resolving %s (%s)", addr, kind)
		if ip, ok, err := await(ctx, results, addr, timeout); err != nil {
			return nil, "", err
		} else if ok {
			return ip, addr, nil
		}
		l.Logger.Verbose("%s: no answer within %v", addr, timeout)
	}
	return nil, "", fmt.Errorf("%w: no robot address resolved", rlerr.ErrTimeout)
}

func await(ctx context.Context, results <-chan resolver.Result, addr string, timeout time.Duration) (net.IP, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case res := <-results:
			if res.Address == addr {
				return res.IP, true, nil
			}
		case <-timer.C:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
