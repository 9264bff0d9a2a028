// Package remote runs maintenance commands on the robot controller over
// SSH: restarting the user program, reading logs, checking disk space.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"robolink/config"
	rlerr "robolink/internal/errors"
	"robolink/internal/retry"
	"robolink/internal/transport"
	"robolink/util"
)

// Config holds everything needed to reach the robot's SSH server.
type Config struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	Password      string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
	Attempts      int
}

// Client runs commands on one robot.  Connection attempts back off
// between tries, and after repeated failures the client refuses to
// dial until a cooldown has passed.
type Client struct {
	cfg     Config
	logger  *util.Logger
	dialer  transport.Dialer
	backoff *retry.Backoff
	breaker *retry.Breaker
}

// New creates a client.  A nil dialer dials plain TCP.
func New(cfg Config, logger *util.Logger, dialer transport.Dialer) *Client {
	if cfg.User == "" {
		cfg.User = config.DefaultSSHUser
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultSSHPort
	}
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = config.DefaultSSHTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = config.DefaultSSHAttempts
	}
	if dialer == nil {
		dialer = &transport.TCPDialer{Timeout: cfg.ConnTimeout}
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With("ssh"),
		dialer: dialer,
		backoff: &retry.Backoff{
			Initial:  500 * time.Millisecond,
			Max:      4 * time.Second,
			Attempts: cfg.Attempts,
			Jitter:   true,
			RetryIf:  retryable,
		},
		breaker: &retry.Breaker{Threshold: 3, Cooldown: 30 * time.Second},
	}
}

// Run executes cmd on the robot and returns its combined output.  A
// command that exits non-zero returns its output along with the error.
func (c *Client) Run(ctx context.Context, cmd string) ([]byte, error) {
	var client *ssh.Client
	err := c.breaker.Do(func() error {
		return c.backoff.Do(ctx, func(attempt int) error {
			if attempt > 1 {
				c.logger.Verbose("connect attempt %d", attempt)
			}
			var err error
			client, err = c.connect(ctx)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	sess, err := client.NewSession()
	if err != nil {
		return nil, rlerr.WrapSSH("session", c.cfg.Host, c.cfg.Port, err)
	}
	defer sess.Close()

	c.logger.Debug("running %q", cmd)
	out, err := sess.CombinedOutput(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, rlerr.WrapSSH("exec", c.cfg.Host, c.cfg.Port, err)
	}
	return out, nil
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	auth, err := AuthMethods(&c.cfg)
	if err != nil {
		return nil, rlerr.WrapSSH("auth", c.cfg.Host, c.cfg.Port, err)
	}
	hk, err := hostKeyCallback(&c.cfg)
	if err != nil {
		return nil, rlerr.WrapSSH("hostkey", c.cfg.Host, c.cfg.Port, err)
	}

	addr := util.FormatAddr(c.cfg.Host, c.cfg.Port)
	c.logger.Debug("dialing %s as %s", addr, c.cfg.User)
	conn, err := c.dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn.SetDeadline(time.Now().Add(c.cfg.ConnTimeout)) //nolint:errcheck

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            auth,
		HostKeyCallback: hk,
		Timeout:         c.cfg.ConnTimeout,
	})
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			err = fmt.Errorf("%w: %v", rlerr.ErrAuthFailed, err)
		}
		return nil, rlerr.WrapSSH("handshake", c.cfg.Host, c.cfg.Port, err)
	}
	conn.SetDeadline(time.Time{}) //nolint:errcheck
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// retryable retries dial failures and dropped handshakes, but not
// authentication, host-key or configuration problems.
func retryable(err error) bool {
	if errors.Is(err, rlerr.ErrAuthFailed) {
		return false
	}
	var se *rlerr.SSHError
	if errors.As(err, &se) {
		return se.Op == "handshake"
	}
	var ne *rlerr.NetworkError
	return errors.As(err, &ne)
}
