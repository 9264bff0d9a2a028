package probe

import (
	"context"
	"net"
	"testing"
	"time"
)

// TestRun verifies open / closed detection on localhost.
func TestRun(t *testing.T) {
	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln1.Close()
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln2.Close()

	robotPort := ln1.Addr().(*net.TCPAddr).Port
	radioPort := ln2.Addr().(*net.TCPAddr).Port

	targets := []Target{
		{Name: "robot", Host: "127.0.0.1", Port: robotPort},
		{Name: "closed", Host: "127.0.0.1", Port: 1}, // port 1 is not normally listening
		{Name: "radio", Host: "127.0.0.1", Port: radioPort},
	}
	results := Run(context.Background(), targets, time.Second, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Open || results[0].Name != "robot" {
		t.Errorf("robot probe: %+v", results[0])
	}
	if results[1].Open {
		t.Errorf("port 1 should be closed")
	}
	if results[1].Err == nil {
		t.Errorf("closed probe should carry the dial error")
	}
	if !results[2].Open || results[2].Name != "radio" {
		t.Errorf("radio probe: %+v", results[2])
	}
}

// TestRunRespectsContext verifies probes stop when the context ends.
func TestRunRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	results := Run(ctx, []Target{{Host: "127.0.0.1", Port: 1}}, 500*time.Millisecond, nil)
	if results[0].Open {
		t.Skip("port 1 unexpectedly open on this host")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probe took %v after cancel", elapsed)
	}
}

func TestReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if !Reachable(context.Background(), "127.0.0.1", port, time.Second, nil) {
		t.Error("listener should be reachable")
	}
	if Reachable(context.Background(), "", port, time.Second, nil) {
		t.Error("empty host should not be reachable")
	}
	if Reachable(context.Background(), "127.0.0.1", 0, time.Second, nil) {
		t.Error("port 0 should not be reachable")
	}
}
