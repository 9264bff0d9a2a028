// robolink - a robot driver station link.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"robolink/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "robolink: %v\n", err)
		os.Exit(1)
	}
}
