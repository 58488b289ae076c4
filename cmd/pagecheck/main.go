// Command pagecheck runs end-to-end checks against the landing page builder.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, a := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	_ = a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
