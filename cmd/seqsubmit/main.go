// Command seqsubmit builds archive submission documents for sequenced samples
// and registers them with the archive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"seqsubmit/internal/submiterr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error class onto a process exit status so wrapping
// workflows can tell a fix-the-input failure from a retryable one.
func exitCode(err error) int {
	switch submiterr.ClassOf(err) {
	case submiterr.ClassInput:
		return 2
	case submiterr.ClassEligibility:
		return 3
	case submiterr.ClassRemote:
		return 4
	case submiterr.ClassSchema:
		return 5
	default:
		return 1
	}
}
