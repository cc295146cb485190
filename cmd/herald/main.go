// Command herald runs and talks to a herald notification server.
//
// Usage:
//
//	herald serve --listen :8080 --role primary
//	herald serve --listen :8081 --role secondary --peer http://localhost:8080
//	herald notify frontend --server http://localhost:8080
//	herald watch --user alice --server http://localhost:8080
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "herald",
		Short:         "Long-poll notification server with active/passive failover",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newServeCmd(), newNotifyCmd(), newWatchCmd())
	return root
}
