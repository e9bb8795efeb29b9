// Command gosession logs in to a backend and keeps the session in a local store, so
// scripts can ask for a usable access token without handling refresh themselves.
//
// The token endpoints are called through the fasthttp client in package authapi.
// Settings and collection loads are authenticated API calls and go through
// net/http with transport.Bearer, the same RoundTripper an application embedding
// the Manager would put on its own http.Client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gosession:", err)
		os.Exit(1)
	}
}
