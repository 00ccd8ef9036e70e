// Package main provides the turnforge CLI: campaign journal verification,
// state inspection, rewinds, and demo seeding against a local database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	turnforgecmd "github.com/dcowern/whispyrkeep/internal/cmd/turnforge"
)

func main() {
	log.SetPrefix("[TURNFORGE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := turnforgecmd.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("turnforge: %v", err)
	}
}
