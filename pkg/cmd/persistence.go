// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/convoca/convoca/pkg/guests"
	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/persistence/file"
	"github.com/convoca/convoca/pkg/persistence/postgresql"
	"github.com/convoca/convoca/pkg/protocol"
)

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "file":
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider in %q", databaseURL)
	}
}

func NewGuestStore(guestsURL string) (protocol.GuestStore, error) {
	switch parseProvider(guestsURL) {
	case "file":
		return guests.NewFileStore(guestsURL), nil
	default:
		return nil, fmt.Errorf("unsupported guest store provider in %q", guestsURL)
	}
}

func parseProvider(url string) string {
	provider, _, found := strings.Cut(url, "://")
	if !found {
		return "file"
	}

	return provider
}
