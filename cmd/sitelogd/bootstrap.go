package main

import (
	"log/slog"

	"sitelog/internal/config"
	"sitelog/internal/daemon"
	"sitelog/internal/dispatch"
	"sitelog/internal/ingest"
	"sitelog/internal/notifications"
	"sitelog/internal/payload"
	"sitelog/internal/services/objectstore"
	"sitelog/internal/session"
	"sitelog/internal/store"
	"sitelog/internal/syncer"
)

// buildDaemon wires the capture, dispatch, and sync services behind the
// daemon. The object storage signer is optional; with storage disabled the
// dispatch payload simply carries no asset URLs.
func buildDaemon(cfg *config.Config, st *store.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	signer, err := objectstore.New(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewService(st, logger)
	builder := payload.NewBuilder(st, signer)
	processor := ingest.NewProcessor(st, logger)
	notifier := notifications.NewService(cfg)
	dispatcher := dispatch.NewDispatcher(cfg, st, builder, processor, notifier, nil, logger)
	sync := syncer.New(cfg, st, dispatcher, notifier, logger)

	return daemon.New(cfg, st, sessions, sync, dispatcher, logger)
}
