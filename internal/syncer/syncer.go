package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/dispatch"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/store"
)

// Syncer drives webhook delivery: one-shot batches on demand plus an
// optional background poll loop gated by the autoSync setting.
type Syncer struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	notifier   notifications.Service
	logger     *slog.Logger

	pollInterval      time.Duration
	defaultWebhookURL string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a syncer.
func New(cfg *config.Config, st *store.Store, dispatcher *dispatch.Dispatcher, notifier notifications.Service, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	interval := time.Duration(cfg.Sync.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Syncer{
		store:             st,
		dispatcher:        dispatcher,
		notifier:          notifier,
		logger:            logging.WithComponent(logger, "syncer"),
		pollInterval:      interval,
		defaultWebhookURL: cfg.Webhook.URL,
	}
}

// SyncPendingSessions delivers every ended session still in the pending or
// failed state, sequentially in store order, and returns how many succeeded.
func (s *Syncer) SyncPendingSessions(ctx context.Context) (int, error) {
	return s.deliverBatch(ctx, false)
}

// RetryFailedItems re-delivers only previously failed sessions and returns
// how many succeeded. A retry re-runs ingestion on the fresh response, so a
// processor that returns overlapping content can duplicate system-generated
// tasks; callers needing exactly-once entities must dedupe upstream.
func (s *Syncer) RetryFailedItems(ctx context.Context) (int, error) {
	return s.deliverBatch(ctx, true)
}

func (s *Syncer) deliverBatch(ctx context.Context, failedOnly bool) (int, error) {
	sessions, err := s.store.SessionsAwaitingSync(ctx, failedOnly)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	started := time.Now()
	synced := 0
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if s.dispatcher.Send(ctx, session.ID) {
			synced++
		}
	}

	s.logger.Info("sync batch finished",
		logging.Int("attempted", len(sessions)),
		logging.Int("synced", synced),
		logging.Duration("elapsed", time.Since(started)),
	)
	if err := s.notifier.NotifySyncCompleted(ctx, synced, len(sessions), time.Since(started)); err != nil {
		s.logger.Debug("notify sync completed", logging.Error(err))
	}
	return synced, nil
}

// Start begins the background poll loop.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("syncer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates the poll loop and waits for it to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		settings, err := s.store.LoadSettings(ctx, s.defaultWebhookURL)
		if err != nil {
			s.logger.Warn("load settings", logging.Error(err))
			continue
		}
		if !settings.AutoSync {
			s.logger.Debug("auto sync disabled, skipping poll")
			continue
		}

		if _, err := s.SyncPendingSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("poll sync failed", logging.Error(err))
		}
	}
}
