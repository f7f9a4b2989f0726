package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// LoadSettings returns the operator preferences, seeding defaults on first
// read. A stored webhook URL pointing at a test endpoint is rewritten to the
// supplied default so stale development URLs never survive an upgrade.
func (s *Store) LoadSettings(ctx context.Context, defaultWebhookURL string) (Settings, error) {
	settings := Settings{
		WifiOnlyUpload: true,
		AutoSync:       true,
		WebhookURL:     defaultWebhookURL,
	}

	var (
		wifiOnly int
		autoSync int
		url      string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT wifi_only_upload, auto_sync, webhook_url FROM settings WHERE id = 1`,
	).Scan(&wifiOnly, &autoSync, &url)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.SaveSettings(ctx, settings); err != nil {
			return Settings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	settings.WifiOnlyUpload = wifiOnly != 0
	settings.AutoSync = autoSync != 0
	settings.WebhookURL = url
	if settings.WebhookURL == "" || strings.Contains(settings.WebhookURL, "webhook-test") {
		settings.WebhookURL = defaultWebhookURL
		if err := s.SaveSettings(ctx, settings); err != nil {
			return Settings{}, err
		}
	}
	return settings, nil
}

// SaveSettings persists the operator preferences.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (id, wifi_only_upload, auto_sync, webhook_url) VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             wifi_only_upload = excluded.wifi_only_upload,
             auto_sync        = excluded.auto_sync,
             webhook_url      = excluded.webhook_url`,
		boolToInt(settings.WifiOnlyUpload),
		boolToInt(settings.AutoSync),
		settings.WebhookURL,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
