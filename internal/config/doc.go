// Package config loads, normalizes, and validates sitelog configuration.
//
// Configuration lives in a TOML file (default ~/.config/sitelog/config.toml,
// falling back to ./sitelog.toml). Sections by subsystem:
//   - Paths: data/log/media directories and API bind address
//   - Webhook: external AI processing endpoint and request timeout
//   - Sync: background sync coordinator behavior
//   - Storage: optional S3-compatible storage for pre-signed media URLs
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
package config
