package config

const (
	defaultDataDir  = "~/.local/share/sitelog"
	defaultLogDir   = "~/.local/share/sitelog/logs"
	defaultMediaDir = "~/.local/share/sitelog/media"
	defaultAPIBind  = "127.0.0.1:7519"

	// DefaultWebhookURL is the shipped example processing endpoint.
	DefaultWebhookURL = "https://n8n.srv1234562.hstgr.cloud/webhook/56de15fe-5286-4bda-880a-e67c5aa87aa4"

	defaultWebhookTimeout = 60
	defaultSyncInterval   = 300
	defaultStorageURLTTL  = 900
	defaultNtfyTimeout    = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Webhook: Webhook{
			URL:            DefaultWebhookURL,
			RequestTimeout: defaultWebhookTimeout,
		},
		Sync: Sync{
			AutoSync:       true,
			PollInterval:   defaultSyncInterval,
			WifiOnlyUpload: true,
		},
		Storage: Storage{
			URLTTL: defaultStorageURLTTL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
