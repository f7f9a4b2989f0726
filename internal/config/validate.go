package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if parsed, err := url.Parse(c.Webhook.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("webhook.url %q is not a valid absolute URL", c.Webhook.URL))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if c.Storage.Enabled {
		if c.Storage.Endpoint == "" {
			problems = append(problems, "storage.endpoint is required when storage is enabled")
		}
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required when storage is enabled")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			problems = append(problems, "storage credentials are required when storage is enabled")
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
