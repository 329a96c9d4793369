package notification

import (
	"fmt"
	"time"
)

// Config holds configuration for the transactional email provider
type Config struct {
	// APIKey authenticates against the email provider
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// FromAddress is the sender identity, e.g. "Store Ricardo <orders@storerecardo.com>"
	FromAddress string `json:"from_address" mapstructure:"from_address"`

	// BaseURL is the provider API root
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// RequestTimeout bounds every outbound send
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// Validate validates the notification configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("notification: api key is required")
	}
	if c.FromAddress == "" {
		return fmt.Errorf("notification: from address is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("notification: base url is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("notification: request timeout must be positive")
	}
	return nil
}
