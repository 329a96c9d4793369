package payment

import (
	"fmt"
	"time"
)

// StripeConfig holds configuration for the Stripe payment provider
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// RequestTimeout bounds every outbound provider RPC
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("stripe: request timeout must be positive")
	}
	return nil
}
