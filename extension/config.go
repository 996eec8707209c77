package extension

import "time"

// Config holds the Enroll extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.enroll" or "enroll" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// SuccessURL is where the gateway redirects after a completed checkout.
	SuccessURL string `json:"success_url" mapstructure:"success_url" yaml:"success_url"`

	// CancelURL is where the gateway redirects after an abandoned checkout.
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url" yaml:"cancel_url"`

	// GatewayAPIKey is the payment provider's secret API key. When set
	// together with GatewayWebhookSecret, the extension constructs the
	// Stripe gateway automatically.
	GatewayAPIKey string `json:"gateway_api_key" mapstructure:"gateway_api_key" yaml:"gateway_api_key"`

	// GatewayWebhookSecret is the payment provider's webhook endpoint secret.
	GatewayWebhookSecret string `json:"gateway_webhook_secret" mapstructure:"gateway_webhook_secret" yaml:"gateway_webhook_secret"`

	// IdentitySigningSecret is the identity provider's webhook signing
	// secret ("whsec_..."). When set, the extension constructs the
	// identity verifier automatically.
	IdentitySigningSecret string `json:"identity_signing_secret" mapstructure:"identity_signing_secret" yaml:"identity_signing_secret"`

	// SweepInterval is how often the stale-purchase sweep runs (default: 5m).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// StaleThreshold is how old a pending purchase must be before the
	// sweep asks the gateway about it (default: 30m).
	StaleThreshold time.Duration `json:"stale_threshold" mapstructure:"stale_threshold" yaml:"stale_threshold"`

	// SweepBatchSize caps how many stale purchases one sweep pass
	// examines (default: 100).
	SweepBatchSize int `json:"sweep_batch_size" mapstructure:"sweep_batch_size" yaml:"sweep_batch_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:  5 * time.Minute,
		StaleThreshold: 30 * time.Minute,
		SweepBatchSize: 100,
	}
}
