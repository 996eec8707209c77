package extension

import (
	"time"

	enroll "github.com/xraph/enroll"
	"github.com/xraph/enroll/gateway"
	"github.com/xraph/enroll/plugin"
	"github.com/xraph/enroll/store"
)

// Option configures the Enroll Forge extension.
type Option func(*Extension)

// WithStore sets the store for the enrollment engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGateway sets the payment gateway, overriding any gateway the
// extension would construct from config.
func WithGateway(g gateway.Gateway) Option {
	return func(e *Extension) {
		e.gateway = g
	}
}

// WithEngineOption passes an enroll.Option through to the underlying engine.
func WithEngineOption(opt enroll.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an enroll plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, enroll.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithCheckoutURLs sets the checkout redirect targets.
func WithCheckoutURLs(successURL, cancelURL string) Option {
	return func(e *Extension) {
		e.config.SuccessURL = successURL
		e.config.CancelURL = cancelURL
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSweepInterval sets how often the stale-purchase sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithStaleThreshold sets how old a pending purchase must be before the
// sweep examines it.
func WithStaleThreshold(d time.Duration) Option {
	return func(e *Extension) { e.config.StaleThreshold = d }
}

// WithSweepBatchSize caps how many stale purchases one sweep pass examines.
func WithSweepBatchSize(size int) Option {
	return func(e *Extension) { e.config.SweepBatchSize = size }
}
