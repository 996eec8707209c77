// Package extension provides the Forge extension adapter for Enroll.
//
// It implements the forge.Extension interface to integrate Enroll
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.enroll" or "enroll" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	enroll "github.com/xraph/enroll"
	"github.com/xraph/enroll/gateway"
	"github.com/xraph/enroll/gateway/stripe"
	"github.com/xraph/enroll/identity"
	"github.com/xraph/enroll/store"
	"github.com/xraph/enroll/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "enroll"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Course purchase and enrollment engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Enroll as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *enroll.Engine
	store      store.Store
	gateway    gateway.Gateway
	engineOpts []enroll.Option
}

// New creates a new Enroll Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Enroll instance.
// This is nil until Register is called.
func (e *Extension) Engine() *enroll.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the enrollment engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	eng := enroll.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*enroll.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("enroll: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("enroll: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs enroll.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]enroll.Option, error) {
	opts := make([]enroll.Option, 0, len(e.engineOpts)+4)

	// Construct the Stripe gateway from config unless one was injected.
	if e.gateway == nil && e.config.GatewayAPIKey != "" {
		gw, err := stripe.New(stripe.Config{
			APIKey:        e.config.GatewayAPIKey,
			WebhookSecret: e.config.GatewayWebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		e.gateway = gw
	}
	if e.gateway != nil {
		opts = append(opts, enroll.WithGateway(e.gateway))
	}

	if e.config.IdentitySigningSecret != "" {
		v, err := identity.NewVerifier(e.config.IdentitySigningSecret)
		if err != nil {
			return nil, err
		}
		opts = append(opts, enroll.WithIdentityVerifier(v))
	}

	if e.config.SuccessURL != "" || e.config.CancelURL != "" {
		opts = append(opts, enroll.WithCheckoutURLs(e.config.SuccessURL, e.config.CancelURL))
	}
	opts = append(opts, enroll.WithSweepConfig(
		e.config.SweepInterval,
		e.config.StaleThreshold,
		e.config.SweepBatchSize,
	))

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("enroll: configuration is required but not found in config files; " +
				"ensure 'extensions.enroll' or 'enroll' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("enroll: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("stale_threshold", e.config.StaleThreshold),
		forge.F("sweep_batch_size", e.config.SweepBatchSize),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.enroll" first (namespaced pattern).
	if cm.IsSet("extensions.enroll") {
		if err := cm.Bind("extensions.enroll", &cfg); err == nil {
			e.Logger().Debug("enroll: loaded config from file",
				forge.F("key", "extensions.enroll"),
			)
			return cfg, true
		}
		e.Logger().Warn("enroll: failed to bind extensions.enroll config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "enroll" key.
	if cm.IsSet("enroll") {
		if err := cm.Bind("enroll", &cfg); err == nil {
			e.Logger().Debug("enroll: loaded config from file",
				forge.F("key", "enroll"),
			)
			return cfg, true
		}
		e.Logger().Warn("enroll: failed to bind enroll config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = defaults.StaleThreshold
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.SuccessURL == "" && programmaticConfig.SuccessURL != "" {
		yamlConfig.SuccessURL = programmaticConfig.SuccessURL
	}
	if yamlConfig.CancelURL == "" && programmaticConfig.CancelURL != "" {
		yamlConfig.CancelURL = programmaticConfig.CancelURL
	}
	if yamlConfig.GatewayAPIKey == "" && programmaticConfig.GatewayAPIKey != "" {
		yamlConfig.GatewayAPIKey = programmaticConfig.GatewayAPIKey
	}
	if yamlConfig.GatewayWebhookSecret == "" && programmaticConfig.GatewayWebhookSecret != "" {
		yamlConfig.GatewayWebhookSecret = programmaticConfig.GatewayWebhookSecret
	}
	if yamlConfig.IdentitySigningSecret == "" && programmaticConfig.IdentitySigningSecret != "" {
		yamlConfig.IdentitySigningSecret = programmaticConfig.IdentitySigningSecret
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.StaleThreshold == 0 && programmaticConfig.StaleThreshold != 0 {
		yamlConfig.StaleThreshold = programmaticConfig.StaleThreshold
	}
	if yamlConfig.SweepBatchSize == 0 && programmaticConfig.SweepBatchSize != 0 {
		yamlConfig.SweepBatchSize = programmaticConfig.SweepBatchSize
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
