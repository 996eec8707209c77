package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onCourseCreated        []OnCourseCreated
	onCoursePublished      []OnCoursePublished
	onCourseRated          []OnCourseRated
	onUserSynced           []OnUserSynced
	onPurchaseInitiated    []OnPurchaseInitiated
	onPurchaseCompleted    []OnPurchaseCompleted
	onPurchaseFailed       []OnPurchaseFailed
	onTerminalConflict     []OnTerminalConflict
	onEnrollmentCreated    []OnEnrollmentCreated
	onLectureCompleted     []OnLectureCompleted
	onNotificationRejected []OnNotificationRejected
	onSweepCompleted       []OnSweepCompleted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCourseCreated); ok {
		r.onCourseCreated = append(r.onCourseCreated, v)
	}
	if v, ok := p.(OnCoursePublished); ok {
		r.onCoursePublished = append(r.onCoursePublished, v)
	}
	if v, ok := p.(OnCourseRated); ok {
		r.onCourseRated = append(r.onCourseRated, v)
	}
	if v, ok := p.(OnUserSynced); ok {
		r.onUserSynced = append(r.onUserSynced, v)
	}
	if v, ok := p.(OnPurchaseInitiated); ok {
		r.onPurchaseInitiated = append(r.onPurchaseInitiated, v)
	}
	if v, ok := p.(OnPurchaseCompleted); ok {
		r.onPurchaseCompleted = append(r.onPurchaseCompleted, v)
	}
	if v, ok := p.(OnPurchaseFailed); ok {
		r.onPurchaseFailed = append(r.onPurchaseFailed, v)
	}
	if v, ok := p.(OnTerminalConflict); ok {
		r.onTerminalConflict = append(r.onTerminalConflict, v)
	}
	if v, ok := p.(OnEnrollmentCreated); ok {
		r.onEnrollmentCreated = append(r.onEnrollmentCreated, v)
	}
	if v, ok := p.(OnLectureCompleted); ok {
		r.onLectureCompleted = append(r.onLectureCompleted, v)
	}
	if v, ok := p.(OnNotificationRejected); ok {
		r.onNotificationRejected = append(r.onNotificationRejected, v)
	}
	if v, ok := p.(OnSweepCompleted); ok {
		r.onSweepCompleted = append(r.onSweepCompleted, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCourseCreated)(nil)).Elem(), "OnCourseCreated")
	checkInterface(reflect.TypeOf((*OnUserSynced)(nil)).Elem(), "OnUserSynced")
	checkInterface(reflect.TypeOf((*OnPurchaseInitiated)(nil)).Elem(), "OnPurchaseInitiated")
	checkInterface(reflect.TypeOf((*OnPurchaseCompleted)(nil)).Elem(), "OnPurchaseCompleted")
	checkInterface(reflect.TypeOf((*OnPurchaseFailed)(nil)).Elem(), "OnPurchaseFailed")
	checkInterface(reflect.TypeOf((*OnTerminalConflict)(nil)).Elem(), "OnTerminalConflict")
	checkInterface(reflect.TypeOf((*OnEnrollmentCreated)(nil)).Elem(), "OnEnrollmentCreated")
	checkInterface(reflect.TypeOf((*OnSweepCompleted)(nil)).Elem(), "OnSweepCompleted")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCourseCreated emits a course created event.
func (r *Registry) EmitCourseCreated(ctx context.Context, course interface{}) {
	r.mu.RLock()
	plugins := r.onCourseCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCourseCreated(ctx, course)
		}); err != nil {
			r.logger.Warn("plugin OnCourseCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCoursePublished emits a course published event.
func (r *Registry) EmitCoursePublished(ctx context.Context, course interface{}) {
	r.mu.RLock()
	plugins := r.onCoursePublished
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCoursePublished(ctx, course)
		}); err != nil {
			r.logger.Warn("plugin OnCoursePublished failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCourseRated emits a course rated event.
func (r *Registry) EmitCourseRated(ctx context.Context, courseID, userID string, score int) {
	r.mu.RLock()
	plugins := r.onCourseRated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCourseRated(ctx, courseID, userID, score)
		}); err != nil {
			r.logger.Warn("plugin OnCourseRated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUserSynced emits a user synced event.
func (r *Registry) EmitUserSynced(ctx context.Context, eventType string, user interface{}) {
	r.mu.RLock()
	plugins := r.onUserSynced
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUserSynced(ctx, eventType, user)
		}); err != nil {
			r.logger.Warn("plugin OnUserSynced failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseInitiated emits a purchase initiated event.
func (r *Registry) EmitPurchaseInitiated(ctx context.Context, purchase interface{}) {
	r.mu.RLock()
	plugins := r.onPurchaseInitiated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchaseInitiated(ctx, purchase)
		}); err != nil {
			r.logger.Warn("plugin OnPurchaseInitiated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseCompleted emits a purchase completed event.
func (r *Registry) EmitPurchaseCompleted(ctx context.Context, purchase interface{}) {
	r.mu.RLock()
	plugins := r.onPurchaseCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchaseCompleted(ctx, purchase)
		}); err != nil {
			r.logger.Warn("plugin OnPurchaseCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseFailed emits a purchase failed event.
func (r *Registry) EmitPurchaseFailed(ctx context.Context, purchase interface{}) {
	r.mu.RLock()
	plugins := r.onPurchaseFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchaseFailed(ctx, purchase)
		}); err != nil {
			r.logger.Warn("plugin OnPurchaseFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTerminalConflict emits a terminal conflict event.
func (r *Registry) EmitTerminalConflict(ctx context.Context, purchase interface{}, reported string) {
	r.mu.RLock()
	plugins := r.onTerminalConflict
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTerminalConflict(ctx, purchase, reported)
		}); err != nil {
			r.logger.Warn("plugin OnTerminalConflict failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEnrollmentCreated emits an enrollment created event.
func (r *Registry) EmitEnrollmentCreated(ctx context.Context, enrollment interface{}) {
	r.mu.RLock()
	plugins := r.onEnrollmentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEnrollmentCreated(ctx, enrollment)
		}); err != nil {
			r.logger.Warn("plugin OnEnrollmentCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLectureCompleted emits a lecture completed event.
func (r *Registry) EmitLectureCompleted(ctx context.Context, userID, courseID, lectureID string) {
	r.mu.RLock()
	plugins := r.onLectureCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLectureCompleted(ctx, userID, courseID, lectureID)
		}); err != nil {
			r.logger.Warn("plugin OnLectureCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitNotificationRejected emits a notification rejected event.
func (r *Registry) EmitNotificationRejected(ctx context.Context, source string, reason error) {
	r.mu.RLock()
	plugins := r.onNotificationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnNotificationRejected(ctx, source, reason)
		}); err != nil {
			r.logger.Warn("plugin OnNotificationRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSweepCompleted emits a sweep completed event.
func (r *Registry) EmitSweepCompleted(ctx context.Context, scanned, resolved int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSweepCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSweepCompleted(ctx, scanned, resolved, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnSweepCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the purchase pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
