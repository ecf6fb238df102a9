package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/safety"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches hooks to the ones
// implementing them. Hook errors are logged and never reach the caller.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onGuildRegistered  []OnGuildRegistered
	onIntentClassified []OnIntentClassified
	onFeatureEnabled   []OnFeatureEnabled
	onFeatureDisabled  []OnFeatureDisabled
	onPermissionDenied []OnPermissionDenied
	onMaliciousLink    []OnMaliciousLink
	onWelcomeSent      []OnWelcomeSent
	onHandlerFailed    []OnHandlerFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides DefaultTimeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("prometheus/plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnGuildRegistered); ok {
		r.onGuildRegistered = append(r.onGuildRegistered, v)
	}
	if v, ok := p.(OnIntentClassified); ok {
		r.onIntentClassified = append(r.onIntentClassified, v)
	}
	if v, ok := p.(OnFeatureEnabled); ok {
		r.onFeatureEnabled = append(r.onFeatureEnabled, v)
	}
	if v, ok := p.(OnFeatureDisabled); ok {
		r.onFeatureDisabled = append(r.onFeatureDisabled, v)
	}
	if v, ok := p.(OnPermissionDenied); ok {
		r.onPermissionDenied = append(r.onPermissionDenied, v)
	}
	if v, ok := p.(OnMaliciousLink); ok {
		r.onMaliciousLink = append(r.onMaliciousLink, v)
	}
	if v, ok := p.(OnWelcomeSent); ok {
		r.onWelcomeSent = append(r.onWelcomeSent, v)
	}
	if v, ok := p.(OnHandlerFailed); ok {
		r.onHandlerFailed = append(r.onHandlerFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnGuildRegistered", reflect.TypeFor[OnGuildRegistered]()},
	{"OnIntentClassified", reflect.TypeFor[OnIntentClassified]()},
	{"OnFeatureEnabled", reflect.TypeFor[OnFeatureEnabled]()},
	{"OnFeatureDisabled", reflect.TypeFor[OnFeatureDisabled]()},
	{"OnPermissionDenied", reflect.TypeFor[OnPermissionDenied]()},
	{"OnMaliciousLink", reflect.TypeFor[OnMaliciousLink]()},
	{"OnWelcomeSent", reflect.TypeFor[OnWelcomeSent]()},
	{"OnHandlerFailed", reflect.TypeFor[OnHandlerFailed]()},
}

// implementedInterfaces lists the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name, or nil.
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
func (r *Registry) EmitInit(ctx context.Context, bot any) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnInit", func(p OnInit) error { return p.OnInit(ctx, bot) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnShutdown", func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitGuildRegistered emits a guild registered event.
func (r *Registry) EmitGuildRegistered(ctx context.Context, g *guild.Settings) {
	r.mu.RLock()
	hooks := r.onGuildRegistered
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnGuildRegistered", func(p OnGuildRegistered) error {
		return p.OnGuildRegistered(ctx, g)
	})
}

// EmitIntentClassified emits an intent classified event.
func (r *Registry) EmitIntentClassified(ctx context.Context, eventID id.ID, guildID uint64, intent string, confidence float64) {
	r.mu.RLock()
	hooks := r.onIntentClassified
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnIntentClassified", func(p OnIntentClassified) error {
		return p.OnIntentClassified(ctx, eventID, guildID, intent, confidence)
	})
}

// EmitFeatureEnabled emits a feature enabled event.
func (r *Registry) EmitFeatureEnabled(ctx context.Context, eventID id.ID, guildID, channelID uint64, feature string) {
	r.mu.RLock()
	hooks := r.onFeatureEnabled
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnFeatureEnabled", func(p OnFeatureEnabled) error {
		return p.OnFeatureEnabled(ctx, eventID, guildID, channelID, feature)
	})
}

// EmitFeatureDisabled emits a feature disabled event.
func (r *Registry) EmitFeatureDisabled(ctx context.Context, eventID id.ID, guildID uint64, feature string, wasEnabled bool) {
	r.mu.RLock()
	hooks := r.onFeatureDisabled
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnFeatureDisabled", func(p OnFeatureDisabled) error {
		return p.OnFeatureDisabled(ctx, eventID, guildID, feature, wasEnabled)
	})
}

// EmitPermissionDenied emits a permission denied event.
func (r *Registry) EmitPermissionDenied(ctx context.Context, eventID id.ID, guildID, userID uint64, feature string) {
	r.mu.RLock()
	hooks := r.onPermissionDenied
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnPermissionDenied", func(p OnPermissionDenied) error {
		return p.OnPermissionDenied(ctx, eventID, guildID, userID, feature)
	})
}

// EmitMaliciousLink emits a malicious link event.
func (r *Registry) EmitMaliciousLink(ctx context.Context, eventID id.ID, guildID, channelID, authorID uint64, matches []safety.Match) {
	r.mu.RLock()
	hooks := r.onMaliciousLink
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnMaliciousLink", func(p OnMaliciousLink) error {
		return p.OnMaliciousLink(ctx, eventID, guildID, channelID, authorID, matches)
	})
}

// EmitWelcomeSent emits a welcome sent event.
func (r *Registry) EmitWelcomeSent(ctx context.Context, eventID id.ID, guildID, userID uint64, elapsed time.Duration) {
	r.mu.RLock()
	hooks := r.onWelcomeSent
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnWelcomeSent", func(p OnWelcomeSent) error {
		return p.OnWelcomeSent(ctx, eventID, guildID, userID, elapsed)
	})
}

// EmitHandlerFailed emits a handler failure event.
func (r *Registry) EmitHandlerFailed(ctx context.Context, eventID id.ID, kind string, err error) {
	r.mu.RLock()
	hooks := r.onHandlerFailed
	r.mu.RUnlock()

	emit(ctx, r, hooks, "OnHandlerFailed", func(p OnHandlerFailed) error {
		return p.OnHandlerFailed(ctx, eventID, kind, err)
	})
}

func emit[T Plugin](ctx context.Context, r *Registry, hooks []T, hook string, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return call(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block event handling.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
