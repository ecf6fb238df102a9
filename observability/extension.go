// Package observability provides a metrics extension for Prometheus that
// records bot event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/plugin"
	"github.com/toastnco/prometheus/safety"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnGuildRegistered  = (*MetricsExtension)(nil)
	_ plugin.OnIntentClassified = (*MetricsExtension)(nil)
	_ plugin.OnFeatureEnabled   = (*MetricsExtension)(nil)
	_ plugin.OnFeatureDisabled  = (*MetricsExtension)(nil)
	_ plugin.OnPermissionDenied = (*MetricsExtension)(nil)
	_ plugin.OnMaliciousLink    = (*MetricsExtension)(nil)
	_ plugin.OnWelcomeSent      = (*MetricsExtension)(nil)
	_ plugin.OnHandlerFailed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records bot-wide event metrics.
// Register it as a Prometheus plugin.
type MetricsExtension struct {
	factory MetricFactory

	// Guild metrics
	GuildRegistered Counter

	// Command metrics
	IntentClassified Counter
	IntentConfidence Histogram
	FeatureEnabled   Counter
	FeatureDisabled  Counter
	FeatureNoop      Counter
	PermissionDenied Counter

	// Moderation metrics
	MaliciousMessages Counter
	MaliciousMatches  Counter

	// Welcome metrics
	WelcomeSent    Counter
	WelcomeLatency Histogram

	// Error metrics
	HandlerErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		GuildRegistered: factory.Counter("prometheus.guild.registered"),

		IntentClassified: factory.Counter("prometheus.intent.classified"),
		IntentConfidence: factory.Histogram("prometheus.intent.confidence"),
		FeatureEnabled:   factory.Counter("prometheus.feature.enabled"),
		FeatureDisabled:  factory.Counter("prometheus.feature.disabled"),
		FeatureNoop:      factory.Counter("prometheus.feature.disable_noop"),
		PermissionDenied: factory.Counter("prometheus.permission.denied"),

		MaliciousMessages: factory.Counter("prometheus.link.malicious_messages"),
		MaliciousMatches:  factory.Counter("prometheus.link.malicious_matches"),

		WelcomeSent:    factory.Counter("prometheus.welcome.sent"),
		WelcomeLatency: factory.Histogram("prometheus.welcome.latency_ms"),

		HandlerErrors: factory.Counter("prometheus.handler.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnGuildRegistered implements plugin.OnGuildRegistered.
func (m *MetricsExtension) OnGuildRegistered(_ context.Context, _ *guild.Settings) error {
	m.GuildRegistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Command hooks
// ──────────────────────────────────────────────────

// OnIntentClassified implements plugin.OnIntentClassified.
func (m *MetricsExtension) OnIntentClassified(_ context.Context, _ id.ID, _ uint64, _ string, confidence float64) error {
	m.IntentClassified.Inc()
	m.IntentConfidence.Observe(confidence)
	return nil
}

// OnFeatureEnabled implements plugin.OnFeatureEnabled.
func (m *MetricsExtension) OnFeatureEnabled(_ context.Context, _ id.ID, _, _ uint64, _ string) error {
	m.FeatureEnabled.Inc()
	return nil
}

// OnFeatureDisabled implements plugin.OnFeatureDisabled.
func (m *MetricsExtension) OnFeatureDisabled(_ context.Context, _ id.ID, _ uint64, _ string, wasEnabled bool) error {
	if wasEnabled {
		m.FeatureDisabled.Inc()
	} else {
		m.FeatureNoop.Inc()
	}
	return nil
}

// OnPermissionDenied implements plugin.OnPermissionDenied.
func (m *MetricsExtension) OnPermissionDenied(_ context.Context, _ id.ID, _, _ uint64, _ string) error {
	m.PermissionDenied.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Moderation hooks
// ──────────────────────────────────────────────────

// OnMaliciousLink implements plugin.OnMaliciousLink.
func (m *MetricsExtension) OnMaliciousLink(_ context.Context, _ id.ID, _, _, _ uint64, matches []safety.Match) error {
	m.MaliciousMessages.Inc()
	m.MaliciousMatches.Add(float64(len(matches)))
	return nil
}

// ──────────────────────────────────────────────────
// Welcome hooks
// ──────────────────────────────────────────────────

// OnWelcomeSent implements plugin.OnWelcomeSent.
func (m *MetricsExtension) OnWelcomeSent(_ context.Context, _ id.ID, _, _ uint64, elapsed time.Duration) error {
	m.WelcomeSent.Inc()
	m.WelcomeLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnHandlerFailed implements plugin.OnHandlerFailed.
func (m *MetricsExtension) OnHandlerFailed(_ context.Context, _ id.ID, _ string, _ error) error {
	m.HandlerErrors.Inc()
	return nil
}
