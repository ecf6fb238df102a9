// Package audithook bridges Prometheus moderation and configuration events
// to an audit trail backend.
//
// It defines a local Recorder interface so callers decide where the trail
// lives. LogRecorder writes it through slog.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/plugin"
	"github.com/toastnco/prometheus/safety"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnGuildRegistered  = (*Extension)(nil)
	_ plugin.OnFeatureEnabled   = (*Extension)(nil)
	_ plugin.OnFeatureDisabled  = (*Extension)(nil)
	_ plugin.OnPermissionDenied = (*Extension)(nil)
	_ plugin.OnMaliciousLink    = (*Extension)(nil)
	_ plugin.OnWelcomeSent      = (*Extension)(nil)
	_ plugin.OnHandlerFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	ID         id.ID          `json:"id"`
	EventID    id.ID          `json:"event_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	At         time.Time      `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events as structured log records.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder returns a Recorder backed by logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, event *AuditEvent) error {
	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError, SeverityCritical:
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("audit_id", event.ID.String()),
		slog.String("action", event.Action),
		slog.String("resource", event.Resource),
		slog.String("category", event.Category),
		slog.String("outcome", event.Outcome),
	}
	if !event.EventID.IsNil() {
		attrs = append(attrs, slog.String("event_id", event.EventID.String()))
	}
	if event.ResourceID != "" {
		attrs = append(attrs, slog.String("resource_id", event.ResourceID))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	r.logger.LogAttrs(ctx, level, "audit", attrs...)
	return nil
}

// Extension bridges bot events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Guild hooks
// ──────────────────────────────────────────────────

// OnGuildRegistered implements plugin.OnGuildRegistered.
func (e *Extension) OnGuildRegistered(ctx context.Context, g *guild.Settings) error {
	return e.record(ctx, id.Nil, ActionGuildRegistered, SeverityInfo, OutcomeSuccess,
		ResourceGuild, snowflake(g.ID), CategoryConfig, nil,
		"beta_program", g.BetaProgram,
	)
}

// ──────────────────────────────────────────────────
// Feature hooks
// ──────────────────────────────────────────────────

// OnFeatureEnabled implements plugin.OnFeatureEnabled.
func (e *Extension) OnFeatureEnabled(ctx context.Context, eventID id.ID, guildID, channelID uint64, feature string) error {
	return e.record(ctx, eventID, ActionFeatureEnabled, SeverityInfo, OutcomeSuccess,
		ResourceFeature, feature, CategoryConfig, nil,
		"guild_id", snowflake(guildID),
		"channel_id", snowflake(channelID),
	)
}

// OnFeatureDisabled implements plugin.OnFeatureDisabled.
func (e *Extension) OnFeatureDisabled(ctx context.Context, eventID id.ID, guildID uint64, feature string, wasEnabled bool) error {
	outcome := OutcomeSuccess
	if !wasEnabled {
		outcome = OutcomeNoop
	}
	return e.record(ctx, eventID, ActionFeatureDisabled, SeverityInfo, outcome,
		ResourceFeature, feature, CategoryConfig, nil,
		"guild_id", snowflake(guildID),
	)
}

// OnPermissionDenied implements plugin.OnPermissionDenied.
func (e *Extension) OnPermissionDenied(ctx context.Context, eventID id.ID, guildID, userID uint64, feature string) error {
	return e.record(ctx, eventID, ActionPermissionDenied, SeverityWarning, OutcomeFailure,
		ResourceFeature, feature, CategoryAccess, nil,
		"guild_id", snowflake(guildID),
		"user_id", snowflake(userID),
	)
}

// ──────────────────────────────────────────────────
// Moderation hooks
// ──────────────────────────────────────────────────

// OnMaliciousLink implements plugin.OnMaliciousLink.
func (e *Extension) OnMaliciousLink(ctx context.Context, eventID id.ID, guildID, channelID, authorID uint64, matches []safety.Match) error {
	urls := make([]string, 0, len(matches))
	threats := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = safety.AddIfNotPresent(urls, safety.Defang(m.Threat.URL))
		threats = safety.AddIfNotPresent(threats, m.ThreatType)
	}
	return e.record(ctx, eventID, ActionMaliciousLink, SeverityWarning, OutcomeSuccess,
		ResourceMessage, "", CategoryModeration, nil,
		"guild_id", snowflake(guildID),
		"channel_id", snowflake(channelID),
		"author_id", snowflake(authorID),
		"links", urls,
		"threats", threats,
	)
}

// ──────────────────────────────────────────────────
// Welcome hooks
// ──────────────────────────────────────────────────

// OnWelcomeSent implements plugin.OnWelcomeSent.
func (e *Extension) OnWelcomeSent(ctx context.Context, eventID id.ID, guildID, userID uint64, elapsed time.Duration) error {
	return e.record(ctx, eventID, ActionWelcomeSent, SeverityInfo, OutcomeSuccess,
		ResourceMember, snowflake(userID), CategoryGreeting, nil,
		"guild_id", snowflake(guildID),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnHandlerFailed implements plugin.OnHandlerFailed.
func (e *Extension) OnHandlerFailed(ctx context.Context, eventID id.ID, kind string, err error) error {
	return e.record(ctx, eventID, ActionHandlerFailed, SeverityError, OutcomeFailure,
		ResourceEvent, eventID.String(), CategoryRuntime, err,
		"kind", kind,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged, never returned.
func (e *Extension) record(
	ctx context.Context,
	eventID id.ID,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		EventID:    eventID,
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		At:         time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func snowflake(v uint64) string {
	return strconv.FormatUint(v, 10)
}
