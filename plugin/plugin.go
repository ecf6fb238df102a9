// Package plugin provides an extensible plugin system for Prometheus.
// Plugins hook into bot lifecycle and moderation events; a plugin
// implements only the hook interfaces it cares about.
package plugin

import (
	"context"
	"time"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/safety"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the bot starts. bot is the *prometheus.Bot.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, bot any) error
}

// OnShutdown is called when the bot stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Guild hooks
// ──────────────────────────────────────────────────

// OnGuildRegistered is called the first time a guild's settings are created.
type OnGuildRegistered interface {
	Plugin
	OnGuildRegistered(ctx context.Context, g *guild.Settings) error
}

// ──────────────────────────────────────────────────
// Command hooks
// ──────────────────────────────────────────────────

// OnIntentClassified is called with the top intent of every classified command.
type OnIntentClassified interface {
	Plugin
	OnIntentClassified(ctx context.Context, eventID id.ID, guildID uint64, intent string, confidence float64) error
}

// OnFeatureEnabled is called after a feature is turned on.
type OnFeatureEnabled interface {
	Plugin
	OnFeatureEnabled(ctx context.Context, eventID id.ID, guildID, channelID uint64, feature string) error
}

// OnFeatureDisabled is called after a disable request. wasEnabled is false
// when there was nothing to remove.
type OnFeatureDisabled interface {
	Plugin
	OnFeatureDisabled(ctx context.Context, eventID id.ID, guildID uint64, feature string, wasEnabled bool) error
}

// OnPermissionDenied is called when a caller without manage-guild tries to
// toggle a feature.
type OnPermissionDenied interface {
	Plugin
	OnPermissionDenied(ctx context.Context, eventID id.ID, guildID, userID uint64, feature string) error
}

// ──────────────────────────────────────────────────
// Moderation hooks
// ──────────────────────────────────────────────────

// OnMaliciousLink is called when a message carries links on a threat list.
type OnMaliciousLink interface {
	Plugin
	OnMaliciousLink(ctx context.Context, eventID id.ID, guildID, channelID, authorID uint64, matches []safety.Match) error
}

// ──────────────────────────────────────────────────
// Welcome hooks
// ──────────────────────────────────────────────────

// OnWelcomeSent is called after a welcome card was uploaded.
type OnWelcomeSent interface {
	Plugin
	OnWelcomeSent(ctx context.Context, eventID id.ID, guildID, userID uint64, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnHandlerFailed is called when handling a platform event returned an error.
// kind is "message" or "member_join".
type OnHandlerFailed interface {
	Plugin
	OnHandlerFailed(ctx context.Context, eventID id.ID, kind string, err error) error
}
