package prometheus

import (
	"context"
	"errors"

	"github.com/toastnco/prometheus/welcome"
)

// EnableFeature turns feature on for the guild of m, on behalf of its author.
func (b *Bot) EnableFeature(ctx context.Context, m *Message, feature string) (*Outcome, error) {
	out := newOutcome()
	return out, b.toggle(ctx, m, feature, true, out)
}

// DisableFeature turns feature off for the guild of m, on behalf of its
// author. Disabling a feature that is already off is confirmed the same way.
func (b *Bot) DisableFeature(ctx context.Context, m *Message, feature string) (*Outcome, error) {
	out := newOutcome()
	return out, b.toggle(ctx, m, feature, false, out)
}

func (b *Bot) toggle(ctx context.Context, m *Message, feature string, enable bool, out *Outcome) error {
	if b.platform == nil {
		return ErrNoPlatform
	}
	out.Feature = feature

	allowed, err := b.platform.CanManageGuild(ctx, m.GuildID, m.ChannelID, m.AuthorID)
	if err != nil {
		return err
	}
	if !allowed {
		out.Action = ActionPermissionDenied
		out.Reply = PermissionDeniedReply
		if err := b.platform.ReplyMention(ctx, m, out.Reply); err != nil {
			return err
		}
		b.plugins.EmitPermissionDenied(ctx, out.EventID, m.GuildID, m.AuthorID, feature)
		return nil
	}

	if _, ok := FeatureName(feature); !ok {
		out.Action = ActionUnknownFeature
		out.Reply = UnknownFeatureReply
		return b.platform.Reply(ctx, m, out.Reply)
	}

	if enable {
		return b.enableWelcome(ctx, m, out)
	}
	return b.disableWelcome(ctx, m, out)
}

func (b *Bot) enableWelcome(ctx context.Context, m *Message, out *Outcome) error {
	ws := welcome.New(m.GuildID, m.TargetChannel())

	err := b.store.CreateWelcome(ctx, ws)
	if IsAlreadyExists(err) {
		// Re-enabling moves the feature to the new channel.
		err = b.store.UpdateWelcome(ctx, ws)
	}
	if err != nil {
		return err
	}

	out.Action = ActionFeatureEnabled
	out.Reply = EnableReply(FeatureWelcome)

	b.logger.Info("feature enabled",
		"event_id", out.EventID.String(),
		"guild_id", m.GuildID,
		"channel_id", ws.ChannelID,
		"feature", FeatureWelcome,
	)

	if err := b.platform.Reply(ctx, m, out.Reply); err != nil {
		return err
	}
	b.plugins.EmitFeatureEnabled(ctx, out.EventID, m.GuildID, ws.ChannelID, FeatureWelcome)
	return nil
}

func (b *Bot) disableWelcome(ctx context.Context, m *Message, out *Outcome) error {
	wasEnabled := true
	_, err := b.store.GetWelcome(ctx, m.GuildID)
	switch {
	case errors.Is(err, ErrWelcomeNotFound):
		wasEnabled = false
	case err != nil:
		return err
	default:
		// A concurrent disable may have removed it since the read.
		if err := b.store.DeleteWelcome(ctx, m.GuildID); err != nil && !errors.Is(err, ErrWelcomeNotFound) {
			return err
		}
	}

	out.Action = ActionFeatureDisabled
	out.Reply = DisableReply(FeatureWelcome)

	b.logger.Info("feature disabled",
		"event_id", out.EventID.String(),
		"guild_id", m.GuildID,
		"feature", FeatureWelcome,
		"was_enabled", wasEnabled,
	)

	if err := b.platform.Reply(ctx, m, out.Reply); err != nil {
		return err
	}
	b.plugins.EmitFeatureDisabled(ctx, out.EventID, m.GuildID, FeatureWelcome, wasEnabled)
	return nil
}
