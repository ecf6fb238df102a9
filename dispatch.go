package prometheus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/safety"
)

const (
	enableSuffix  = "_enable"
	disableSuffix = "_disable"
)

// HandleMessage runs one chat message through registration, link checking
// and command dispatch. Errors abort the handler; nothing is replied on
// failure.
func (b *Bot) HandleMessage(ctx context.Context, m *Message) (*Outcome, error) {
	out := newOutcome()
	if err := b.handleMessage(ctx, m, out); err != nil {
		b.plugins.EmitHandlerFailed(ctx, out.EventID, "message", err)
		return out, err
	}
	return out, nil
}

func (b *Bot) handleMessage(ctx context.Context, m *Message, out *Outcome) error {
	if b.platform == nil {
		return ErrNoPlatform
	}

	if m.InGuild() {
		if err := b.ensureGuild(ctx, m.GuildID); err != nil {
			return err
		}
	}

	if m.AuthorBot {
		return nil
	}

	// Links are checked on every human message, command or not.
	malicious, err := b.checkLinks(ctx, m, out)
	if err != nil || malicious {
		return err
	}

	if !strings.HasPrefix(m.Content, b.prefix) {
		return nil
	}

	text := strings.TrimSpace(strings.TrimPrefix(m.Content, b.prefix))
	if text == "" || b.classifier == nil {
		return nil
	}

	msg, err := b.classifier.Classify(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClassifier, err)
	}

	intent, ok := msg.TopIntent()
	if !ok {
		out.Action = ActionNoIntent
		return nil
	}
	out.Intent = intent.Name
	b.plugins.EmitIntentClassified(ctx, out.EventID, m.GuildID, intent.Name, intent.Confidence)

	b.logger.Debug("intent classified",
		"event_id", out.EventID.String(),
		"guild_id", m.GuildID,
		"intent", intent.Name,
		"confidence", intent.Confidence,
	)

	// Feature toggles only make sense inside a guild.
	if !m.InGuild() {
		out.Action = ActionUnhandledIntent
		return nil
	}

	switch {
	case strings.HasSuffix(intent.Name, enableSuffix):
		return b.toggle(ctx, m, strings.TrimSuffix(intent.Name, enableSuffix), true, out)
	case strings.HasSuffix(intent.Name, disableSuffix):
		return b.toggle(ctx, m, strings.TrimSuffix(intent.Name, disableSuffix), false, out)
	default:
		out.Action = ActionUnhandledIntent
		return nil
	}
}

// ensureGuild creates default settings the first time a guild is seen.
func (b *Bot) ensureGuild(ctx context.Context, guildID uint64) error {
	_, err := b.store.GetGuild(ctx, guildID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrGuildNotFound) {
		return err
	}

	g := guild.New(guildID)
	if err := b.store.CreateGuild(ctx, g); err != nil {
		// Lost a race with another handler for the same guild.
		if IsAlreadyExists(err) {
			return nil
		}
		return err
	}

	b.logger.Info("guild registered", "guild_id", guildID)
	b.plugins.EmitGuildRegistered(ctx, g)
	return nil
}

// checkLinks reports whether m carries a link on a threat list, replying
// with the report when it does.
func (b *Bot) checkLinks(ctx context.Context, m *Message, out *Outcome) (bool, error) {
	if b.links == nil {
		return false, nil
	}

	urls := safety.FindLinks(m.Content)
	if len(urls) == 0 {
		return false, nil
	}

	resp, err := b.links.Check(ctx, urls)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLinkCheck, err)
	}
	if !resp.IsMalicious() {
		return false, nil
	}

	out.Action = ActionMaliciousLink
	out.Reply = MaliciousLinkReply(resp)

	b.logger.Warn("malicious link",
		"event_id", out.EventID.String(),
		"guild_id", m.GuildID,
		"channel_id", m.ChannelID,
		"author_id", m.AuthorID,
		"matches", len(resp.Matches),
	)

	if err := b.platform.Reply(ctx, m, out.Reply); err != nil {
		return true, err
	}
	b.plugins.EmitMaliciousLink(ctx, out.EventID, m.GuildID, m.ChannelID, m.AuthorID, resp.Matches)
	return true, nil
}
