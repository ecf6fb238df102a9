package prometheus

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// WelcomeFileName is the name welcome cards are uploaded under.
const WelcomeFileName = "welcome.png"

// HandleMemberJoin posts a welcome card for j when the guild has the
// welcome feature enabled. A guild without it is skipped silently.
func (b *Bot) HandleMemberJoin(ctx context.Context, j *MemberJoin) (*Outcome, error) {
	out := newOutcome()
	out.Feature = FeatureWelcome
	if err := b.handleMemberJoin(ctx, j, out); err != nil {
		b.plugins.EmitHandlerFailed(ctx, out.EventID, "member_join", err)
		return out, err
	}
	return out, nil
}

func (b *Bot) handleMemberJoin(ctx context.Context, j *MemberJoin, out *Outcome) error {
	ws, err := b.store.GetWelcome(ctx, j.GuildID)
	if errors.Is(err, ErrWelcomeNotFound) {
		out.Action = ActionWelcomeSkipped
		return nil
	}
	if err != nil {
		return err
	}
	if b.platform == nil {
		return ErrNoPlatform
	}
	if b.compositor == nil {
		out.Action = ActionWelcomeSkipped
		return nil
	}

	start := time.Now()

	img, err := b.compositor.Welcome(ctx, j.Username, j.GuildName, j.AvatarURL)
	if err != nil {
		return fmt.Errorf("prometheus: render welcome: %w", err)
	}

	path := b.welcomePath(j.GuildID, j.UserID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.logger.Warn("welcome card not removed", "path", path, "error", rmErr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("prometheus: encode welcome: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := b.platform.SendFile(ctx, ws.ChannelID, WelcomeFileName, f); err != nil {
		return err
	}

	elapsed := time.Since(start)
	out.Action = ActionWelcomeSent

	b.logger.Info("welcome sent",
		"event_id", out.EventID.String(),
		"guild_id", j.GuildID,
		"user_id", j.UserID,
		"channel_id", ws.ChannelID,
		"elapsed", elapsed,
	)

	b.plugins.EmitWelcomeSent(ctx, out.EventID, j.GuildID, j.UserID, elapsed)
	return nil
}

// welcomePath names the staging file of one member's card.
func (b *Bot) welcomePath(guildID, userID uint64) string {
	sum := xxhash.Sum64String(fmt.Sprintf("%d:%d", userID, guildID))
	return filepath.Join(b.cacheDir, fmt.Sprintf("welcome-%016x.png", sum))
}
