package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/toastnco/prometheus"
)

// DefaultHandlerTimeout bounds the handling of one gateway event.
const DefaultHandlerTimeout = 2 * time.Minute

// Handler consumes converted events. *prometheus.Bot implements it.
type Handler interface {
	HandleMessage(ctx context.Context, m *prometheus.Message) (*prometheus.Outcome, error)
	HandleMemberJoin(ctx context.Context, j *prometheus.MemberJoin) (*prometheus.Outcome, error)
}

var _ Handler = (*prometheus.Bot)(nil)

// Adapter routes discordgo events into a Handler.
type Adapter struct {
	handler Handler
	logger  *slog.Logger
	timeout time.Duration
	base    context.Context
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// WithHandlerTimeout overrides DefaultHandlerTimeout.
func WithHandlerTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = d }
}

// WithBaseContext sets the context every handler context derives from.
func WithBaseContext(ctx context.Context) AdapterOption {
	return func(a *Adapter) { a.base = ctx }
}

// NewAdapter creates an Adapter feeding h.
func NewAdapter(h Handler, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		handler: h,
		logger:  slog.Default(),
		timeout: DefaultHandlerTimeout,
		base:    context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach registers the adapter's handlers on s and returns a function that
// removes them.
func (a *Adapter) Attach(s *discordgo.Session) (detach func()) {
	removers := []func(){
		s.AddHandler(a.onReady),
		s.AddHandler(a.onMessageCreate),
		s.AddHandler(a.onGuildMemberAdd),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (a *Adapter) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.logger.Info("connected to discord",
		"user", r.User.Username,
		"guilds", len(r.Guilds),
	)
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore our own messages before touching the store.
	if s.State != nil && s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}
	a.Message(m.Message)
}

func (a *Adapter) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	a.MemberJoin(m.Member, guildName(s, m.GuildID))
}

// Message handles one message synchronously.
func (a *Adapter) Message(m *discordgo.Message) {
	ctx, cancel := context.WithTimeout(a.base, a.timeout)
	defer cancel()

	msg := ToMessage(m)
	out, err := a.handler.HandleMessage(ctx, msg)
	a.log(out, err, "message",
		"guild_id", msg.GuildID,
		"channel_id", msg.ChannelID,
		"message_id", msg.ID,
	)
}

// MemberJoin handles one member join synchronously.
func (a *Adapter) MemberJoin(m *discordgo.Member, guild string) {
	ctx, cancel := context.WithTimeout(a.base, a.timeout)
	defer cancel()

	j := ToMemberJoin(m, guild)
	out, err := a.handler.HandleMemberJoin(ctx, j)
	a.log(out, err, "member_join",
		"guild_id", j.GuildID,
		"user_id", j.UserID,
	)
}

func (a *Adapter) log(out *prometheus.Outcome, err error, kind string, args ...any) {
	if out != nil {
		args = append(args, "event_id", out.EventID.String(), "action", string(out.Action))
	}
	args = append(args, "kind", kind)

	if err != nil {
		a.logger.Error("event handling failed", append(args, "error", err)...)
		return
	}
	if out != nil && out.Action != prometheus.ActionIgnored {
		a.logger.Debug("event handled", args...)
	}
}

func guildName(s *discordgo.Session, guildID string) string {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g.Name
		}
	}
	if g, err := s.Guild(guildID); err == nil {
		return g.Name
	}
	return ""
}
