// Package discord connects a prometheus.Bot to Discord through discordgo.
package discord

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/toastnco/prometheus"
)

// Intents are the gateway intents the bot needs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentsGuildMembers

// AvatarSize is the avatar resolution requested for welcome cards.
const AvatarSize = "1024"

var _ prometheus.Platform = (*Platform)(nil)

// Open creates a bot session with Intents. The caller opens the websocket.
func Open(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("prometheus/discord: new session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Platform implements prometheus.Platform on a discordgo session.
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps s.
func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{session: s}
}

// Reply answers m with an inline reply that does not ping the author.
func (p *Platform) Reply(ctx context.Context, m *prometheus.Message, content string) error {
	return p.reply(ctx, m, content, false)
}

// ReplyMention answers m with an inline reply that pings the author.
func (p *Platform) ReplyMention(ctx context.Context, m *prometheus.Message, content string) error {
	return p.reply(ctx, m, content, true)
}

func (p *Platform) reply(ctx context.Context, m *prometheus.Message, content string, ping bool) error {
	send := &discordgo.MessageSend{
		Content:   content,
		Reference: reference(m),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			RepliedUser: ping,
		},
	}
	if _, err := p.session.ChannelMessageSendComplex(snowflake(m.ChannelID), send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("prometheus/discord: reply: %w", err)
	}
	return nil
}

// CanManageGuild reports whether userID holds the Manage Server permission
// in channelID. Administrators always do.
func (p *Platform) CanManageGuild(ctx context.Context, _, channelID, userID uint64) (bool, error) {
	perms, err := p.session.UserChannelPermissions(snowflake(userID), snowflake(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("prometheus/discord: permissions: %w", err)
	}
	return HasManageGuild(perms), nil
}

// SendFile uploads r to channelID.
func (p *Platform) SendFile(ctx context.Context, channelID uint64, name string, r io.Reader) error {
	send := &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: "image/png",
			Reader:      r,
		}},
	}
	if _, err := p.session.ChannelMessageSendComplex(snowflake(channelID), send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("prometheus/discord: upload %s: %w", name, err)
	}
	return nil
}

// HasManageGuild reports whether a permission set allows managing the guild.
func HasManageGuild(perms int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 ||
		perms&discordgo.PermissionManageServer != 0
}

// ──────────────────────────────────────────────────
// Conversions
// ──────────────────────────────────────────────────

var channelMention = regexp.MustCompile(`<#(\d+)>`)

// MentionedChannels returns the channels mentioned in content, in order,
// followed by any in extra that content did not mention.
func MentionedChannels(content string, extra []*discordgo.Channel) []uint64 {
	var ids []uint64
	seen := map[uint64]bool{}
	add := func(v uint64) {
		if v != 0 && !seen[v] {
			seen[v] = true
			ids = append(ids, v)
		}
	}
	for _, match := range channelMention.FindAllStringSubmatch(content, -1) {
		add(parseSnowflake(match[1]))
	}
	for _, c := range extra {
		if c != nil {
			add(parseSnowflake(c.ID))
		}
	}
	return ids
}

// ToMessage converts a discordgo message.
func ToMessage(m *discordgo.Message) *prometheus.Message {
	msg := &prometheus.Message{
		ID:              parseSnowflake(m.ID),
		GuildID:         parseSnowflake(m.GuildID),
		ChannelID:       parseSnowflake(m.ChannelID),
		Content:         m.Content,
		MentionChannels: MentionedChannels(m.Content, m.MentionChannels),
	}
	if m.Author != nil {
		msg.AuthorID = parseSnowflake(m.Author.ID)
		msg.AuthorBot = m.Author.Bot
	}
	return msg
}

// ToMemberJoin converts a discordgo member. guildName is looked up by the
// caller.
func ToMemberJoin(m *discordgo.Member, guildName string) *prometheus.MemberJoin {
	j := &prometheus.MemberJoin{
		GuildID:   parseSnowflake(m.GuildID),
		GuildName: guildName,
	}
	if m.User != nil {
		j.UserID = parseSnowflake(m.User.ID)
		j.Username = DisplayName(m)
		j.AvatarURL = m.User.AvatarURL(AvatarSize)
	}
	return j
}

// DisplayName prefers the guild nickname, then the global name, then the
// username.
func DisplayName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User == nil:
		return ""
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}

func reference(m *prometheus.Message) *discordgo.MessageReference {
	failIfNotExists := false
	return &discordgo.MessageReference{
		MessageID:       snowflake(m.ID),
		ChannelID:       snowflake(m.ChannelID),
		GuildID:         guildRef(m.GuildID),
		FailIfNotExists: &failIfNotExists,
	}
}

func guildRef(id uint64) string {
	if id == 0 {
		return ""
	}
	return snowflake(id)
}

func snowflake(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseSnowflake(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
