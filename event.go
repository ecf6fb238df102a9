package prometheus

import "github.com/toastnco/prometheus/id"

// Message is a chat message as seen by the bot. GuildID is zero for
// direct messages.
type Message struct {
	ID              uint64
	GuildID         uint64
	ChannelID       uint64
	AuthorID        uint64
	AuthorBot       bool
	Content         string
	MentionChannels []uint64
}

// InGuild reports whether m was posted in a guild channel.
func (m *Message) InGuild() bool { return m.GuildID != 0 }

// TargetChannel is the first channel mentioned in m, else the channel m was
// posted in.
func (m *Message) TargetChannel() uint64 {
	if len(m.MentionChannels) > 0 {
		return m.MentionChannels[0]
	}
	return m.ChannelID
}

// MemberJoin is a new guild member.
type MemberJoin struct {
	GuildID   uint64
	GuildName string
	UserID    uint64
	Username  string
	AvatarURL string
}

// Action names what the bot did with an event.
type Action string

const (
	ActionIgnored          Action = "ignored"
	ActionMaliciousLink    Action = "malicious_link"
	ActionNoIntent         Action = "no_intent"
	ActionUnhandledIntent  Action = "unhandled_intent"
	ActionFeatureEnabled   Action = "feature_enabled"
	ActionFeatureDisabled  Action = "feature_disabled"
	ActionPermissionDenied Action = "permission_denied"
	ActionUnknownFeature   Action = "unknown_feature"
	ActionWelcomeSent      Action = "welcome_sent"
	ActionWelcomeSkipped   Action = "welcome_skipped"
)

// Outcome is the result of handling one platform event.
type Outcome struct {
	EventID id.ID
	Action  Action
	Intent  string
	Feature string
	Reply   string
}

func newOutcome() *Outcome {
	return &Outcome{EventID: id.NewEventID(), Action: ActionIgnored}
}
