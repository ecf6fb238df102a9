// Package welcome holds the welcome-message feature record.
package welcome

import "github.com/toastnco/prometheus/types"

// Settings enables welcome images for a guild. Its presence is the feature
// flag: enabling creates the record, disabling deletes it.
type Settings struct {
	types.Entity
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
}

// New returns settings posting welcome images to channelID.
func New(guildID, channelID uint64) *Settings {
	return &Settings{
		Entity:    types.NewEntity(),
		GuildID:   guildID,
		ChannelID: channelID,
	}
}
