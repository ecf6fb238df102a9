// Package guild holds the per-guild settings record.
package guild

import "github.com/toastnco/prometheus/types"

// Settings is the bot-wide configuration of one guild. A record is created
// the first time the bot sees a message from the guild and is never deleted.
type Settings struct {
	types.Entity
	ID          uint64 `json:"id"`
	BetaProgram bool   `json:"beta_program"`
}

// New returns default settings for a freshly seen guild.
func New(guildID uint64) *Settings {
	return &Settings{
		Entity: types.NewEntity(),
		ID:     guildID,
	}
}
