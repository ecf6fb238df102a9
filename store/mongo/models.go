package mongo

import (
	"time"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/types"
	"github.com/toastnco/prometheus/welcome"
)

// Snowflakes are stored as int64 because BSON has no unsigned 64-bit type.

type serverModel struct {
	ID          int64     `bson:"_id"`
	BetaProgram bool      `bson:"beta_program"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toServerModel(g *guild.Settings) *serverModel {
	return &serverModel{
		ID:          int64(g.ID),
		BetaProgram: g.BetaProgram,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func fromServerModel(m *serverModel) *guild.Settings {
	return &guild.Settings{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          uint64(m.ID),
		BetaProgram: m.BetaProgram,
	}
}

type welcomeModel struct {
	GuildID   int64     `bson:"_id"`
	ChannelID int64     `bson:"channel_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toWelcomeModel(w *welcome.Settings) *welcomeModel {
	return &welcomeModel{
		GuildID:   int64(w.GuildID),
		ChannelID: int64(w.ChannelID),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func fromWelcomeModel(m *welcomeModel) *welcome.Settings {
	return &welcome.Settings{
		Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		GuildID:   uint64(m.GuildID),
		ChannelID: uint64(m.ChannelID),
	}
}
