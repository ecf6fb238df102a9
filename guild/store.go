package guild

import "context"

type Store interface {
	GetGuild(ctx context.Context, guildID uint64) (*Settings, error)
	CreateGuild(ctx context.Context, s *Settings) error
	UpdateGuild(ctx context.Context, s *Settings) error
}
