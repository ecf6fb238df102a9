package welcome

import "context"

type Store interface {
	GetWelcome(ctx context.Context, guildID uint64) (*Settings, error)
	CreateWelcome(ctx context.Context, s *Settings) error
	UpdateWelcome(ctx context.Context, s *Settings) error
	DeleteWelcome(ctx context.Context, guildID uint64) error
}
