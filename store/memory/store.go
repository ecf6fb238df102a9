// Package memory implements store.Store with in-process maps. It backs the
// "memory" driver and the engine tests.
package memory

import (
	"context"
	"sync"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// compile-time interface check
var _ promstore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	guilds  map[uint64]guild.Settings
	welcome map[uint64]welcome.Settings
	closed  bool
}

func New() *Store {
	return &Store{
		guilds:  make(map[uint64]guild.Settings),
		welcome: make(map[uint64]welcome.Settings),
	}
}

// ==================== Guild Store ====================

func (s *Store) GetGuild(_ context.Context, guildID uint64) (*guild.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.guilds[guildID]; ok {
		return &g, nil
	}
	return nil, prometheus.ErrGuildNotFound
}

func (s *Store) CreateGuild(_ context.Context, g *guild.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.guilds[g.ID]; exists {
		return prometheus.ErrAlreadyExists
	}
	g.Stamp()
	s.guilds[g.ID] = *g
	return nil
}

func (s *Store) UpdateGuild(_ context.Context, g *guild.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.guilds[g.ID]; ok {
		g.CreatedAt = prev.CreatedAt
	}
	g.Stamp()
	s.guilds[g.ID] = *g
	return nil
}

// ==================== Welcome Store ====================

func (s *Store) GetWelcome(_ context.Context, guildID uint64) (*welcome.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.welcome[guildID]; ok {
		return &w, nil
	}
	return nil, prometheus.ErrWelcomeNotFound
}

func (s *Store) CreateWelcome(_ context.Context, w *welcome.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.welcome[w.GuildID]; exists {
		return prometheus.ErrAlreadyExists
	}
	w.Stamp()
	s.welcome[w.GuildID] = *w
	return nil
}

func (s *Store) UpdateWelcome(_ context.Context, w *welcome.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.welcome[w.GuildID]; ok {
		w.CreatedAt = prev.CreatedAt
	}
	w.Stamp()
	s.welcome[w.GuildID] = *w
	return nil
}

func (s *Store) DeleteWelcome(_ context.Context, guildID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.welcome[guildID]; !ok {
		return prometheus.ErrWelcomeNotFound
	}
	delete(s.welcome, guildID)
	return nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return prometheus.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
