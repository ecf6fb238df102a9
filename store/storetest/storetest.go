// Package storetest is a conformance suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	promstore "github.com/toastnco/prometheus/store"
	"github.com/toastnco/prometheus/welcome"
)

// Run exercises s. The store must be migrated and empty; guild IDs are
// chosen so that runs against a shared database do not collide.
func Run(t *testing.T, s promstore.Store) {
	t.Helper()

	t.Run("GuildRoundTrip", func(t *testing.T) { testGuildRoundTrip(t, s) })
	t.Run("GuildNotFound", func(t *testing.T) { testGuildNotFound(t, s) })
	t.Run("GuildDuplicate", func(t *testing.T) { testGuildDuplicate(t, s) })
	t.Run("GuildUpsert", func(t *testing.T) { testGuildUpsert(t, s) })
	t.Run("WelcomeLifecycle", func(t *testing.T) { testWelcomeLifecycle(t, s) })
	t.Run("WelcomeDuplicate", func(t *testing.T) { testWelcomeDuplicate(t, s) })
	t.Run("WelcomeDeleteAbsent", func(t *testing.T) { testWelcomeDeleteAbsent(t, s) })
	t.Run("LargeSnowflake", func(t *testing.T) { testLargeSnowflake(t, s) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, s.Ping(context.Background())) })
}

func testGuildRoundTrip(t *testing.T, s promstore.Store) {
	ctx := context.Background()
	g := &guild.Settings{ID: 1001, BetaProgram: true}
	require.NoError(t, s.CreateGuild(ctx, g))
	assert.False(t, g.CreatedAt.IsZero(), "create should stamp CreatedAt")

	got, err := s.GetGuild(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), got.ID)
	assert.True(t, got.BetaProgram)
}

func testGuildNotFound(t *testing.T, s promstore.Store) {
	_, err := s.GetGuild(context.Background(), 1002)
	require.ErrorIs(t, err, prometheus.ErrGuildNotFound)
}

func testGuildDuplicate(t *testing.T, s promstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGuild(ctx, guild.New(1003)))

	err := s.CreateGuild(ctx, guild.New(1003))
	require.ErrorIs(t, err, prometheus.ErrAlreadyExists)
}

func testGuildUpsert(t *testing.T, s promstore.Store) {
	ctx := context.Background()

	// Update of an absent record inserts it.
	require.NoError(t, s.UpdateGuild(ctx, &guild.Settings{ID: 1004, BetaProgram: true}))
	got, err := s.GetGuild(ctx, 1004)
	require.NoError(t, err)
	assert.True(t, got.BetaProgram)

	require.NoError(t, s.UpdateGuild(ctx, &guild.Settings{ID: 1004, BetaProgram: false}))
	got, err = s.GetGuild(ctx, 1004)
	require.NoError(t, err)
	assert.False(t, got.BetaProgram)
}

func testWelcomeLifecycle(t *testing.T, s promstore.Store) {
	ctx := context.Background()

	_, err := s.GetWelcome(ctx, 2001)
	require.ErrorIs(t, err, prometheus.ErrWelcomeNotFound)

	require.NoError(t, s.CreateWelcome(ctx, welcome.New(2001, 3001)))
	got, err := s.GetWelcome(ctx, 2001)
	require.NoError(t, err)
	assert.Equal(t, uint64(2001), got.GuildID)
	assert.Equal(t, uint64(3001), got.ChannelID)

	require.NoError(t, s.UpdateWelcome(ctx, welcome.New(2001, 3002)))
	got, err = s.GetWelcome(ctx, 2001)
	require.NoError(t, err)
	assert.Equal(t, uint64(3002), got.ChannelID)

	require.NoError(t, s.DeleteWelcome(ctx, 2001))
	_, err = s.GetWelcome(ctx, 2001)
	require.ErrorIs(t, err, prometheus.ErrWelcomeNotFound)
}

func testWelcomeDuplicate(t *testing.T, s promstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateWelcome(ctx, welcome.New(2002, 1)))

	err := s.CreateWelcome(ctx, welcome.New(2002, 2))
	require.ErrorIs(t, err, prometheus.ErrAlreadyExists)

	got, err := s.GetWelcome(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ChannelID, "duplicate create must not overwrite")
}

func testWelcomeDeleteAbsent(t *testing.T, s promstore.Store) {
	err := s.DeleteWelcome(context.Background(), 2003)
	require.ErrorIs(t, err, prometheus.ErrWelcomeNotFound)
}

func testLargeSnowflake(t *testing.T, s promstore.Store) {
	ctx := context.Background()
	const id = uint64(1<<63 - 1)
	require.NoError(t, s.CreateWelcome(ctx, welcome.New(id, id-1)))

	got, err := s.GetWelcome(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.GuildID)
	assert.Equal(t, id-1, got.ChannelID)
}
