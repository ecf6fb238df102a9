package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/store/memory"
	"github.com/toastnco/prometheus/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, memory.New())
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.CreateGuild(ctx, guild.New(7)))

	got, err := s.GetGuild(ctx, 7)
	require.NoError(t, err)
	got.BetaProgram = true

	again, err := s.GetGuild(ctx, 7)
	require.NoError(t, err)
	require.False(t, again.BetaProgram)
}

func TestPingAfterClose(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(context.Background()), prometheus.ErrStoreClosed)
}
