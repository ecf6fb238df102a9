package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/orlangure/gnomock"
	pgpreset "github.com/orlangure/gnomock/preset/postgres"
	"github.com/stretchr/testify/require"

	"github.com/toastnco/prometheus/store/postgres"
	"github.com/toastnco/prometheus/store/storetest"
)

// Containers need Docker, so these tests only run when asked for.
func TestConformance(t *testing.T) {
	if os.Getenv("PROMETHEUS_INTEGRATION") == "" {
		t.Skip("set PROMETHEUS_INTEGRATION=1 to run against a postgres container")
	}

	container, err := gnomock.Start(pgpreset.Preset(
		pgpreset.WithUser("prometheus", "prometheus"),
		pgpreset.WithDatabase("prometheus"),
		pgpreset.WithVersion("16"),
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(container) })

	ctx := context.Background()
	dsn := fmt.Sprintf("postgres://prometheus:prometheus@%s/prometheus?sslmode=disable", container.DefaultAddress())
	s, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "second migrate should be a no-op")

	storetest.Run(t, s)
}
