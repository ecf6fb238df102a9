package local_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/cache/local"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSetGet(t *testing.T) {
	c := local.New()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "server_1", []byte("abc"), time.Minute))

	got, err := c.Get(ctx, "server_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestReturnedBytesAreCopies(t *testing.T) {
	c := local.New()
	defer c.Close()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))
	in[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMissAndExpiry(t *testing.T) {
	c := local.New()
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "welcome_1")
	require.ErrorIs(t, err, prometheus.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "welcome_1", []byte("x"), 100*time.Millisecond))
	_, err = c.Get(ctx, "welcome_1")
	require.NoError(t, err)

	// Reads do not extend the lifetime.
	time.Sleep(60 * time.Millisecond)
	_, err = c.Get(ctx, "welcome_1")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	_, err = c.Get(ctx, "welcome_1")
	require.ErrorIs(t, err, prometheus.ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c := local.New()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("x"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, prometheus.ErrCacheMiss)
}

func TestCloseStopsJanitor(t *testing.T) {
	c := local.New()
	require.NoError(t, c.Close())
	goleak.VerifyNone(t)
}
