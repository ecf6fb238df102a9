package observability_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/observability"
	"github.com/toastnco/prometheus/safety"
)

type fakeFactory struct {
	mu     sync.Mutex
	counts map[string]float64
	obs    map[string][]float64
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{counts: map[string]float64{}, obs: map[string][]float64{}}
}

type fakeCounter struct {
	f    *fakeFactory
	name string
}

func (c fakeCounter) Inc() { c.Add(1) }

func (c fakeCounter) Add(v float64) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.counts[c.name] += v
}

type fakeHistogram struct {
	f    *fakeFactory
	name string
}

func (h fakeHistogram) Observe(v float64) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.obs[h.name] = append(h.f.obs[h.name], v)
}

func (f *fakeFactory) Counter(name string) observability.Counter {
	return fakeCounter{f: f, name: name}
}

func (f *fakeFactory) Histogram(name string) observability.Histogram {
	return fakeHistogram{f: f, name: name}
}

func TestMetricsExtensionCounts(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := observability.NewMetricsExtension(f)
	evt := id.NewEventID()

	require.NoError(t, m.OnGuildRegistered(ctx, guild.New(1)))
	require.NoError(t, m.OnIntentClassified(ctx, evt, 1, "welcome_enable", 0.9))
	require.NoError(t, m.OnFeatureEnabled(ctx, evt, 1, 2, "welcome"))
	require.NoError(t, m.OnFeatureDisabled(ctx, evt, 1, "welcome", true))
	require.NoError(t, m.OnFeatureDisabled(ctx, evt, 1, "welcome", false))
	require.NoError(t, m.OnPermissionDenied(ctx, evt, 1, 3, "welcome"))
	require.NoError(t, m.OnMaliciousLink(ctx, evt, 1, 2, 3, make([]safety.Match, 3)))
	require.NoError(t, m.OnWelcomeSent(ctx, evt, 1, 3, 250*time.Millisecond))

	assert.Equal(t, 1.0, f.counts["prometheus.guild.registered"])
	assert.Equal(t, 1.0, f.counts["prometheus.intent.classified"])
	assert.Equal(t, []float64{0.9}, f.obs["prometheus.intent.confidence"])
	assert.Equal(t, 1.0, f.counts["prometheus.feature.enabled"])
	assert.Equal(t, 1.0, f.counts["prometheus.feature.disabled"])
	assert.Equal(t, 1.0, f.counts["prometheus.feature.disable_noop"])
	assert.Equal(t, 1.0, f.counts["prometheus.permission.denied"])
	assert.Equal(t, 1.0, f.counts["prometheus.link.malicious_messages"])
	assert.Equal(t, 3.0, f.counts["prometheus.link.malicious_matches"])
	assert.Equal(t, []float64{250}, f.obs["prometheus.welcome.latency_ms"])
}

func TestOTelFactory(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := observability.NewOTelFactory(provider.Meter(observability.MeterName), nil)
	c := f.Counter("prometheus.test.counter")
	assert.Same(t, c, f.Counter("prometheus.test.counter"))

	c.Inc()
	c.Add(2)
	f.Histogram("prometheus.test.histogram").Observe(5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		got[m.Name] = m
	}

	sum, ok := got["prometheus.test.counter"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 3.0, sum.DataPoints[0].Value)

	hist, ok := got["prometheus.test.histogram"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
