package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used by NewOTelFactory.
const MeterName = "github.com/toastnco/prometheus"

// OTelFactory is a MetricFactory backed by an OpenTelemetry meter.
// Instruments are created once per name and reused.
type OTelFactory struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]*otelCounter
	histograms map[string]*otelHistogram
	onError    func(name string, err error)
}

// NewOTelFactory returns a factory on the given meter. A nil meter uses the
// global meter provider.
func NewOTelFactory(meter metric.Meter, onError func(name string, err error)) *OTelFactory {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	return &OTelFactory{
		meter:      meter,
		counters:   make(map[string]*otelCounter),
		histograms: make(map[string]*otelHistogram),
		onError:    onError,
	}
}

// Counter implements MetricFactory.
func (f *OTelFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	inst, err := f.meter.Float64Counter(name)
	if err != nil {
		f.onError(name, err)
	}
	c := &otelCounter{inst: inst}
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *OTelFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	inst, err := f.meter.Float64Histogram(name)
	if err != nil {
		f.onError(name, err)
	}
	h := &otelHistogram{inst: inst}
	f.histograms[name] = h
	return h
}

// The MetricFactory interfaces carry no context; measurements are recorded
// against the background context.
type otelCounter struct {
	inst metric.Float64Counter
}

func (c *otelCounter) Inc() { c.Add(1) }

func (c *otelCounter) Add(v float64) {
	if c.inst != nil {
		c.inst.Add(context.Background(), v)
	}
}

type otelHistogram struct {
	inst metric.Float64Histogram
}

func (h *otelHistogram) Observe(v float64) {
	if h.inst != nil {
		h.inst.Record(context.Background(), v)
	}
}
