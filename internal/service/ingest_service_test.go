package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensorhub/internal/metric"
	"sensorhub/internal/models"
	"sensorhub/internal/queue"
	"sensorhub/internal/sensorcfg"
)

type fakeResolver struct {
	configs map[string]*models.SensorConfig
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, sensorID string) (*models.SensorConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.configs[sensorID]
	if !ok {
		return nil, sensorcfg.ErrNotFound
	}
	return cfg, nil
}

type fakeSink struct {
	mu    sync.Mutex
	saved []models.Reading
	err   error
}

func (f *fakeSink) Save(_ context.Context, reading models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, reading)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeLiveness struct {
	mu      sync.Mutex
	touched map[string]time.Time
	err     error
}

func (f *fakeLiveness) TouchLastSeen(_ context.Context, sensorID string, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.touched == nil {
		f.touched = map[string]time.Time{}
	}
	f.touched[sensorID] = seenAt
	return nil
}

type published struct {
	event     string
	payload   any
	ingenioID int64
}

type fakeBus struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeBus) PublishToIngenio(event string, payload any, ingenioID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{event: event, payload: payload, ingenioID: ingenioID})
}

func (f *fakeBus) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.events...)
}

func ptr(v float64) *float64 { return &v }

func activeConfig(sensorID string, ingenioID int64) *models.SensorConfig {
	return &models.SensorConfig{
		SensorID:  sensorID,
		MachineID: 1,
		IngenioID: ingenioID,
		Active:    true,
		MetricsConfig: models.MetricsConfig{
			"thermal": {"temperature": models.MetricRange{Min: ptr(0), Max: ptr(100)}},
		},
	}
}

func reading(sensorID string, value float64) models.Reading {
	return models.Reading{
		SensorID:  sensorID,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metrics:   map[string]map[string]float64{"thermal": {"temperature": value}},
	}
}

type fixture struct {
	svc      *IngestService
	sink     *fakeSink
	liveness *fakeLiveness
	bus      *fakeBus
	metrics  *metric.Metrics
	buffer   *queue.Queue[models.Reading]
}

func newFixture(t *testing.T, resolver ConfigResolver, capacity int) *fixture {
	t.Helper()
	logger := zap.NewNop()
	metrics := metric.New(prometheus.NewRegistry())
	sink := &fakeSink{}
	liveness := &fakeLiveness{}
	bus := &fakeBus{}
	buffer := queue.New[models.Reading](capacity, logger)

	svc := NewIngestService(resolver, buffer, sink, liveness, bus, logger, metrics)
	return &fixture{svc: svc, sink: sink, liveness: liveness, bus: bus, metrics: metrics, buffer: buffer}
}

func TestIngestClassifiesBroadcastsAndPersists(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*models.SensorConfig{
		"sensor-1": activeConfig("sensor-1", 7),
	}}
	fx := newFixture(t, resolver, 10)
	fx.svc.Start(context.Background())

	classified, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 50))
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, classified.Status)

	events := fx.bus.published()
	require.Len(t, events, 1)
	assert.Equal(t, EventReading, events[0].event)
	assert.Equal(t, int64(7), events[0].ingenioID)

	require.Eventually(t, func() bool { return fx.sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ReadingsPersisted))

	fx.liveness.mu.Lock()
	defer fx.liveness.mu.Unlock()
	assert.Contains(t, fx.liveness.touched, "sensor-1")
}

func TestIngestUnknownSensorDegradesToUnknownStatus(t *testing.T) {
	fx := newFixture(t, &fakeResolver{}, 10)
	fx.svc.Start(context.Background())

	classified, err := fx.svc.Ingest(context.Background(), reading("ghost", 50))
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, classified.Status)
	for _, group := range classified.Metrics {
		for _, report := range group {
			assert.Equal(t, models.MetricStatusUnknown, report.Status)
		}
	}

	// No config means no tenant to broadcast to, but persistence proceeds.
	assert.Empty(t, fx.bus.published())
	require.Eventually(t, func() bool { return fx.sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIngestResolverOutageStillAccepts(t *testing.T) {
	fx := newFixture(t, &fakeResolver{err: errors.New("store down")}, 10)
	fx.svc.Start(context.Background())

	classified, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 50))
	require.NoError(t, err)
	assert.Equal(t, models.MetricStatusUnknown, classified.Metrics["thermal"]["temperature"].Status)
}

func TestIngestInactiveSensorSkipsBroadcast(t *testing.T) {
	cfg := activeConfig("sensor-1", 7)
	cfg.Active = false
	resolver := &fakeResolver{configs: map[string]*models.SensorConfig{"sensor-1": cfg}}
	fx := newFixture(t, resolver, 10)
	fx.svc.Start(context.Background())

	_, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 50))
	require.NoError(t, err)

	assert.Empty(t, fx.bus.published())
	require.Eventually(t, func() bool { return fx.sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIngestFullBufferDropsButStillBroadcasts(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*models.SensorConfig{
		"sensor-1": activeConfig("sensor-1", 7),
	}}
	// No handler installed: the buffer can only fill up.
	fx := newFixture(t, resolver, 2)

	_, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 1))
	require.NoError(t, err)
	_, err = fx.svc.Ingest(context.Background(), reading("sensor-1", 2))
	require.NoError(t, err)

	classified, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 3))
	require.ErrorIs(t, err, queue.ErrQueueFull)
	assert.Equal(t, models.StatusOK, classified.Status, "classification still returned on drop")

	assert.Len(t, fx.bus.published(), 3, "broadcast happens before the buffer decides")
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ReadingsDropped.WithLabelValues(metric.DropReasonCapacity)))
	assert.Equal(t, 2, fx.buffer.Len())
}

func TestPersistFailureCountsDrop(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*models.SensorConfig{
		"sensor-1": activeConfig("sensor-1", 7),
	}}
	fx := newFixture(t, resolver, 10)
	fx.sink.err = errors.New("sink down")
	fx.svc.Start(context.Background())

	_, err := fx.svc.Ingest(context.Background(), reading("sensor-1", 50))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(fx.metrics.ReadingsDropped.WithLabelValues(metric.DropReasonPersistence)) == 1.0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, fx.sink.count())
}

func TestIngestDefaultsMissingTimestamp(t *testing.T) {
	fx := newFixture(t, &fakeResolver{}, 10)
	fx.svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	fx.svc.Start(context.Background())

	classified, err := fx.svc.Ingest(context.Background(), models.Reading{
		SensorID: "sensor-1",
		Metrics:  map[string]map[string]float64{"thermal": {"temperature": 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), classified.Timestamp)
}
