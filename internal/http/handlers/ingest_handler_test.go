package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensorhub/internal/metric"
	"sensorhub/internal/models"
	"sensorhub/internal/queue"
	"sensorhub/internal/sensorcfg"
	"sensorhub/internal/service"
)

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) (*models.SensorConfig, error) {
	return nil, sensorcfg.ErrNotFound
}

type stubSink struct{}

func (stubSink) Save(context.Context, models.Reading) error { return nil }

type stubLiveness struct{}

func (stubLiveness) TouchLastSeen(context.Context, string, time.Time) error { return nil }

type stubBus struct{}

func (stubBus) PublishToIngenio(string, any, int64) {}

func newIngestHandler(t *testing.T, capacity int, start bool) http.HandlerFunc {
	t.Helper()
	logger := zap.NewNop()
	buffer := queue.New[models.Reading](capacity, logger)
	svc := service.NewIngestService(
		stubResolver{}, buffer, stubSink{}, stubLiveness{}, stubBus{},
		logger, metric.New(prometheus.NewRegistry()),
	)
	if start {
		svc.Start(context.Background())
	}
	return NewIngestHandler(svc, logger)
}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestIngestHandlerRejectsMalformedBody(t *testing.T) {
	handler := newIngestHandler(t, 10, true)

	assert.Equal(t, http.StatusBadRequest, post(handler, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, post(handler, `{"metrics":{"a":{"b":1}}}`).Code, "missing sensorId")
	assert.Equal(t, http.StatusBadRequest, post(handler, `{"sensorId":"s-1"}`).Code, "missing metrics")
}

func TestIngestHandlerAcceptsReading(t *testing.T) {
	handler := newIngestHandler(t, 10, true)

	rec := post(handler, `{"sensorId":"s-1","timestamp":"2026-03-01T12:00:00Z","metrics":{"thermal":{"temperature":42}}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Status         string                   `json:"status"`
		Classification models.ClassifiedReading `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body.Status)
	assert.Equal(t, "s-1", body.Classification.SensorID)
	assert.Equal(t, models.MetricStatusUnknown, body.Classification.Metrics["thermal"]["temperature"].Status)
}

func TestIngestHandlerReportsFullBuffer(t *testing.T) {
	// No consumer installed: the single slot fills and stays full.
	handler := newIngestHandler(t, 1, false)

	require.Equal(t, http.StatusAccepted, post(handler, `{"sensorId":"s-1","metrics":{"t":{"v":1}}}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, post(handler, `{"sensorId":"s-1","metrics":{"t":{"v":2}}}`).Code)
}

func TestSensorHealthHandlerNotFound(t *testing.T) {
	handler := NewSensorHealthHandler(failingSensorReader{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics/sensor/ghost/health", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingSensorReader struct{}

func (failingSensorReader) GetSensor(context.Context, string) (*models.SensorConfig, error) {
	return nil, sensorcfg.ErrNotFound
}
