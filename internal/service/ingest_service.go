// Package service wires the pipeline stages together: classify on arrival,
// broadcast to live clients, buffer for asynchronous persistence.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sensorhub/internal/classify"
	"sensorhub/internal/metric"
	"sensorhub/internal/models"
	"sensorhub/internal/queue"
	"sensorhub/internal/sensorcfg"
)

// ConfigResolver resolves a sensor id to its threshold configuration.
type ConfigResolver interface {
	Resolve(ctx context.Context, sensorID string) (*models.SensorConfig, error)
}

// ReadingSink persists raw readings.
type ReadingSink interface {
	Save(ctx context.Context, reading models.Reading) error
}

// LivenessRecorder tracks when a sensor was last heard from.
type LivenessRecorder interface {
	TouchLastSeen(ctx context.Context, sensorID string, seenAt time.Time) error
}

// Broadcaster fans classified readings out to live connections.
type Broadcaster interface {
	PublishToIngenio(event string, payload any, ingenioID int64)
}

// EventReading is the envelope type of broadcast reading frames.
const EventReading = "reading"

// IngestService runs one reading through the full pipeline. Classification
// and broadcast happen synchronously on the ingest call; persistence is
// decoupled behind the bounded queue and never blocks the caller.
type IngestService struct {
	resolver ConfigResolver
	buffer   *queue.Queue[models.Reading]
	sink     ReadingSink
	liveness LivenessRecorder
	bus      Broadcaster
	logger   *zap.Logger
	metrics  *metric.Metrics
	now      func() time.Time
}

// NewIngestService builds the pipeline front. Call Start before ingesting to
// attach the persistence consumer.
func NewIngestService(
	resolver ConfigResolver,
	buffer *queue.Queue[models.Reading],
	sink ReadingSink,
	liveness LivenessRecorder,
	bus Broadcaster,
	logger *zap.Logger,
	metrics *metric.Metrics,
) *IngestService {
	return &IngestService{
		resolver: resolver,
		buffer:   buffer,
		sink:     sink,
		liveness: liveness,
		bus:      bus,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Start installs the persistence consumer on the buffer, bound to ctx.
func (s *IngestService) Start(ctx context.Context) {
	s.buffer.SetHandler(ctx, s.persist)
}

// Ingest classifies a reading, broadcasts it to the sensor's ingenio and
// buffers it for persistence. A full buffer drops the reading from the
// persistence path and reports queue.ErrQueueFull, but classification and
// broadcast have already happened: live consumers keep seeing data while the
// sink is behind.
func (s *IngestService) Ingest(ctx context.Context, reading models.Reading) (models.ClassifiedReading, error) {
	s.metrics.ReadingsReceived.Inc()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.now().UTC()
	}

	cfg, err := s.resolver.Resolve(ctx, reading.SensorID)
	if err != nil {
		// Unknown sensors and store outages degrade to unknown-status
		// classification rather than rejecting the reading.
		cfg = nil
		if !errors.Is(err, sensorcfg.ErrNotFound) {
			s.logger.Warn("config resolution failed, classifying without thresholds",
				zap.String("sensor_id", reading.SensorID), zap.Error(err))
		}
	}

	classified := classify.Classify(reading, cfg)

	if cfg != nil && cfg.Active {
		s.bus.PublishToIngenio(EventReading, classified, cfg.IngenioID)
	}

	if err := s.buffer.Enqueue(reading); err != nil {
		s.metrics.ReadingsDropped.WithLabelValues(metric.DropReasonCapacity).Inc()
		s.logger.Warn("ingest buffer full, dropping reading from persistence path",
			zap.String("sensor_id", reading.SensorID))
		return classified, err
	}
	return classified, nil
}

// persist is the buffer consumer: one reading at a time, in arrival order.
func (s *IngestService) persist(ctx context.Context, reading models.Reading) error {
	if err := s.sink.Save(ctx, reading); err != nil {
		s.metrics.ReadingsDropped.WithLabelValues(metric.DropReasonPersistence).Inc()
		return err
	}
	s.metrics.ReadingsPersisted.Inc()

	if err := s.liveness.TouchLastSeen(ctx, reading.SensorID, reading.Timestamp); err != nil {
		s.logger.Warn("failed to record sensor liveness",
			zap.String("sensor_id", reading.SensorID), zap.Error(err))
	}
	return nil
}
