package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sensorhub/internal/analysis"
	"sensorhub/internal/models"
)

// DefaultHistoryLimit caps how many readings per sensor feed an analysis run.
const DefaultHistoryLimit = 500

// MachineSensors enumerates the active sensors of a machine.
type MachineSensors interface {
	ListActiveByMachine(ctx context.Context, machineID int64) ([]models.SensorConfig, error)
}

// ReadingSource fetches a sensor's recent readings in chronological order.
type ReadingSource interface {
	ListBySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error)
}

// MachineResolver resolves machine scopes.
type MachineResolver interface {
	GetMachine(ctx context.Context, id int64) (*models.Machine, error)
}

// AnalyzeService assembles per-sensor history batches and runs the trend
// analysis over them.
type AnalyzeService struct {
	machines MachineResolver
	sensors  MachineSensors
	readings ReadingSource
	limit    int
	logger   *zap.Logger
}

// NewAnalyzeService builds the analysis front.
func NewAnalyzeService(machines MachineResolver, sensors MachineSensors, readings ReadingSource, limit int, logger *zap.Logger) *AnalyzeService {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &AnalyzeService{
		machines: machines,
		sensors:  sensors,
		readings: readings,
		limit:    limit,
		logger:   logger,
	}
}

// AnalyzeMachine runs trend analysis over every active sensor of a machine.
// A sensor whose history fetch fails is skipped with a warning so one bad
// sensor cannot sink the whole machine report; a machine with no active
// sensors yields analysis.ErrNoData.
func (s *AnalyzeService) AnalyzeMachine(ctx context.Context, machineID int64) (analysis.Report, error) {
	if _, err := s.machines.GetMachine(ctx, machineID); err != nil {
		return analysis.Report{}, err
	}

	sensors, err := s.sensors.ListActiveByMachine(ctx, machineID)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("list sensors for machine %d: %w", machineID, err)
	}

	inputs := make([]analysis.Input, 0, len(sensors))
	for i := range sensors {
		cfg := &sensors[i]
		readings, err := s.readings.ListBySensor(ctx, cfg.SensorID, s.limit)
		if err != nil {
			s.logger.Warn("history fetch failed, skipping sensor in analysis",
				zap.String("sensor_id", cfg.SensorID), zap.Error(err))
			continue
		}
		inputs = append(inputs, analysis.Input{Config: cfg, Readings: readings})
	}

	return analysis.Analyze(inputs)
}
