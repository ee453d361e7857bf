// Package reliability computes failure/maintenance KPIs (MTBF, MTTR, MTTA,
// availability, reliability) per machine, ingenio or sensor scope, on demand
// and through the hourly rollup job.
package reliability

import (
	"context"
	"time"

	"sensorhub/internal/models"
)

// Metrics is the KPI result for one scope. Nil means "not computable from
// this history", serialized as JSON null.
type Metrics struct {
	Availability *float64 `json:"availability"`
	Reliability  *float64 `json:"reliability"`
	MTBF         *float64 `json:"mtbf"`
	MTTR         *float64 `json:"mttr"`
	MTTA         *float64 `json:"mtta"`
}

func ptr(v float64) *float64 { return &v }

func hoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

// Compute derives the KPIs from a scope's failure history, ordered by
// occurredAt ascending. scopeCreatedAt anchors total observed time.
//
// With no failures the scope is perfectly available and reliable, and the
// mean times are undefined. Availability is deliberately not clamped to
// [0,100]: a scope whose downtime exceeds its lifetime reports a negative
// value, which is a meaningful alarm signal rather than a bug to mask.
func Compute(failures []models.Failure, scopeCreatedAt, now time.Time) Metrics {
	if len(failures) == 0 {
		return Metrics{
			Availability: ptr(100),
			Reliability:  ptr(100),
		}
	}

	total := hoursBetween(scopeCreatedAt, now)

	var mttr *float64
	repairedSum, repairedCount := 0.0, 0
	for _, f := range failures {
		if f.ResolvedAt != nil {
			repairedSum += hoursBetween(f.OccurredAt, *f.ResolvedAt)
			repairedCount++
		}
	}
	if repairedCount > 0 {
		mttr = ptr(repairedSum / float64(repairedCount))
	}

	var mtta *float64
	attendedSum, attendedCount := 0.0, 0
	for _, f := range failures {
		if f.Maintenance != nil && f.Maintenance.PerformedAt != nil {
			attendedSum += hoursBetween(f.OccurredAt, *f.Maintenance.PerformedAt)
			attendedCount++
		}
	}
	if attendedCount > 0 {
		mtta = ptr(attendedSum / float64(attendedCount))
	}

	var mtbf *float64
	if len(failures) > 1 {
		gapSum := 0.0
		for i := 1; i < len(failures); i++ {
			gapSum += hoursBetween(failures[i-1].OccurredAt, failures[i].OccurredAt)
		}
		mtbf = ptr(gapSum / float64(len(failures)-1))
	}

	// Open failures count as down until now.
	downtime := 0.0
	for _, f := range failures {
		resolved := now
		if f.ResolvedAt != nil {
			resolved = *f.ResolvedAt
		}
		downtime += hoursBetween(f.OccurredAt, resolved)
	}

	var availability *float64
	if total > 0 {
		availability = ptr((total - downtime) / total * 100)
	}

	var reliability *float64
	if mtbf != nil && mttr != nil && *mtbf+*mttr > 0 {
		reliability = ptr(*mtbf / (*mtbf + *mttr) * 100)
	}

	return Metrics{
		Availability: availability,
		Reliability:  reliability,
		MTBF:         mtbf,
		MTTR:         mttr,
		MTTA:         mtta,
	}
}

// FailureSource lists a scope's failures with their associated maintenance,
// ordered by occurredAt ascending.
type FailureSource interface {
	ListByMachine(ctx context.Context, machineID int64) ([]models.Failure, error)
	ListByIngenio(ctx context.Context, ingenioID int64) ([]models.Failure, error)
	ListBySensor(ctx context.Context, sensorID string) ([]models.Failure, error)
}

// ScopeSource resolves scope entities for their creation anchor.
type ScopeSource interface {
	GetMachine(ctx context.Context, id int64) (*models.Machine, error)
	GetIngenio(ctx context.Context, id int64) (*models.Ingenio, error)
}

// SensorSource resolves a sensor for sensor-scoped KPIs.
type SensorSource interface {
	GetSensor(ctx context.Context, sensorID string) (*models.SensorConfig, error)
}

// Engine computes point-in-time KPIs against live history.
type Engine struct {
	failures FailureSource
	scopes   ScopeSource
	sensors  SensorSource
	now      func() time.Time
}

// NewEngine builds the engine over its data sources.
func NewEngine(failures FailureSource, scopes ScopeSource, sensors SensorSource) *Engine {
	return &Engine{
		failures: failures,
		scopes:   scopes,
		sensors:  sensors,
		now:      time.Now,
	}
}

// MachineMetrics computes KPIs for one machine.
func (e *Engine) MachineMetrics(ctx context.Context, machineID int64) (Metrics, error) {
	machine, err := e.scopes.GetMachine(ctx, machineID)
	if err != nil {
		return Metrics{}, err
	}
	failures, err := e.failures.ListByMachine(ctx, machineID)
	if err != nil {
		return Metrics{}, err
	}
	return Compute(failures, machine.CreatedAt, e.now().UTC()), nil
}

// IngenioMetrics computes KPIs for one ingenio. This is an independent
// recomputation from raw failure data, not an aggregate of machine results.
func (e *Engine) IngenioMetrics(ctx context.Context, ingenioID int64) (Metrics, error) {
	ingenio, err := e.scopes.GetIngenio(ctx, ingenioID)
	if err != nil {
		return Metrics{}, err
	}
	failures, err := e.failures.ListByIngenio(ctx, ingenioID)
	if err != nil {
		return Metrics{}, err
	}
	return Compute(failures, ingenio.CreatedAt, e.now().UTC()), nil
}

// SensorMetrics computes KPIs over failures attributed to one sensor.
func (e *Engine) SensorMetrics(ctx context.Context, sensorID string) (Metrics, error) {
	sensor, err := e.sensors.GetSensor(ctx, sensorID)
	if err != nil {
		return Metrics{}, err
	}
	failures, err := e.failures.ListBySensor(ctx, sensorID)
	if err != nil {
		return Metrics{}, err
	}
	return Compute(failures, sensor.CreatedAt, e.now().UTC()), nil
}
