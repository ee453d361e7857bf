package reliability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sensorhub/internal/metric"
	"sensorhub/internal/models"
)

// DefaultRollupInterval is one KPI row per scope per hour.
const DefaultRollupInterval = time.Hour

// ScopeLister enumerates the active scopes a rollup run must cover.
type ScopeLister interface {
	ListActiveMachines(ctx context.Context) ([]models.Machine, error)
	ListActiveIngenios(ctx context.Context) ([]models.Ingenio, error)
}

// KPIStore appends rollup rows.
type KPIStore interface {
	InsertMachineKPI(ctx context.Context, machineID int64, kpi models.HourlyKPI) error
	InsertIngenioKPI(ctx context.Context, ingenioID int64, kpi models.HourlyKPI) error
}

// Roller runs the periodic KPI rollup: machine scopes first, then ingenio
// scopes, each an independent recomputation from raw failure data. Scopes
// are processed sequentially; a per-scope failure is logged and skipped,
// never aborting the batch.
type Roller struct {
	engine   *Engine
	scopes   ScopeLister
	kpis     KPIStore
	interval time.Duration
	logger   *zap.Logger
	metrics  *metric.Metrics
	now      func() time.Time
}

// NewRoller builds the rollup job.
func NewRoller(engine *Engine, scopes ScopeLister, kpis KPIStore, interval time.Duration, logger *zap.Logger, metrics *metric.Metrics) *Roller {
	if interval <= 0 {
		interval = DefaultRollupInterval
	}
	return &Roller{
		engine:   engine,
		scopes:   scopes,
		kpis:     kpis,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Start runs the rollup on its interval until ctx is cancelled. A run that
// overruns simply delays the next tick's effective freshness; no timeout is
// imposed.
func (r *Roller) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single rollup pass. Every row written by the pass
// carries the job's invocation timestamp.
func (r *Roller) RunOnce(ctx context.Context) {
	ts := r.now().UTC()
	r.metrics.RollupRuns.Inc()
	r.logger.Info("starting hourly KPI rollup", zap.Time("timestamp", ts))

	machines, err := r.scopes.ListActiveMachines(ctx)
	if err != nil {
		r.logger.Error("failed to list active machines", zap.Error(err))
	} else {
		for _, machine := range machines {
			if err := r.rollMachine(ctx, machine.ID, ts); err != nil {
				r.metrics.RollupScopeErrors.WithLabelValues("machine").Inc()
				r.logger.Error("machine rollup failed, skipping scope",
					zap.Int64("machine_id", machine.ID), zap.Error(err))
			}
		}
	}

	ingenios, err := r.scopes.ListActiveIngenios(ctx)
	if err != nil {
		r.logger.Error("failed to list active ingenios", zap.Error(err))
	} else {
		for _, ingenio := range ingenios {
			if err := r.rollIngenio(ctx, ingenio.ID, ts); err != nil {
				r.metrics.RollupScopeErrors.WithLabelValues("ingenio").Inc()
				r.logger.Error("ingenio rollup failed, skipping scope",
					zap.Int64("ingenio_id", ingenio.ID), zap.Error(err))
			}
		}
	}

	r.logger.Info("hourly KPI rollup finished",
		zap.Int("machines", len(machines)), zap.Int("ingenios", len(ingenios)))
}

func (r *Roller) rollMachine(ctx context.Context, machineID int64, ts time.Time) error {
	kpis, err := r.engine.MachineMetrics(ctx, machineID)
	if err != nil {
		return err
	}
	return r.kpis.InsertMachineKPI(ctx, machineID, toHourlyKPI(ts, kpis))
}

func (r *Roller) rollIngenio(ctx context.Context, ingenioID int64, ts time.Time) error {
	kpis, err := r.engine.IngenioMetrics(ctx, ingenioID)
	if err != nil {
		return err
	}
	return r.kpis.InsertIngenioKPI(ctx, ingenioID, toHourlyKPI(ts, kpis))
}

// toHourlyKPI shapes a computed Metrics into the append-only row. A scope
// with no computable availability (just created) is recorded as fully
// available.
func toHourlyKPI(ts time.Time, m Metrics) models.HourlyKPI {
	availability := 100.0
	if m.Availability != nil {
		availability = *m.Availability
	}
	return models.HourlyKPI{
		Timestamp:    ts,
		Availability: availability,
		ProcessMetrics: models.ProcessMetrics{
			Reliability: m.Reliability,
			MTBF:        m.MTBF,
			MTTR:        m.MTTR,
			MTTA:        m.MTTA,
		},
	}
}
