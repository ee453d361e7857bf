package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sensorhub/internal/models"
)

// KPIRepository appends hourly rollup rows. Rows are append-only; history is
// never rewritten.
type KPIRepository struct {
	db *sql.DB
}

// NewKPIRepository returns repository.
func NewKPIRepository(db *sql.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

// InsertMachineKPI appends one machine-scope rollup row.
func (r *KPIRepository) InsertMachineKPI(ctx context.Context, machineID int64, kpi models.HourlyKPI) error {
	const query = `
		INSERT INTO machine_kpis (machine_id, recorded_at, availability, process_metrics, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	return r.insert(ctx, query, machineID, kpi)
}

// InsertIngenioKPI appends one ingenio-scope rollup row.
func (r *KPIRepository) InsertIngenioKPI(ctx context.Context, ingenioID int64, kpi models.HourlyKPI) error {
	const query = `
		INSERT INTO ingenio_kpis (ingenio_id, recorded_at, availability, process_metrics, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	return r.insert(ctx, query, ingenioID, kpi)
}

func (r *KPIRepository) insert(ctx context.Context, query string, scopeID int64, kpi models.HourlyKPI) error {
	rawMetrics, err := json.Marshal(kpi.ProcessMetrics)
	if err != nil {
		return fmt.Errorf("encode process metrics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, query, scopeID, kpi.Timestamp.UTC(), kpi.Availability, rawMetrics)
	return err
}
