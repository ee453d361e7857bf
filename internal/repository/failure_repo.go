package repository

import (
	"context"
	"database/sql"

	"sensorhub/internal/models"
)

// FailureRepository reads failure history with its associated maintenance.
// Failures are created and resolved by operators elsewhere; the pipeline
// only consumes them.
type FailureRepository struct {
	db *sql.DB
}

// NewFailureRepository returns repository.
func NewFailureRepository(db *sql.DB) *FailureRepository {
	return &FailureRepository{db: db}
}

const failureColumns = `
	f.id, f.machine_id, f.sensor_id, f.ingenio_id, f.occurred_at, f.resolved_at,
	f.severity, f.status,
	m.id, m.machine_id, m.ingenio_id, m.failure_id, m.performed_at, m.technician_id, m.duration_minutes
`

const failureJoin = `
	FROM failures f
	LEFT JOIN maintenances m ON m.failure_id = f.id
`

// ListByMachine returns a machine's failures, occurredAt ascending.
func (r *FailureRepository) ListByMachine(ctx context.Context, machineID int64) ([]models.Failure, error) {
	query := `SELECT ` + failureColumns + failureJoin + `
		WHERE f.machine_id = $1
		ORDER BY f.occurred_at ASC`
	return r.list(ctx, query, machineID)
}

// ListByIngenio returns every failure inside an ingenio, occurredAt ascending.
func (r *FailureRepository) ListByIngenio(ctx context.Context, ingenioID int64) ([]models.Failure, error) {
	query := `SELECT ` + failureColumns + failureJoin + `
		WHERE f.ingenio_id = $1
		ORDER BY f.occurred_at ASC`
	return r.list(ctx, query, ingenioID)
}

// ListBySensor returns failures attributed to one sensor, occurredAt ascending.
func (r *FailureRepository) ListBySensor(ctx context.Context, sensorID string) ([]models.Failure, error) {
	query := `SELECT ` + failureColumns + failureJoin + `
		WHERE f.sensor_id = $1
		ORDER BY f.occurred_at ASC`
	return r.list(ctx, query, sensorID)
}

func (r *FailureRepository) list(ctx context.Context, query string, arg any) ([]models.Failure, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []models.Failure
	for rows.Next() {
		var (
			f models.Failure

			sensorID   sql.NullString
			resolvedAt sql.NullTime

			maintID         sql.NullInt64
			maintMachineID  sql.NullInt64
			maintIngenioID  sql.NullInt64
			maintFailureID  sql.NullInt64
			performedAt     sql.NullTime
			technicianID    sql.NullInt64
			durationMinutes sql.NullInt64
		)
		if err := rows.Scan(
			&f.ID, &f.MachineID, &sensorID, &f.IngenioID, &f.OccurredAt, &resolvedAt,
			&f.Severity, &f.Status,
			&maintID, &maintMachineID, &maintIngenioID, &maintFailureID,
			&performedAt, &technicianID, &durationMinutes,
		); err != nil {
			return nil, err
		}

		if sensorID.Valid {
			f.SensorID = &sensorID.String
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			f.ResolvedAt = &t
		}
		if maintID.Valid {
			maint := models.Maintenance{
				ID:        maintID.Int64,
				MachineID: maintMachineID.Int64,
				IngenioID: maintIngenioID.Int64,
			}
			if maintFailureID.Valid {
				maint.FailureID = &maintFailureID.Int64
			}
			if performedAt.Valid {
				t := performedAt.Time
				maint.PerformedAt = &t
			}
			if technicianID.Valid {
				maint.TechnicianID = &technicianID.Int64
			}
			if durationMinutes.Valid {
				minutes := int(durationMinutes.Int64)
				maint.DurationMinutes = &minutes
			}
			f.Maintenance = &maint
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
