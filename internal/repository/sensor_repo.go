package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sensorhub/internal/models"
	"sensorhub/internal/sensorcfg"
)

// SensorRepository is the durable store for sensor configuration.
type SensorRepository struct {
	db *sql.DB
}

// NewSensorRepository returns repository.
func NewSensorRepository(db *sql.DB) *SensorRepository {
	return &SensorRepository{db: db}
}

// GetSensor loads one sensor's configuration by its external id.
func (r *SensorRepository) GetSensor(ctx context.Context, sensorID string) (*models.SensorConfig, error) {
	const query = `
		SELECT sensor_id, machine_id, ingenio_id, name, type, COALESCE(location, ''),
		       interval_ms, metrics_config, created_at, last_seen, active, config_version
		FROM sensors
		WHERE sensor_id = $1
	`
	var (
		cfg      models.SensorConfig
		rawCfg   []byte
		lastSeen sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&cfg.SensorID,
		&cfg.MachineID,
		&cfg.IngenioID,
		&cfg.Name,
		&cfg.Type,
		&cfg.Location,
		&cfg.IntervalMs,
		&rawCfg,
		&cfg.CreatedAt,
		&lastSeen,
		&cfg.Active,
		&cfg.ConfigVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sensorcfg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(rawCfg) > 0 {
		if err := json.Unmarshal(rawCfg, &cfg.MetricsConfig); err != nil {
			return nil, fmt.Errorf("sensor %s: decode metrics config: %w", sensorID, err)
		}
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		cfg.LastSeen = &t
	}
	return &cfg, nil
}

// UpsertSensor inserts or replaces a sensor's configuration wholesale.
func (r *SensorRepository) UpsertSensor(ctx context.Context, cfg *models.SensorConfig) (*models.SensorConfig, error) {
	rawCfg, err := json.Marshal(cfg.MetricsConfig)
	if err != nil {
		return nil, fmt.Errorf("encode metrics config: %w", err)
	}

	const query = `
		INSERT INTO sensors (sensor_id, machine_id, ingenio_id, name, type, location,
		                     interval_ms, metrics_config, created_at, active, config_version, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NOW(), $9, $10, NOW())
		ON CONFLICT (sensor_id) DO UPDATE SET
			name           = EXCLUDED.name,
			type           = EXCLUDED.type,
			location       = EXCLUDED.location,
			interval_ms    = EXCLUDED.interval_ms,
			metrics_config = EXCLUDED.metrics_config,
			active         = EXCLUDED.active,
			config_version = EXCLUDED.config_version,
			updated_at     = NOW()
		RETURNING created_at
	`
	stored := *cfg
	err = r.db.QueryRowContext(ctx, query,
		cfg.SensorID,
		cfg.MachineID,
		cfg.IngenioID,
		cfg.Name,
		cfg.Type,
		cfg.Location,
		cfg.IntervalMs,
		rawCfg,
		cfg.Active,
		cfg.ConfigVersion,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// TouchLastSeen records sensor liveness. Best-effort: callers treat a
// failure as non-fatal.
func (r *SensorRepository) TouchLastSeen(ctx context.Context, sensorID string, seenAt time.Time) error {
	const query = `
		UPDATE sensors SET last_seen = $2, updated_at = NOW()
		WHERE sensor_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, sensorID, seenAt.UTC())
	return err
}

// ListActiveByMachine returns every active sensor attached to a machine.
func (r *SensorRepository) ListActiveByMachine(ctx context.Context, machineID int64) ([]models.SensorConfig, error) {
	const query = `
		SELECT sensor_id, machine_id, ingenio_id, name, type, COALESCE(location, ''),
		       interval_ms, metrics_config, created_at, last_seen, active, config_version
		FROM sensors
		WHERE machine_id = $1 AND active = TRUE
		ORDER BY sensor_id
	`
	rows, err := r.db.QueryContext(ctx, query, machineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []models.SensorConfig
	for rows.Next() {
		var (
			cfg      models.SensorConfig
			rawCfg   []byte
			lastSeen sql.NullTime
		)
		if err := rows.Scan(
			&cfg.SensorID,
			&cfg.MachineID,
			&cfg.IngenioID,
			&cfg.Name,
			&cfg.Type,
			&cfg.Location,
			&cfg.IntervalMs,
			&rawCfg,
			&cfg.CreatedAt,
			&lastSeen,
			&cfg.Active,
			&cfg.ConfigVersion,
		); err != nil {
			return nil, err
		}
		if len(rawCfg) > 0 {
			if err := json.Unmarshal(rawCfg, &cfg.MetricsConfig); err != nil {
				return nil, fmt.Errorf("sensor %s: decode metrics config: %w", cfg.SensorID, err)
			}
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			cfg.LastSeen = &t
		}
		sensors = append(sensors, cfg)
	}
	return sensors, rows.Err()
}
