package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sensorhub/internal/models"
)

// ReadingRepository is the persistence sink and history source for raw
// readings, stored as JSONB rows. It stands in for the original document
// store behind the same narrow interface; no cross-store transaction ties
// it to the relational entities.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Save persists one reading. Readings are written once and never updated.
func (r *ReadingRepository) Save(ctx context.Context, reading models.Reading) error {
	rawMetrics, err := json.Marshal(reading.Metrics)
	if err != nil {
		return fmt.Errorf("encode reading metrics: %w", err)
	}

	const query = `
		INSERT INTO sensor_readings (sensor_id, recorded_at, metrics, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err = r.db.ExecContext(ctx, query, reading.SensorID, reading.Timestamp.UTC(), rawMetrics)
	return err
}

// ListBySensor returns up to limit most recent readings for a sensor, in
// chronological order.
func (r *ReadingRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 500
	}
	const query = `
		SELECT sensor_id, recorded_at, metrics
		FROM sensor_readings
		WHERE sensor_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, sensorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var (
			reading    models.Reading
			rawMetrics []byte
		)
		if err := rows.Scan(&reading.SensorID, &reading.Timestamp, &rawMetrics); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawMetrics, &reading.Metrics); err != nil {
			return nil, fmt.Errorf("sensor %s: decode reading metrics: %w", sensorID, err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fetched newest-first for the LIMIT; callers want chronological order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}
