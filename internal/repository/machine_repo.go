package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sensorhub/internal/models"
)

// MachineRepository resolves machine and ingenio scopes for KPI computation
// and enumerates the active scopes the rollup job covers.
type MachineRepository struct {
	db *sql.DB
}

// NewMachineRepository returns repository.
func NewMachineRepository(db *sql.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// GetMachine loads one machine by id.
func (r *MachineRepository) GetMachine(ctx context.Context, id int64) (*models.Machine, error) {
	const query = `
		SELECT id, ingenio_id, name, active, created_at
		FROM machines
		WHERE id = $1
	`
	var machine models.Machine
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&machine.ID, &machine.IngenioID, &machine.Name, &machine.Active, &machine.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("machine %d: not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

// GetIngenio loads one ingenio by id.
func (r *MachineRepository) GetIngenio(ctx context.Context, id int64) (*models.Ingenio, error) {
	const query = `
		SELECT id, name, active, created_at
		FROM ingenios
		WHERE id = $1
	`
	var ingenio models.Ingenio
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ingenio.ID, &ingenio.Name, &ingenio.Active, &ingenio.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingenio %d: not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &ingenio, nil
}

// ListActiveMachines returns every active machine across all ingenios.
func (r *MachineRepository) ListActiveMachines(ctx context.Context) ([]models.Machine, error) {
	const query = `
		SELECT id, ingenio_id, name, active, created_at
		FROM machines
		WHERE active = TRUE
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var machines []models.Machine
	for rows.Next() {
		var machine models.Machine
		if err := rows.Scan(
			&machine.ID, &machine.IngenioID, &machine.Name, &machine.Active, &machine.CreatedAt,
		); err != nil {
			return nil, err
		}
		machines = append(machines, machine)
	}
	return machines, rows.Err()
}

// ListActiveIngenios returns every active ingenio.
func (r *MachineRepository) ListActiveIngenios(ctx context.Context) ([]models.Ingenio, error) {
	const query = `
		SELECT id, name, active, created_at
		FROM ingenios
		WHERE active = TRUE
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingenios []models.Ingenio
	for rows.Next() {
		var ingenio models.Ingenio
		if err := rows.Scan(
			&ingenio.ID, &ingenio.Name, &ingenio.Active, &ingenio.CreatedAt,
		); err != nil {
			return nil, err
		}
		ingenios = append(ingenios, ingenio)
	}
	return ingenios, rows.Err()
}
