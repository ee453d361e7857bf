package models

import "time"

// Machine is a piece of equipment owned by an ingenio.
type Machine struct {
	ID        int64     `json:"id"`
	IngenioID int64     `json:"ingenioId"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ingenio is an isolated customer/site scope that owns machines, sensors
// and users.
type Ingenio struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Failure is an operator-reported incident. ResolvedAt is set exactly once
// when the incident is closed.
type Failure struct {
	ID          int64        `json:"id"`
	MachineID   int64        `json:"machineId"`
	SensorID    *string      `json:"sensorId,omitempty"`
	IngenioID   int64        `json:"ingenioId"`
	OccurredAt  time.Time    `json:"occurredAt"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
	Severity    string       `json:"severity"`
	Status      string       `json:"status"`
	Maintenance *Maintenance `json:"maintenance,omitempty"`
}

// Maintenance is one intervention, optionally tied to a failure. Immutable
// after creation.
type Maintenance struct {
	ID              int64      `json:"id"`
	MachineID       int64      `json:"machineId"`
	IngenioID       int64      `json:"ingenioId"`
	FailureID       *int64     `json:"failureId,omitempty"`
	PerformedAt     *time.Time `json:"performedAt,omitempty"`
	TechnicianID    *int64     `json:"technicianId,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
}

// ProcessMetrics is the JSONB payload stored next to availability in an
// hourly KPI row.
type ProcessMetrics struct {
	Reliability *float64 `json:"reliability"`
	MTBF        *float64 `json:"mtbf"`
	MTTR        *float64 `json:"mttr"`
	MTTA        *float64 `json:"mtta"`
}

// HourlyKPI is one append-only rollup row for a machine or ingenio scope.
type HourlyKPI struct {
	Timestamp      time.Time      `json:"timestamp"`
	Availability   float64        `json:"availability"`
	ProcessMetrics ProcessMetrics `json:"processMetrics"`
}
