package models

import "time"

// MetricRange bounds a single metric. Either side may be absent; a metric
// with neither bound never violates anything.
type MetricRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MetricsConfig maps category -> metric name -> bounds.
type MetricsConfig map[string]map[string]MetricRange

// SensorConfig is the operator-defined configuration of one sensor.
// Immutable per version; replaced wholesale on update.
type SensorConfig struct {
	SensorID      string        `json:"sensorId"`
	MachineID     int64         `json:"machineId"`
	IngenioID     int64         `json:"ingenioId"`
	Name          string        `json:"name,omitempty"`
	Type          string        `json:"type"`
	Location      string        `json:"location,omitempty"`
	IntervalMs    int           `json:"intervalMs"`
	MetricsConfig MetricsConfig `json:"metricsConfig"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastSeen      *time.Time    `json:"lastSeen,omitempty"`
	Active        bool          `json:"active"`
	ConfigVersion string        `json:"configVersion"`
}

// Range returns the configured bounds for category.metric, reporting
// whether an entry exists at all.
func (c *SensorConfig) Range(category, metric string) (MetricRange, bool) {
	if c == nil || c.MetricsConfig == nil {
		return MetricRange{}, false
	}
	group, ok := c.MetricsConfig[category]
	if !ok {
		return MetricRange{}, false
	}
	rng, ok := group[metric]
	return rng, ok
}

// Reading is one telemetry sample as pushed by a sensor. Immutable after
// ingestion.
type Reading struct {
	SensorID  string                        `json:"sensorId"`
	Timestamp time.Time                     `json:"timestamp"`
	Metrics   map[string]map[string]float64 `json:"metrics"`
}

// Per-metric classification statuses.
const (
	MetricStatusOK      = "ok"
	MetricStatusLow     = "low"
	MetricStatusHigh    = "high"
	MetricStatusUnknown = "unknown"
	MetricStatusInvalid = "invalid"
)

// Overall reading statuses.
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Issue describes one threshold violation inside a reading.
type Issue struct {
	Metric            string  `json:"metric"`
	Type              string  `json:"type"`
	Value             float64 `json:"value"`
	Limit             float64 `json:"limit"`
	ExceedancePercent float64 `json:"exceedancePercent"`
}

// MetricReport carries the classified value of a single metric.
type MetricReport struct {
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

// ClassifiedReading is the derived, non-persisted view of a Reading after
// threshold evaluation. Recomputed against the config in force at request
// time; never stored.
type ClassifiedReading struct {
	SensorID      string                             `json:"sensorId"`
	Timestamp     time.Time                          `json:"timestamp"`
	Status        string                             `json:"status"`
	Metrics       map[string]map[string]MetricReport `json:"metrics"`
	Issues        []Issue                            `json:"issues"`
	TotalIssues   int                                `json:"totalIssues"`
	SeverityLevel int                                `json:"severityLevel"`
}
