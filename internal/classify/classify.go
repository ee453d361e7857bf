// Package classify evaluates readings against operator-defined thresholds.
package classify

import (
	"fmt"
	"math"

	"sensorhub/internal/models"
)

// Severity thresholds: a bound breached by more than this percentage is
// critical, anything less is a warning.
const criticalExceedancePercent = 20

// Classify assigns a per-metric and overall status to a reading. It is a
// pure function: no side effects, deterministic for identical inputs.
//
// A nil config (unknown sensor, unreachable config store) degrades every
// metric to "unknown" rather than failing the reading. Values exactly equal
// to a bound are not violations.
func Classify(reading models.Reading, cfg *models.SensorConfig) models.ClassifiedReading {
	report := make(map[string]map[string]models.MetricReport, len(reading.Metrics))
	issues := []models.Issue{}
	maxSeverity := 0

	for category, group := range reading.Metrics {
		report[category] = make(map[string]models.MetricReport, len(group))

		for metricName, value := range group {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				report[category][metricName] = models.MetricReport{Value: value, Status: models.MetricStatusInvalid}
				continue
			}

			rng, ok := cfg.Range(category, metricName)
			if !ok {
				report[category][metricName] = models.MetricReport{Value: value, Status: models.MetricStatusUnknown}
				continue
			}

			status := models.MetricStatusOK
			exceedance := 0.0

			if rng.Min != nil && value < *rng.Min {
				status = models.MetricStatusLow
				exceedance = exceedancePercent(*rng.Min-value, *rng.Min)
				issues = append(issues, models.Issue{
					Metric:            fmt.Sprintf("%s.%s", category, metricName),
					Type:              models.MetricStatusLow,
					Value:             value,
					Limit:             *rng.Min,
					ExceedancePercent: exceedance,
				})
			} else if rng.Max != nil && value > *rng.Max {
				status = models.MetricStatusHigh
				exceedance = exceedancePercent(value-*rng.Max, *rng.Max)
				issues = append(issues, models.Issue{
					Metric:            fmt.Sprintf("%s.%s", category, metricName),
					Type:              models.MetricStatusHigh,
					Value:             value,
					Limit:             *rng.Max,
					ExceedancePercent: exceedance,
				})
			}

			severity := 0
			if status != models.MetricStatusOK {
				if exceedance > criticalExceedancePercent {
					severity = 2
				} else {
					severity = 1
				}
			}
			if severity > maxSeverity {
				maxSeverity = severity
			}

			report[category][metricName] = models.MetricReport{Value: value, Status: status}
		}
	}

	return models.ClassifiedReading{
		SensorID:      reading.SensorID,
		Timestamp:     reading.Timestamp,
		Status:        overallStatus(maxSeverity),
		Metrics:       report,
		Issues:        issues,
		TotalIssues:   len(issues),
		SeverityLevel: maxSeverity,
	}
}

// exceedancePercent relates breach distance to the magnitude of the bound.
// Bounds smaller than 1 use 1 as denominator so near-zero limits do not
// explode the percentage.
func exceedancePercent(breach, bound float64) float64 {
	return breach / math.Max(math.Abs(bound), 1) * 100
}

func overallStatus(severity int) string {
	switch severity {
	case 2:
		return models.StatusCritical
	case 1:
		return models.StatusWarning
	default:
		return models.StatusOK
	}
}
