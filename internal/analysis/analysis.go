// Package analysis produces per-metric trend diagnostics over batches of
// historical readings: least-squares trend, range-proximity urgency and a
// downsampled series for charting.
package analysis

import (
	"errors"
	"math"
	"sort"
	"time"

	"sensorhub/internal/models"
)

// MaxChartPoints bounds the downsampled series returned for charting.
const MaxChartPoints = 50

// Trend labels.
const (
	TrendRising  = "subiendo"
	TrendFalling = "bajando"
	TrendStable  = "estable"
)

// Urgency labels.
const (
	UrgencyNormal     = "normal"
	UrgencyModerate   = "moderada"
	UrgencyVeryHigh   = "muy alta"
	UrgencyOutOfRange = "fuera de rango"
)

// A slope is considered flat when it moves less than this fraction of the
// series mean per hour.
const stableSlopeFraction = 0.005

// ErrNoData is returned when the batch contains nothing to analyze.
var ErrNoData = errors.New("analysis: no data to analyze")

// Input pairs one sensor's configuration with its historical readings.
type Input struct {
	Config   *models.SensorConfig
	Readings []models.Reading
}

// MetricResult is the diagnostic for a single configured metric. A metric
// with fewer than two valid points carries only Message.
type MetricResult struct {
	Trend   string             `json:"trend,omitempty"`
	Slope   float64            `json:"slope"`
	Current float64            `json:"current"`
	Range   models.MetricRange `json:"range"`
	Urgency string             `json:"urgency,omitempty"`
	Message string             `json:"message,omitempty"`
}

// ChartPoint is one downsampled sample.
type ChartPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ChartSeries is the chart-ready series for one metric.
type ChartSeries struct {
	Metric string       `json:"metric"`
	Data   []ChartPoint `json:"data"`
}

// SensorReport aggregates all metric diagnostics for one sensor.
type SensorReport struct {
	SensorID  string                             `json:"sensorId"`
	Summary   map[string]map[string]MetricResult `json:"summary"`
	ChartData map[string][]ChartSeries           `json:"chartData"`
}

// Report is the full response for a batch.
type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Report    []SensorReport `json:"report"`
}

type point struct {
	x time.Time
	y float64
}

// Analyze walks every configured (category, metric) of every input and
// builds its trend, urgency and chart series.
func Analyze(inputs []Input) (Report, error) {
	if len(inputs) == 0 {
		return Report{}, ErrNoData
	}

	reports := make([]SensorReport, 0, len(inputs))
	for _, input := range inputs {
		reports = append(reports, analyzeSensor(input))
	}

	return Report{
		Timestamp: time.Now().UTC(),
		Report:    reports,
	}, nil
}

func analyzeSensor(input Input) SensorReport {
	report := SensorReport{
		Summary:   map[string]map[string]MetricResult{},
		ChartData: map[string][]ChartSeries{},
	}
	if input.Config != nil {
		report.SensorID = input.Config.SensorID
	}
	if input.Config == nil || input.Config.MetricsConfig == nil {
		return report
	}

	for category, group := range input.Config.MetricsConfig {
		report.Summary[category] = map[string]MetricResult{}
		report.ChartData[category] = []ChartSeries{}

		for metricName, rng := range group {
			points := collectPoints(input.Readings, category, metricName)

			if len(points) < 2 {
				report.Summary[category][metricName] = MetricResult{
					Message: "not enough data points for analysis",
				}
				continue
			}

			slope := regressionSlope(points)
			current := points[len(points)-1].y

			report.Summary[category][metricName] = MetricResult{
				Trend:   trendOf(slope, points),
				Slope:   slope,
				Current: current,
				Range:   rng,
				Urgency: urgencyOf(current, rng),
			}

			report.ChartData[category] = append(report.ChartData[category], ChartSeries{
				Metric: metricName,
				Data:   Downsample(toChartPoints(points)),
			})
		}
	}
	return report
}

// collectPoints extracts the finite samples of one metric, in chronological
// order regardless of how the readings were fetched.
func collectPoints(readings []models.Reading, category, metricName string) []point {
	points := make([]point, 0, len(readings))
	for _, r := range readings {
		group, ok := r.Metrics[category]
		if !ok {
			continue
		}
		value, ok := group[metricName]
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		points = append(points, point{x: r.Timestamp, y: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].x.Before(points[j].x) })
	return points
}

// regressionSlope fits an ordinary least-squares line over the points with
// time normalized to hours since the first point, returning change per hour.
// A degenerate x spread yields slope 0.
func regressionSlope(points []point) float64 {
	n := float64(len(points))
	x0 := points[0].x

	meanX, meanY := 0.0, 0.0
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.x.Sub(x0).Hours()
		meanX += xs[i]
		meanY += p.y
	}
	meanX /= n
	meanY /= n

	numerator, denominator := 0.0, 0.0
	for i, p := range points {
		dx := xs[i] - meanX
		numerator += dx * (p.y - meanY)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func trendOf(slope float64, points []point) string {
	meanY := 0.0
	for _, p := range points {
		meanY += p.y
	}
	meanY /= float64(len(points))

	if math.Abs(slope) < math.Abs(meanY)*stableSlopeFraction {
		return TrendStable
	}
	if slope > 0 {
		return TrendRising
	}
	return TrendFalling
}

// urgencyOf grades how close the current value sits to its bounds. Metrics
// lacking either bound default to normal.
func urgencyOf(current float64, rng models.MetricRange) string {
	if rng.Min == nil || rng.Max == nil {
		return UrgencyNormal
	}
	min, max := *rng.Min, *rng.Max

	if current > max || current < min {
		return UrgencyOutOfRange
	}

	span := max - min
	if span <= 0 {
		return UrgencyNormal
	}
	minDistance := math.Min(max-current, current-min)
	ratio := minDistance / span

	switch {
	case ratio <= 0.10:
		return UrgencyVeryHigh
	case ratio <= 0.25:
		return UrgencyModerate
	default:
		return UrgencyNormal
	}
}

func toChartPoints(points []point) []ChartPoint {
	series := make([]ChartPoint, len(points))
	for i, p := range points {
		series[i] = ChartPoint{Timestamp: p.x, Value: p.y}
	}
	return series
}

// Downsample reduces a dense series to at most MaxChartPoints evenly-strided
// samples. The most recent point is force-appended if the stride did not
// already land on it, so the latest reading is always visible on a chart.
func Downsample(series []ChartPoint) []ChartPoint {
	n := len(series)
	if n <= MaxChartPoints {
		return series
	}

	sampled := make([]ChartPoint, 0, MaxChartPoints+1)
	lastIndex := -1
	for i := 0; i < MaxChartPoints; i++ {
		index := i * n / MaxChartPoints
		sampled = append(sampled, series[index])
		lastIndex = index
	}
	if lastIndex != n-1 {
		sampled = append(sampled, series[n-1])
	}
	return sampled
}
