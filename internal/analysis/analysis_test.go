package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorhub/internal/models"
)

var start = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func configFor(category, metricName string, rng models.MetricRange) *models.SensorConfig {
	return &models.SensorConfig{
		SensorID: "sensor-1",
		MetricsConfig: models.MetricsConfig{
			category: {metricName: rng},
		},
	}
}

// series builds hourly readings with values produced by f(hour).
func series(category, metricName string, n int, f func(i int) float64) []models.Reading {
	readings := make([]models.Reading, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, models.Reading{
			SensorID:  "sensor-1",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Metrics: map[string]map[string]float64{
				category: {metricName: f(i)},
			},
		})
	}
	return readings
}

func singleResult(t *testing.T, report Report, category, metricName string) MetricResult {
	t.Helper()
	require.Len(t, report.Report, 1)
	result, ok := report.Report[0].Summary[category][metricName]
	require.True(t, ok)
	return result
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	_, err := Analyze(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestAnalyzeLinearIncreaseIsRising(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(1000)})
	readings := series("thermal", "temperature", 24, func(i int) float64 { return float64(2 * i) })

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.Greater(t, result.Slope, 0.0)
	assert.InDelta(t, 2.0, result.Slope, 1e-9, "y = 2x per hour")
	assert.Equal(t, TrendRising, result.Trend)
	assert.Equal(t, 46.0, result.Current)
}

func TestAnalyzeFlatSeriesIsStable(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(100)})
	readings := series("thermal", "temperature", 10, func(i int) float64 { return 55 })

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.Equal(t, TrendStable, result.Trend)
	assert.InDelta(t, 0.0, result.Slope, 1e-9)
}

func TestAnalyzeDecreasingSeriesIsFalling(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(1000)})
	readings := series("thermal", "temperature", 12, func(i int) float64 { return 500 - float64(10*i) })

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.Equal(t, TrendFalling, result.Trend)
	assert.Less(t, result.Slope, 0.0)
}

func TestAnalyzeUnorderedReadingsAreSorted(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(1000)})
	readings := series("thermal", "temperature", 10, func(i int) float64 { return float64(3 * i) })
	// Newest-first, the order a history query typically returns.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.Equal(t, TrendRising, result.Trend)
	assert.Equal(t, 27.0, result.Current, "current must be the chronologically last value")
}

func TestAnalyzeInsufficientData(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(100)})
	readings := series("thermal", "temperature", 1, func(i int) float64 { return 10 })

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, result.Trend)
}

func TestUrgencyBands(t *testing.T) {
	rng := models.MetricRange{Min: ptr(0), Max: ptr(100)}

	assert.Equal(t, UrgencyOutOfRange, urgencyOf(120, rng))
	assert.Equal(t, UrgencyOutOfRange, urgencyOf(-5, rng))
	assert.Equal(t, UrgencyVeryHigh, urgencyOf(95, rng), "within 10% of a bound")
	assert.Equal(t, UrgencyVeryHigh, urgencyOf(5, rng))
	assert.Equal(t, UrgencyModerate, urgencyOf(80, rng), "within 25% of a bound")
	assert.Equal(t, UrgencyNormal, urgencyOf(50, rng))

	// Values exactly on a bound are in range.
	assert.Equal(t, UrgencyVeryHigh, urgencyOf(100, rng))

	// Missing bounds default to normal.
	assert.Equal(t, UrgencyNormal, urgencyOf(1e9, models.MetricRange{Min: ptr(0)}))
	assert.Equal(t, UrgencyNormal, urgencyOf(1e9, models.MetricRange{}))
}

func TestDownsampleShortSeriesUntouched(t *testing.T) {
	points := toChartPoints(collectPoints(series("c", "m", 50, func(i int) float64 { return float64(i) }), "c", "m"))
	assert.Len(t, Downsample(points), 50)
}

func TestDownsampleKeepsLastPoint(t *testing.T) {
	readings := series("c", "m", 200, func(i int) float64 { return float64(i) })
	points := toChartPoints(collectPoints(readings, "c", "m"))

	sampled := Downsample(points)

	// 200/50 stride lands exactly on index 196 for i=49, so the last point
	// is force-appended.
	assert.GreaterOrEqual(t, len(sampled), MaxChartPoints)
	assert.LessOrEqual(t, len(sampled), MaxChartPoints+1)
	assert.Equal(t, points[len(points)-1], sampled[len(sampled)-1])
}

func TestDownsampleStrideAlignedSeries(t *testing.T) {
	for _, n := range []int{51, 100, 150, 199, 500, 1000} {
		readings := series("c", "m", n, func(i int) float64 { return float64(i) })
		points := toChartPoints(collectPoints(readings, "c", "m"))

		sampled := Downsample(points)

		assert.GreaterOrEqual(t, len(sampled), MaxChartPoints, "n=%d", n)
		assert.LessOrEqual(t, len(sampled), MaxChartPoints+1, "n=%d", n)
		assert.Equal(t, points[len(points)-1], sampled[len(sampled)-1], "n=%d", n)
	}
}

func TestAnalyzeSkipsNonNumericSamples(t *testing.T) {
	cfg := configFor("thermal", "temperature", models.MetricRange{Min: ptr(0), Max: ptr(100)})
	readings := series("thermal", "temperature", 6, func(i int) float64 { return float64(i) })
	// A reading missing the metric entirely is skipped, not treated as zero.
	readings = append(readings, models.Reading{
		SensorID:  "sensor-1",
		Timestamp: start.Add(100 * time.Hour),
		Metrics:   map[string]map[string]float64{"thermal": {}},
	})

	report, err := Analyze([]Input{{Config: cfg, Readings: readings}})
	require.NoError(t, err)

	result := singleResult(t, report, "thermal", "temperature")
	assert.Equal(t, 5.0, result.Current)
}
