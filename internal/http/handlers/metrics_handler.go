package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sensorhub/internal/reliability"
	"sensorhub/internal/sensorcfg"
)

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// NewSensorMetricsHandler returns GET /metrics/sensor/{id} handler.
func NewSensorMetricsHandler(engine *reliability.Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensorID := r.PathValue("id")
		if sensorID == "" {
			writeError(w, http.StatusBadRequest, "sensor id is required")
			return
		}

		metrics, err := engine.SensorMetrics(r.Context(), sensorID)
		if errors.Is(err, sensorcfg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sensor not found")
			return
		}
		if err != nil {
			logger.Error("sensor KPI computation failed", zap.String("sensor_id", sensorID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute metrics")
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

// NewMachineMetricsHandler returns GET /metrics/machine/{id} handler.
func NewMachineMetricsHandler(engine *reliability.Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machineID, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid machine id")
			return
		}

		metrics, err := engine.MachineMetrics(r.Context(), machineID)
		if err != nil {
			logger.Error("machine KPI computation failed", zap.Int64("machine_id", machineID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute metrics")
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

// NewIngenioMetricsHandler returns GET /metrics/ingenio/{id} handler.
func NewIngenioMetricsHandler(engine *reliability.Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingenioID, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ingenio id")
			return
		}

		metrics, err := engine.IngenioMetrics(r.Context(), ingenioID)
		if err != nil {
			logger.Error("ingenio KPI computation failed", zap.Int64("ingenio_id", ingenioID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute metrics")
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}
