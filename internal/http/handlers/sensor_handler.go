package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sensorhub/internal/models"
	"sensorhub/internal/sensorcfg"
)

// ConfigWriter is the write-through configuration path.
type ConfigWriter interface {
	Upsert(ctx context.Context, cfg *models.SensorConfig) (*models.SensorConfig, error)
}

// SensorReader resolves a sensor's stored configuration.
type SensorReader interface {
	GetSensor(ctx context.Context, sensorID string) (*models.SensorConfig, error)
}

// NewSensorUpsertHandler returns POST /ingest/sensor handler.
func NewSensorUpsertHandler(writer ConfigWriter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg models.SensorConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if cfg.SensorID == "" {
			writeError(w, http.StatusBadRequest, "sensorId is required")
			return
		}
		if cfg.MachineID == 0 || cfg.IngenioID == 0 {
			writeError(w, http.StatusBadRequest, "machineId and ingenioId are required")
			return
		}

		stored, err := writer.Upsert(r.Context(), &cfg)
		if err != nil {
			logger.Error("sensor upsert failed", zap.String("sensor_id", cfg.SensorID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store sensor config")
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

// NewSensorHealthHandler returns GET /metrics/sensor/{id}/health handler.
func NewSensorHealthHandler(sensors SensorReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensorID := r.PathValue("id")
		if sensorID == "" {
			writeError(w, http.StatusBadRequest, "sensor id is required")
			return
		}

		cfg, err := sensors.GetSensor(r.Context(), sensorID)
		if errors.Is(err, sensorcfg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sensor not found")
			return
		}
		if err != nil {
			logger.Error("sensor health lookup failed", zap.String("sensor_id", sensorID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch sensor")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sensorId": cfg.SensorID,
			"active":   cfg.Active,
			"lastSeen": cfg.LastSeen,
		})
	}
}
