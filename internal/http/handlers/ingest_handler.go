package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sensorhub/internal/models"
	"sensorhub/internal/queue"
	"sensorhub/internal/service"
)

// NewIngestHandler returns POST /ingest handler.
func NewIngestHandler(svc *service.IngestService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reading models.Reading
		if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if reading.SensorID == "" {
			writeError(w, http.StatusBadRequest, "sensorId is required")
			return
		}
		if len(reading.Metrics) == 0 {
			writeError(w, http.StatusBadRequest, "metrics must not be empty")
			return
		}

		classified, err := svc.Ingest(r.Context(), reading)
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "ingest buffer full")
			return
		}
		if err != nil {
			logger.Error("ingest failed", zap.String("sensor_id", reading.SensorID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to ingest reading")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":         "accepted",
			"classification": classified,
		})
	}
}
