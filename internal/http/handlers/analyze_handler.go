package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sensorhub/internal/analysis"
	"sensorhub/internal/service"
)

// NewAnalyzeMachineHandler returns GET /analyze/machine/{id} handler.
func NewAnalyzeMachineHandler(svc *service.AnalyzeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machineID, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid machine id")
			return
		}

		report, err := svc.AnalyzeMachine(r.Context(), machineID)
		if errors.Is(err, analysis.ErrNoData) {
			writeError(w, http.StatusNotFound, "no data to analyze for machine")
			return
		}
		if err != nil {
			logger.Error("machine analysis failed", zap.Int64("machine_id", machineID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to analyze machine")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
