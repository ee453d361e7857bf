package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Ingest         http.HandlerFunc
	SensorUpsert   http.HandlerFunc
	WS             http.HandlerFunc
	SensorMetrics  http.HandlerFunc
	SensorHealth   http.HandlerFunc
	MachineMetrics http.HandlerFunc
	IngenioMetrics http.HandlerFunc
	AnalyzeMachine http.HandlerFunc
	Prometheus     http.Handler
	Health         http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Ingest != nil {
		mux.Handle("/ingest", method(http.MethodPost, routes.Ingest))
	}
	if routes.SensorUpsert != nil {
		mux.Handle("/ingest/sensor", method(http.MethodPost, routes.SensorUpsert))
	}
	if routes.WS != nil {
		mux.Handle("/ws", method(http.MethodGet, routes.WS))
	}
	if routes.SensorMetrics != nil {
		mux.Handle("/metrics/sensor/{id}", method(http.MethodGet, routes.SensorMetrics))
	}
	if routes.SensorHealth != nil {
		mux.Handle("/metrics/sensor/{id}/health", method(http.MethodGet, routes.SensorHealth))
	}
	if routes.MachineMetrics != nil {
		mux.Handle("/metrics/machine/{id}", method(http.MethodGet, routes.MachineMetrics))
	}
	if routes.IngenioMetrics != nil {
		mux.Handle("/metrics/ingenio/{id}", method(http.MethodGet, routes.IngenioMetrics))
	}
	if routes.AnalyzeMachine != nil {
		mux.Handle("/analyze/machine/{id}", method(http.MethodGet, routes.AnalyzeMachine))
	}
	if routes.Prometheus != nil {
		mux.Handle("/metrics", routes.Prometheus)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
