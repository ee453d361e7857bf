package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests into live stream connections.
type Server struct {
	hub          *Hub
	secret       string
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// NewServer builds the websocket endpoint handler.
func NewServer(hub *Hub, secret string, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Server{
		hub:          hub,
		secret:       secret,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for the /ws endpoint. The ingenio is
// resolved from the session token before upgrading; unattributable clients
// are refused.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ingenioID, err := ingenioFromRequest(r, s.secret)
	if err != nil {
		http.Error(w, "ingenio could not be resolved", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(ingenioID, conn, s.hub, s.logger)
	s.hub.Register(client)

	go client.writePump(s.writeTimeout, s.pingInterval)
	go client.readPump()
}
