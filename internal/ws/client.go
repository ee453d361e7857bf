package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 16
	readLimit      = 64 * 1024
	pongWait       = 60 * time.Second
)

// Client is one live dashboard connection, tagged with the ingenio it was
// attributed at connect time.
type Client struct {
	id        string
	ingenioID int64
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	logger    *zap.Logger
	closeOnce sync.Once
}

func newClient(ingenioID int64, conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	return &Client{
		id:        uuid.NewString(),
		ingenioID: ingenioID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		logger:    logger,
	}
}

// trySend enqueues a frame without blocking. A full buffer or a closed
// channel skips the client and reports false.
func (c *Client) trySend(msg []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping frame, client buffer full",
			zap.String("conn_id", c.id), zap.Int64("ingenio_id", c.ingenioID))
		return false
	}
}

// readPump discards inbound frames; the live stream is outbound-only. It
// exists to notice transport-level close and keep pong deadlines fresh.
func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump flushes queued frames and keeps the connection alive with pings.
func (c *Client) writePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, open := <-c.send:
			if !open {
				_ = c.write(websocket.CloseMessage, []byte{}, writeTimeout)
				return
			}
			if err := c.write(websocket.TextMessage, msg, writeTimeout); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil, writeTimeout); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte, timeout time.Duration) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(messageType, data)
}

// close tears the connection down exactly once: removal from the hub,
// channel close, transport close.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
