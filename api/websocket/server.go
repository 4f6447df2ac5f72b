// Package websocket carries JSON-RPC 2.0 over WebSocket connections. Each
// text message holds one request or batch and receives exactly one reply,
// mirroring the HTTP POST endpoint.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/api/jsonrpc"
)

const (
	// maxMessageSize bounds inbound frames
	maxMessageSize = 1 << 20

	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now (should be configured in production)
		return true
	},
}

// Server handles WebSocket connections
type Server struct {
	rpc       *jsonrpc.Server
	logger    *zap.Logger
	keepAlive bool

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	done  chan struct{}
}

// NewServer creates a WebSocket server that answers messages through the
// given JSON-RPC dispatcher
func NewServer(rpc *jsonrpc.Server, keepAlive bool, logger *zap.Logger) *Server {
	return &Server{
		rpc:       rpc,
		logger:    logger,
		keepAlive: keepAlive,
		conns:     make(map[*websocket.Conn]struct{}),
		done:      make(chan struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()

	s.logger.Info("new websocket connection",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("total_clients", total))

	go s.serve(conn)
}

// serve runs one connection's read loop until the peer disconnects or the
// server stops
func (s *Server) serve(conn *websocket.Conn) {
	defer s.drop(conn)

	conn.SetReadLimit(maxMessageSize)

	var writeMu sync.Mutex
	if s.keepAlive {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go s.pingLoop(conn, &writeMu)
	}

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		reply := s.rpc.Exchange(context.Background(), raw)
		payload, err := json.Marshal(reply)
		if err != nil {
			s.logger.Error("failed to marshal reply", zap.Error(err))
			continue
		}

		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, payload)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	conn.Close()

	s.mu.Lock()
	delete(s.conns, conn)
	total := len(s.conns)
	s.mu.Unlock()

	s.logger.Debug("websocket connection closed", zap.Int("total_clients", total))
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Stop closes all client connections
func (s *Server) Stop() {
	close(s.done)

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		delete(s.conns, conn)
	}

	s.logger.Info("websocket server stopped")
}
