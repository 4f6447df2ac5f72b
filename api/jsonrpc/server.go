package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Server serves JSON-RPC 2.0 payloads. Batch requests are answered
// position-for-position. The same dispatch backs both the HTTP POST
// endpoint and the WebSocket transport.
type Server struct {
	handler *Handler
	logger  *zap.Logger
}

// NewServer creates a JSON-RPC server around a method handler
func NewServer(handler *Handler, logger *zap.Logger) *Server {
	return &Server{handler: handler, logger: logger}
}

// Handler returns the underlying method handler
func (s *Server) Handler() *Handler {
	return s.handler
}

// ServeHTTP handles one HTTP request carrying a single or batch JSON-RPC
// payload
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, NewErrorResponse(nil, NewError(ParseError, "parse error", err.Error())))
		return
	}

	writeJSON(w, s.Exchange(r.Context(), raw))
}

// Exchange processes one raw JSON-RPC payload, single or batch, and returns
// the value to serialize back to the caller. It never returns nil.
func (s *Server) Exchange(ctx context.Context, raw []byte) interface{} {
	// A leading '[' marks a batch
	trimmed := trimLeftSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return s.exchangeBatch(ctx, trimmed)
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(nil, NewError(InvalidRequest, "invalid request", err.Error()))
	}
	return s.serveOne(ctx, &req)
}

func (s *Server) exchangeBatch(ctx context.Context, raw []byte) interface{} {
	var batch BatchRequest
	if err := json.Unmarshal(raw, &batch); err != nil {
		return NewErrorResponse(nil, NewError(InvalidRequest, "invalid batch", err.Error()))
	}
	if len(batch) == 0 {
		return NewErrorResponse(nil, NewError(InvalidRequest, "empty batch", nil))
	}

	responses := make(BatchResponse, len(batch))
	for i := range batch {
		responses[i] = *s.serveOne(ctx, &batch[i])
	}
	return responses
}

func (s *Server) serveOne(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		return NewErrorResponse(req.ID, NewError(InvalidRequest, "jsonrpc must be \"2.0\"", nil))
	}
	if req.Method == "" {
		return NewErrorResponse(req.ID, NewError(InvalidRequest, "method is required", nil))
	}

	result, rpcErr := s.handler.HandleMethod(ctx, req.Method, req.Params)
	if rpcErr != nil {
		s.logger.Debug("method failed",
			zap.String("method", req.Method),
			zap.Int("code", rpcErr.Code),
			zap.String("message", rpcErr.Message),
		)
		return NewErrorResponse(req.ID, rpcErr)
	}

	return NewResponse(req.ID, result)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}

func trimLeftSpace(b []byte) []byte {
	for len(b) > 0 {
		switch b[0] {
		case ' ', '\t', '\n', '\r':
			b = b[1:]
		default:
			return b
		}
	}
	return b
}
