package mcp

import (
	"context"
	"encoding/json"

	"github.com/devicelab/devpool-core/internal/tools"
)

// Logger is the minimal logging interface the handler needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler processes JSON-RPC messages against the tool registry.
// It is transport-agnostic: the stdio server and the HTTP /mcp endpoint
// both feed raw messages through HandleMessage.
type Handler struct {
	registry *tools.Registry
	version  string
	source   string
	logger   Logger
}

// NewHandler creates a handler bound to a tool registry.
//
// source tags audit entries with the transport the call arrived on
// ("stdio" or "http").
func NewHandler(registry *tools.Registry, version, source string) *Handler {
	return &Handler{
		registry: registry,
		version:  version,
		source:   source,
		logger:   noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (h *Handler) SetLogger(logger Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// HandleMessage parses and dispatches one JSON-RPC message.
//
// It returns nil for notifications, which must not be answered.
func (h *Handler) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return newErrorResponse(nil, codeParseError, "parse error: invalid JSON")
	}
	return h.Handle(ctx, &req)
}

// Handle dispatches one parsed request.
func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	if req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return newErrorResponse(req.ID, codeInvalidRequest, "invalid request: missing method")
	}

	h.logger.Debug("mcp request", "method", req.Method)

	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "tools/list":
		return h.handleToolsList(req)
	case "tools/call":
		return h.handleToolsCall(ctx, req)
	case "ping":
		if req.IsNotification() {
			return nil
		}
		return newResponse(req.ID, struct{}{})
	case "notifications/initialized", "notifications/cancelled":
		// Client lifecycle notifications, accepted without a response.
		return nil
	default:
		if req.IsNotification() {
			h.logger.Debug("ignoring unknown notification", "method", req.Method)
			return nil
		}
		return newErrorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *Handler) handleInitialize(req *Request) *Response {
	return newResponse(req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo: serverInfo{
			Name:    serverName,
			Version: h.version,
		},
	})
}

func (h *Handler) handleToolsList(req *Request) *Response {
	return newResponse(req.ID, map[string]any{
		"tools": h.registry.List(),
	})
}

func (h *Handler) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return newErrorResponse(req.ID, codeInvalidParams, "invalid params: expected object with name and arguments")
		}
	}
	if params.Name == "" {
		return newErrorResponse(req.ID, codeInvalidParams, "invalid params: tool name is required")
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	result, toolErr := h.registry.Call(tools.WithSource(ctx, h.source), params.Name, params.Arguments)
	if toolErr != nil {
		// Tool failures are results, not protocol errors: the client's
		// model needs the structured envelope to decide what to do next.
		return newResponse(req.ID, errorCallResult(toolErr))
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		h.logger.Error("failed to encode tool result", "tool", params.Name, "error", err)
		return newErrorResponse(req.ID, codeInternalError, "failed to encode tool result")
	}

	return newResponse(req.ID, callResult{
		Content: []contentBlock{{Type: "text", Text: string(text)}},
	})
}

// errorCallResult wraps a structured tool error as a tools/call result.
func errorCallResult(toolErr *tools.Error) callResult {
	text, err := json.MarshalIndent(tools.ErrorEnvelope{Error: toolErr}, "", "  ")
	if err != nil {
		text = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"failed to encode error"}}`)
	}
	return callResult{
		Content: []contentBlock{{Type: "text", Text: string(text)}},
		IsError: true,
	}
}
