package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/devicelab/devpool-core/internal/device"
	"github.com/devicelab/devpool-core/internal/tools"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	store, err := device.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	registry, err := tools.NewRegistry(device.NewManager(store))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewHandler(registry, "1.0.0-test", "stdio")
}

func handle(t *testing.T, h *Handler, raw string) *Response {
	t.Helper()
	return h.HandleMessage(context.Background(), []byte(raw))
}

// callTool issues a tools/call and decodes the text content of the result.
func callTool(t *testing.T, h *Handler, name string, args map[string]any) (map[string]any, *Response) {
	t.Helper()

	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := h.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("tools/call returned no response")
	}
	if resp.Error != nil {
		return nil, resp
	}

	result, ok := resp.Result.(callResult)
	if !ok {
		t.Fatalf("result type = %T, want callResult", resp.Result)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v, want one text block", result.Content)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &decoded); err != nil {
		t.Fatalf("content text is not JSON: %v", err)
	}
	return decoded, resp
}

func TestHandleInitialize(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}

	result, ok := resp.Result.(initializeResult)
	if !ok {
		t.Fatalf("result type = %T, want initializeResult", resp.Result)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "devpool-core" {
		t.Errorf("server name = %q, want devpool-core", result.ServerInfo.Name)
	}
	if result.ServerInfo.Version != "1.0.0-test" {
		t.Errorf("server version = %q, want 1.0.0-test", result.ServerInfo.Version)
	}
	if string(resp.ID) != "1" {
		t.Errorf("response ID = %s, want 1", resp.ID)
	}
}

func TestHandleToolsList(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{"jsonrpc":"2.0","id":"list-1","method":"tools/list"}`)
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map", resp.Result)
	}
	descriptors, ok := result["tools"].([]tools.Descriptor)
	if !ok {
		t.Fatalf("tools type = %T, want []tools.Descriptor", result["tools"])
	}
	if len(descriptors) != 14 {
		t.Errorf("len(tools) = %d, want 14", len(descriptors))
	}
	if string(resp.ID) != `"list-1"` {
		t.Errorf("string ID not round-tripped: %s", resp.ID)
	}
}

func TestHandleToolsCall(t *testing.T) {
	h := newTestHandler(t)

	decoded, _ := callTool(t, h, "device.create", map[string]any{
		"device_id": "android-pixel8-001",
		"name":      "Pixel 8",
		"category":  "android",
		"sku":       "GP8",
		"cpu_type":  "arm64",
	})
	if decoded["success"] != true {
		t.Errorf("create result = %v, want success true", decoded)
	}

	decoded, _ = callTool(t, h, "device.list", map[string]any{})
	devices, ok := decoded["devices"].([]any)
	if !ok || len(devices) != 1 {
		t.Errorf("list result = %v, want 1 device", decoded)
	}
}

func TestHandleToolsCallToolError(t *testing.T) {
	h := newTestHandler(t)

	params := `{"name":"device.info","arguments":{"device_id":"no-such-device"}}`
	resp := handle(t, h, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":`+params+`}`)
	if resp == nil {
		t.Fatal("no response")
	}
	if resp.Error != nil {
		t.Fatalf("tool failure must not be a protocol error, got %+v", resp.Error)
	}

	result, ok := resp.Result.(callResult)
	if !ok {
		t.Fatalf("result type = %T, want callResult", resp.Result)
	}
	if !result.IsError {
		t.Error("isError should be set for a failed tool call")
	}
	if !strings.Contains(result.Content[0].Text, `"NOT_FOUND"`) {
		t.Errorf("error content = %s, want NOT_FOUND envelope", result.Content[0].Text)
	}
}

func TestHandleToolsCallInvalidParams(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "missing tool name",
			raw:  `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"arguments":{}}}`,
		},
		{
			name: "params not an object",
			raw:  `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1,2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handle(t, h, tt.raw)
			if resp == nil || resp.Error == nil {
				t.Fatalf("expected protocol error, got %+v", resp)
			}
			if resp.Error.Code != codeInvalidParams {
				t.Errorf("code = %d, want %d", resp.Error.Code, codeInvalidParams)
			}
		})
	}
}

func TestHandleUnknownToolIsResultError(t *testing.T) {
	h := newTestHandler(t)

	decoded, resp := callTool(t, h, "device.reboot", map[string]any{"device_id": "x"})
	if resp.Error != nil {
		t.Fatalf("unknown tool should be a tool-level error, got protocol error %+v", resp.Error)
	}
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		t.Fatalf("decoded = %v, want error envelope", decoded)
	}
	if errObj["code"] != "UNKNOWN_TOOL" {
		t.Errorf("error code = %v, want UNKNOWN_TOOL", errObj["code"])
	}
}

func TestHandlePing(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{"jsonrpc":"2.0","id":99,"method":"ping"}`)
	if resp == nil || resp.Error != nil {
		t.Fatalf("ping failed: %+v", resp)
	}
}

func TestHandleNotifications(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "initialized", raw: `{"jsonrpc":"2.0","method":"notifications/initialized"}`},
		{name: "cancelled", raw: `{"jsonrpc":"2.0","method":"notifications/cancelled"}`},
		{name: "unknown notification", raw: `{"jsonrpc":"2.0","method":"notifications/whatever"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := handle(t, h, tt.raw); resp != nil {
				t.Errorf("notification got a response: %+v", resp)
			}
		})
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	if resp == nil || resp.Error == nil {
		t.Fatalf("expected method-not-found, got %+v", resp)
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, codeMethodNotFound)
	}
}

func TestHandleParseError(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{not json`)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected parse error response")
	}
	if resp.Error.Code != codeParseError {
		t.Errorf("code = %d, want %d", resp.Error.Code, codeParseError)
	}
}

func TestHandleMissingMethod(t *testing.T) {
	h := newTestHandler(t)

	resp := handle(t, h, `{"jsonrpc":"2.0","id":1}`)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected invalid-request response")
	}
	if resp.Error.Code != codeInvalidRequest {
		t.Errorf("code = %d, want %d", resp.Error.Code, codeInvalidRequest)
	}
}
