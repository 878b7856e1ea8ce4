package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devicelab/devpool-core/internal/audit"
	"github.com/devicelab/devpool-core/internal/device"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder persists tool-call audit entries. Recording is best-effort;
// a failed write is logged, never surfaced to the caller.
type Recorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

// handlerFunc executes one tool. It returns either a result value to be
// serialized verbatim, or an error for the dispatcher to translate.
type handlerFunc func(ctx context.Context, args map[string]any) (any, error)

// tool pairs a descriptor with its bound handler.
type tool struct {
	desc   Descriptor
	handle handlerFunc
}

// Registry is the static tool table plus the dispatch logic around it.
//
// Thread Safety: Call and List are safe for concurrent use once the
// registry is built; SetLogger and SetRecorder belong to startup wiring.
type Registry struct {
	tools    map[string]tool
	order    []string
	logger   Logger
	recorder Recorder
}

// NewRegistry builds the registry, binding every declared tool to a
// lifecycle operation and validating the table once at startup. A
// descriptor without a handler, a handler without a descriptor, or a
// schema whose required list names an undeclared property is a wiring
// bug and fails construction.
func NewRegistry(manager *device.Manager) (*Registry, error) {
	h := &handlers{manager: manager}

	bindings := map[string]handlerFunc{
		"device.list":       h.list,
		"device.create":     h.create,
		"device.update":     h.update,
		"device.delete":     h.delete,
		"device.borrow":     h.borrow,
		"device.return":     h.returnDevice,
		"device.search":     h.search,
		"device.status":     h.status,
		"device.info":       h.info,
		"device.connect":    h.connect,
		"device.disconnect": h.disconnect,
		"device.execute":    h.execute,
		"device.upload":     h.upload,
		"device.download":   h.download,
	}

	r := &Registry{
		tools:  make(map[string]tool, len(bindings)),
		logger: noopLogger{},
	}

	for _, desc := range descriptors() {
		handle, ok := bindings[desc.Name]
		if !ok {
			return nil, fmt.Errorf("tool %q has no handler", desc.Name)
		}
		if err := validateSchema(desc); err != nil {
			return nil, err
		}
		r.tools[desc.Name] = tool{desc: desc, handle: handle}
		r.order = append(r.order, desc.Name)
	}

	if len(r.tools) != len(bindings) {
		return nil, fmt.Errorf("handler bound to undeclared tool: %d handlers, %d descriptors",
			len(bindings), len(r.tools))
	}

	return r, nil
}

// validateSchema checks a descriptor for internal consistency.
func validateSchema(desc Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool with empty name")
	}
	if desc.InputSchema.Type != typeObject {
		return fmt.Errorf("tool %q: schema type must be object", desc.Name)
	}
	for _, req := range desc.InputSchema.Required {
		if _, ok := desc.InputSchema.Properties[req]; !ok {
			return fmt.Errorf("tool %q: required argument %q not declared", desc.Name, req)
		}
	}
	return nil
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetRecorder sets the audit recorder. A nil recorder disables auditing.
func (r *Registry) SetRecorder(recorder Recorder) {
	r.recorder = recorder
}

// List returns every tool descriptor in declaration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].desc)
	}
	return out
}

// sourceKey carries the transport name through the context for auditing.
type sourceKey struct{}

// WithSource tags a context with the transport carrying the call.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}
	return "unknown"
}

// Call dispatches one tool invocation: registry lookup, schema
// validation, handler execution with panic recovery, then logging and
// audit. Exactly one of result and the returned Error is non-nil.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, toolErr *Error) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", name, "panic", rec)
			result = nil
			toolErr = newError(CodeInternalError, "tool %s: %v", name, rec)
		}
		r.finish(ctx, name, args, toolErr, time.Since(start))
	}()

	t, ok := r.tools[name]
	if !ok {
		toolErr = newError(CodeUnknownTool, "unknown tool: %s", name)
		return nil, toolErr
	}

	if args == nil {
		args = map[string]any{}
	}
	if toolErr = validateArgs(t.desc.InputSchema, args); toolErr != nil {
		return nil, toolErr
	}

	res, err := t.handle(ctx, args)
	if err != nil {
		toolErr = mapError(err)
		return nil, toolErr
	}

	return res, nil
}

// validateArgs checks the supplied arguments against the declared schema:
// every required key must be present, and any supplied key that the
// schema declares must carry the declared primitive type. Keys the
// schema does not declare are ignored for forward compatibility.
func validateArgs(schema Schema, args map[string]any) *Error {
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return newError(CodeInvalidParameters, "missing required argument: %s", req)
		}
	}

	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			continue
		}
		switch prop.Type {
		case typeString:
			if _, ok := value.(string); !ok {
				return newError(CodeInvalidParameters, "argument %s must be a string", key)
			}
		case typeObject:
			if _, ok := value.(map[string]any); !ok {
				return newError(CodeInvalidParameters, "argument %s must be an object", key)
			}
		case typeArray:
			if _, ok := value.([]any); !ok {
				return newError(CodeInvalidParameters, "argument %s must be an array", key)
			}
		}
	}

	return nil
}

// finish logs the call outcome and records it in the audit trail.
func (r *Registry) finish(ctx context.Context, name string, args map[string]any, toolErr *Error, elapsed time.Duration) {
	summary := argSummary(args)

	if toolErr != nil {
		r.logger.Warn("tool call failed",
			"tool", name, "args", summary, "code", toolErr.Code,
			"error", toolErr.Message, "duration", elapsed)
	} else {
		r.logger.Info("tool call ok", "tool", name, "args", summary, "duration", elapsed)
	}

	if r.recorder == nil {
		return
	}

	entry := &audit.Entry{
		Tool:     name,
		Outcome:  "ok",
		Source:   sourceFrom(ctx),
		Duration: elapsed,
	}
	if id, ok := args["device_id"].(string); ok {
		entry.DeviceID = id
	}
	if summary != "" && summary != "{}" {
		entry.Details = map[string]any{"args": summary}
	}
	if toolErr != nil {
		entry.Outcome = "error"
		entry.ErrorCode = toolErr.Code
	}

	if err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.Warn("audit record failed", "tool", name, "error", err)
	}
}

// maxArgSummary caps the logged argument summary so oversized payloads
// never flood the log or the audit table.
const maxArgSummary = 200

// argSummary renders the arguments as truncated JSON for logging.
func argSummary(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("unserializable: %v", err)
	}
	if len(b) > maxArgSummary {
		return string(b[:maxArgSummary]) + "..."
	}
	return string(b)
}
