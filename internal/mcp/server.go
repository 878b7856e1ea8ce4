package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Frame size limits for the stdio transport.
const (
	// initialScanBuffer is the starting buffer size for the line scanner.
	initialScanBuffer = 64 * 1024

	// maxFrameSize is the largest accepted JSON-RPC frame (4MB).
	maxFrameSize = 4 << 20
)

// Server runs the stdio transport: newline-delimited JSON-RPC frames on
// stdin/stdout, one message per line.
//
// Stdout carries protocol frames only. Anything else (logs, diagnostics)
// must go to stderr or the connection breaks.
type Server struct {
	handler *Handler
	in      io.Reader
	out     io.Writer
	logger  Logger

	// writeMu serialises response frames on the output stream.
	writeMu sync.Mutex
}

// NewServer creates a stdio server bound to os.Stdin and os.Stdout.
func NewServer(handler *Handler) *Server {
	return &Server{
		handler: handler,
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  noopLogger{},
	}
}

// SetLogger replaces the no-op logger. The logger must write to stderr.
func (s *Server) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
		s.handler.SetLogger(logger)
	}
}

// Serve reads frames until stdin closes or the context is cancelled.
//
// Each frame is handled synchronously: MCP clients over stdio await the
// response to one request before sending the next, so per-frame goroutines
// would only reorder output.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp stdio server started")

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxFrameSize)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			// Copy: the scanner reuses its buffer on the next Scan.
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("mcp stdio server stopping", "reason", "context cancelled")
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil && !errors.Is(err, io.EOF) {
						return fmt.Errorf("reading stdin: %w", err)
					}
				default:
				}
				s.logger.Info("mcp stdio server stopping", "reason", "stdin closed")
				return nil
			}

			if len(line) == 0 {
				continue
			}

			resp := s.handler.HandleMessage(ctx, line)
			if resp == nil {
				continue
			}
			if err := s.writeResponse(resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

// writeResponse emits one frame followed by a newline.
func (s *Server) writeResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
