// Package bridge carries automation requests to the facade over stdio and
// WebSocket transports. Both speak one JSON request per message and answer
// with one JSON response carrying the same id.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/entrhq/threadsweep/pkg/automation"
	"github.com/entrhq/threadsweep/pkg/logging"
)

// maxLineSize bounds one request line. ANALYZE_THREAD payloads carry whole
// transcripts.
const maxLineSize = 8 * 1024 * 1024

const errInvalidRequest = "Invalid request"

// Handler serves one request. *automation.Facade satisfies it.
type Handler interface {
	Handle(ctx context.Context, req automation.Request) automation.Response
}

// ServeStdio reads newline-delimited JSON requests from r and writes one
// response line per request to w, in order. It returns nil at end of input and
// ctx.Err() when cancelled. Blank lines are skipped.
func ServeStdio(ctx context.Context, h Handler, r io.Reader, w io.Writer, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					return fmt.Errorf("failed to read requests: %w", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			resp := serveLine(ctx, h, []byte(line), logger)
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}

// serveLine decodes and dispatches one request. Undecodable input is answered
// with an error response rather than ending the session.
func serveLine(ctx context.Context, h Handler, data []byte, logger *logging.Logger) automation.Response {
	req, err := decodeRequest(data)
	if err != nil {
		logger.Warnf("rejecting request: %v", err)
		return automation.Response{ID: req.ID, OK: false, Error: errInvalidRequest}
	}
	return h.Handle(ctx, req)
}

func decodeRequest(data []byte) (automation.Request, error) {
	var req automation.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("malformed JSON: %w", err)
	}
	if req.Type == "" {
		return req, errors.New("missing type")
	}
	return req, nil
}
