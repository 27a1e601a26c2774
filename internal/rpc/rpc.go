// ABOUTME: Newline-delimited JSON server loop over an injected transport
// ABOUTME: (stdio for tests/headless harness), plus a push-event side channel

package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Server reads Requests from a reader and writes Responses to a writer,
// one JSON object per line, matching the teacher's rpc.Server shape. It
// also accepts out-of-band Events (hotkey-fired template/replace, AI
// response chunks, hotkey-conflict diagnostics) and serializes them to the
// same writer, interleaved safely with responses.
type Server struct {
	router *Router

	writeMu sync.Mutex
	events  chan Event
}

// NewServer constructs a Server dispatching through router.
func NewServer(router *Router) *Server {
	return &Server{router: router, events: make(chan Event, 64)}
}

// Dispatch runs one request through the router synchronously, without
// touching any transport. Exposed directly for tests and any in-process
// caller that does not go through Run.
func (s *Server) Dispatch(req Request) Response {
	return s.router.Handle(req)
}

// Emit pushes an event to be serialized on the transport passed to Run. It
// blocks if the event buffer is full, which is intentional backpressure:
// see DESIGN.md for the rationale against dropping events silently.
func (s *Server) Emit(event string, data any) {
	s.events <- Event{Event: event, Data: data}
}

// Run reads newline-delimited Requests from r and writes Responses (and
// any pending Events) to w, until r is exhausted or ctx-less io.EOF.
func (s *Server) Run(r io.Reader, w io.Writer) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case ev := <-s.events:
				if err := s.write(w, ev); err != nil {
					return
				}
			case <-stop:
				// Flush whatever is already buffered before exiting, so an
				// event emitted just before Run's input ended is not lost.
				for {
					select {
					case ev := <-s.events:
						_ = s.write(w, ev)
					default:
						return
					}
				}
			}
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = s.write(w, Response{Error: NewParseError(err.Error())})
			continue
		}
		resp := s.Dispatch(req)
		resp.ID = req.ID
		if err := s.write(w, resp); err != nil {
			return fmt.Errorf("rpc: writing response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) write(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rpc: marshal: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = w.Write(data)
	return err
}
