// ABOUTME: Session Registry: owns in-flight AI requests, cancellation, and
// ABOUTME: the none/copy/replace post-action tagged sum (§4.4)

package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/askanywhere/assistant-core/internal/aiclient"
	"github.com/askanywhere/assistant-core/internal/log"
	"github.com/askanywhere/assistant-core/internal/selection"
	"github.com/askanywhere/assistant-core/internal/winapi"
)

// PostActionKind identifies which side effect a session applies on terminal
// success. It is the backend's one polymorphism point, modeled as a tagged
// sum (a fixed enum dispatched with a switch) rather than a dispatch table
// of function values, per the design note that recommends this.
type PostActionKind string

const (
	PostActionNone    PostActionKind = "none"
	PostActionCopy    PostActionKind = "copy"
	PostActionReplace PostActionKind = "replace"
)

// PostAction carries the kind plus whatever state applying it needs.
type PostAction struct {
	Kind PostActionKind
}

// Apply performs the post-action's side effect against the accumulated
// response text and the session's origin window. Errors from apply are
// logged, never surfaced: §7 specifies no error propagation for
// post-actions.
func (p PostAction) Apply(text string, origin winapi.HWND) {
	switch p.Kind {
	case PostActionNone:
		return
	case PostActionCopy:
		if err := selection.WriteClipboardText(text); err != nil {
			log.Warn("session: copy post-action failed: %v", err)
		}
	case PostActionReplace:
		if err := selection.ReplaceAtOrigin(origin, text); err != nil {
			log.Warn("session: replace post-action failed: %v", err)
		}
	}
}

// ModelSnapshot is the subset of a configured Model a session needs once
// it has started; later config changes must not affect an in-flight
// session.
type ModelSnapshot struct {
	BaseURL        string
	APIKey         string
	ModelName      string
	SupportsVision bool
}

// Chunk is one event posted to a session's sink: either a content delta,
// or (Done=true) the terminal signal, optionally carrying a terminal
// error.
type Chunk struct {
	SessionID int64
	Text      string
	Done      bool
	Err       error
}

// Session is one in-flight (or just-completed) AI request.
type Session struct {
	ID         int64
	CorrID     string
	Model      ModelSnapshot
	PostAction PostAction
	Origin     winapi.HWND
	StartedAt  time.Time

	cancel context.CancelFunc

	mu      sync.Mutex
	text    strings.Builder
	applied bool
}

// AppendText accumulates one content delta and returns the total text so
// far.
func (s *Session) AppendText(delta string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.WriteString(delta)
	return s.text.String()
}

// Text returns the accumulated response text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Cancel cancels the session's in-flight request, if any.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// ApplyPostActionOnce applies the session's post-action exactly once,
// idempotent against duplicate terminal signals.
func (s *Session) ApplyPostActionOnce() {
	s.mu.Lock()
	if s.applied {
		s.mu.Unlock()
		return
	}
	s.applied = true
	text := s.text.String()
	s.mu.Unlock()

	s.PostAction.Apply(text, s.Origin)
}

// Registry owns the session table and the single "active session" pointer
// the popup exposes (§4.4: at most one active session per popup; starting
// a new one cancels the previous).
type Registry struct {
	client *aiclient.Client

	nextID atomic.Int64
	eg     errgroup.Group

	mu       sync.Mutex
	sessions map[int64]*Session
	activeID int64
}

// New constructs a Registry bound to client for issuing requests.
func New(client *aiclient.Client) *Registry {
	return &Registry{client: client, sessions: make(map[int64]*Session)}
}

// StartParams describes one stream_ai_response invocation.
type StartParams struct {
	Model      ModelSnapshot
	Messages   []aiclient.Message
	Screenshots []string
	PostAction PostAction
	Origin     winapi.HWND
}

// Start cancels the popup's current active session (if any), allocates a
// new one, and begins streaming. Chunks are delivered to sink until the
// stream's terminal signal; on a clean terminal the post-action is applied
// (not on error or cancellation), then the terminal chunk is delivered and
// the session is removed from the table.
func (r *Registry) Start(ctx context.Context, p StartParams, sink func(Chunk)) *Session {
	r.mu.Lock()
	if prev, ok := r.sessions[r.activeID]; ok {
		prev.Cancel()
	}
	id := r.nextID.Add(1)
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:         id,
		CorrID:     uuid.NewString(),
		Model:      p.Model,
		PostAction: p.PostAction,
		Origin:     p.Origin,
		StartedAt:  time.Now(),
		cancel:     cancel,
	}
	r.sessions[id] = sess
	r.activeID = id
	r.mu.Unlock()

	stream := r.client.Stream(sessCtx, aiclient.Request{
		BaseURL:        p.Model.BaseURL,
		APIKey:         p.Model.APIKey,
		ModelName:      p.Model.ModelName,
		Messages:       p.Messages,
		SupportsVision: p.Model.SupportsVision,
		Screenshots:    p.Screenshots,
	})

	r.eg.Go(func() error {
		for text := range stream.Events() {
			sess.AppendText(text)
			sink(Chunk{SessionID: id, Text: text})
		}
		err := stream.Err()
		if err == nil {
			sess.ApplyPostActionOnce()
		}
		sink(Chunk{SessionID: id, Done: true, Err: err})

		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil
	})

	return sess
}

// Shutdown cancels every in-flight session and waits for their chunk-
// delivery goroutines to exit, or ctx to expire, whichever comes first.
// Every delivered goroutine returns nil, so the only error Shutdown can
// return is ctx's.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.CancelAll()

	done := make(chan error, 1)
	go func() { done <- r.eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelActive cancels whichever session is currently active, if any.
func (r *Registry) CancelActive() {
	r.mu.Lock()
	sess, ok := r.sessions[r.activeID]
	r.mu.Unlock()
	if ok {
		sess.Cancel()
	}
}

// Active returns the currently active session, if any.
func (r *Registry) Active() (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[r.activeID]
	return sess, ok
}

// CancelAll cancels every in-flight session, used on process shutdown
// (§5: "process shutdown cancels all sessions with Cancelled").
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.sessions {
		sess.Cancel()
	}
}
