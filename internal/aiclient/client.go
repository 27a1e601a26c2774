// ABOUTME: Streaming chat-completions client against any OpenAI-compatible
// ABOUTME: endpoint; single-shot (no retry), explicit HTTP/2, SSE decoding

package aiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/askanywhere/assistant-core/internal/aiclient/sse"
	"github.com/askanywhere/assistant-core/internal/apperror"
	"github.com/askanywhere/assistant-core/internal/log"
)

const (
	connectTimeout = 10 * time.Second
	readIdleTimeout = 60 * time.Second
	chatCompletionPath = "/chat/completions"
	sinkBufferSize = 16
)

// Client performs streaming chat-completion requests against one
// OpenAI-compatible endpoint. Unlike a general-purpose HTTP client, it does
// not retry: a streaming response may already have emitted partial content
// to the UI by the time a failure is observed, so retrying would duplicate
// or corrupt what the user sees.
type Client struct {
	http *http.Client
}

// New constructs a Client with an explicit HTTP/2 transport and the
// connect timeout from §5. The per-read idle timeout is enforced in Stream
// via a deadline reset on every chunk, since the overall wall clock for a
// streaming response is unbounded.
func New() *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: connectTimeout,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Warn("aiclient: failed to configure http2 transport: %v", err)
	}

	return &Client{http: &http.Client{Transport: transport}}
}

// Request describes one streaming chat-completion call.
type Request struct {
	BaseURL        string
	APIKey         string
	ModelName      string
	Messages       []Message
	SupportsVision bool
	Screenshots    []string // data URIs; only used when SupportsVision
}

// Stream issues the request and returns an EventStream of content deltas.
// The correlation id is logged with every line the request produces so
// concurrent sessions can be told apart in logs.
func (c *Client) Stream(ctx context.Context, req Request) *EventStream {
	stream := NewEventStream(sinkBufferSize)
	corrID := uuid.NewString()
	logger := log.WithCorrelation(log.For("aiclient"), corrID)

	go func() {
		if err := c.doStream(ctx, req, stream, logger); err != nil {
			stream.Finish(err)
			return
		}
	}()

	return stream
}

func (c *Client) doStream(ctx context.Context, req Request, stream *EventStream, logger *slog.Logger) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := buildBody(req)
	if err != nil {
		return apperror.New(apperror.KindDecode, "aiclient.Stream", "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.BaseURL+chatCompletionPath, bytes.NewReader(body))
	if err != nil {
		return apperror.Network("aiclient.Stream", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	logger.Debug("posting chat completion request", "url", req.BaseURL+chatCompletionPath, "model", req.ModelName, "vision", req.SupportsVision)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return apperror.Cancelled("aiclient.Stream")
		}
		return apperror.Network("aiclient.Stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperror.HTTPStatus("aiclient.Stream", resp.StatusCode, string(errBody))
	}

	watchdog := time.AfterFunc(readIdleTimeout, cancel)
	defer watchdog.Stop()
	watchdogBody := &idleTimeoutReader{reader: resp.Body, watchdog: watchdog, timeout: readIdleTimeout}

	if err := processSSE(sse.NewReader(watchdogBody), stream); err != nil {
		if parent.Err() != nil {
			return apperror.Cancelled("aiclient.Stream")
		}
		return err
	}
	return nil
}

// idleTimeoutReader resets a watchdog timer on every successful read; if no
// read completes within timeout, the timer fires and cancels the request's
// context, aborting the underlying connection. This bounds the per-chunk
// silence (§5's 60s read-idle timeout) while leaving the overall stream
// duration unbounded.
type idleTimeoutReader struct {
	reader   io.Reader
	watchdog *time.Timer
	timeout  time.Duration
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.watchdog.Reset(r.timeout)
	return n, err
}

// processSSE drains reader, forwarding each non-empty content delta to
// stream until [DONE], EOF, or a read error.
func processSSE(reader *sse.Reader, stream *EventStream) error {
	for {
		event, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				stream.Finish(nil)
				return nil
			}
			return apperror.Decode("aiclient.processSSE", err)
		}
		if event.Data == "[DONE]" {
			stream.Finish(nil)
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !stream.Send(choice.Delta.Content) {
				return apperror.Cancelled("aiclient.processSSE")
			}
		}
	}
}

func buildBody(req Request) ([]byte, error) {
	msgs := req.Messages
	if req.SupportsVision && len(req.Screenshots) > 0 && len(msgs) > 0 {
		msgs = append([]Message(nil), msgs...)
		last := &msgs[len(msgs)-1]
		parts := []ContentPart{TextPart(fmt.Sprint(last.Content))}
		for _, shot := range req.Screenshots {
			parts = append(parts, ImagePart(shot))
		}
		last.Content = parts
	}

	return json.Marshal(chatRequest{Model: req.ModelName, Messages: msgs, Stream: true})
}
