// Package completion is the streaming chat completion client. One Call
// issues one request and transparently decodes the answer either as a single
// JSON document or as an event stream, normalizing every payload dialect into
// llm.Chunk values and aggregating them into one llm.Result.
//
// Delivery is push (callback mode, selected by Callbacks.OnChunk) or pull
// (promise mode, the returned result). Cancelling the context is silent in
// both modes.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/openai"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/sse"
	"github.com/papercomputeco/folio/pkg/transport"
)

const (
	// DefaultPath is appended to the base URL when Config.Path is empty.
	DefaultPath = "/chat/completions"

	tracerName = "github.com/papercomputeco/folio/pkg/completion"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://api.example.com/v1".
	BaseURL string

	// Path is the chat completions route under BaseURL.
	Path string

	// Doer sends requests. Defaults to a transport.Transport.
	Doer transport.Doer

	Logger *slog.Logger
}

// Client calls one chat completion endpoint. It holds no per-call state and
// is safe for concurrent use.
type Client struct {
	endpoint string
	doer     transport.Doer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a Client.
func New(c Config) (*Client, error) {
	if c.BaseURL == "" {
		return nil, errors.New("completion: base url is required")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("completion: parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("completion: base url %q must be absolute", c.BaseURL)
	}

	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	doer := c.Doer
	if doer == nil {
		doer = transport.New(transport.Config{})
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		endpoint: strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		doer:     doer,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Endpoint returns the full URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call runs one completion.
//
// In callback mode (opts.Callbacks.OnChunk set) chunks are pushed as they are
// parsed, the result is pushed to OnDone and Call returns nil, nil. Failures
// go to OnError, or are dropped when OnError is nil.
//
// In promise mode no callback is invoked and Call returns the result or the
// error.
//
// A cancelled ctx yields nil, nil with no callback in either mode.
func (c *Client) Call(ctx context.Context, req *llm.CompletionRequest, opts *Options) (*llm.Result, error) {
	d := newDelivery(opts)
	if req == nil {
		return d.fail(errors.New("completion: nil request"))
	}

	ctx, span := c.tracer.Start(ctx, "completion.Call", trace.WithAttributes(
		attribute.String("completion.mode", d.mode()),
		attribute.String("completion.model", req.Model),
	))
	defer span.End()

	log := c.logger.With("mode", d.mode(), "model", req.Model)
	log.Debug("completion request", "endpoint", c.endpoint)

	result, err := c.call(ctx, req, opts.streaming(), d, log)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("completion.finish_reason", string(result.FinishReason)))
		log.Debug("completion finished",
			"finish_reason", result.FinishReason,
			"id", result.ID,
			"result_len", len(result.Result),
		)
		return d.done(result)

	case isAbort(ctx, err):
		log.Debug("completion aborted")
		return nil, nil

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("completion failed", "error", err)
		return d.fail(err)
	}
}

// Complete runs a promise-mode call.
func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.Result, error) {
	return c.Call(ctx, req, nil)
}

// Stream runs a callback-mode call. A nil OnChunk is replaced by a no-op so
// the call still streams.
func (c *Client) Stream(ctx context.Context, req *llm.CompletionRequest, cb Callbacks) {
	if cb.OnChunk == nil {
		cb.OnChunk = func(llm.Chunk) {}
	}
	_, _ = c.Call(ctx, req, &Options{Callbacks: &cb})
}

func (c *Client) call(ctx context.Context, req *llm.CompletionRequest, streaming bool, d delivery, log *slog.Logger) (*llm.Result, error) {
	body, err := json.Marshal(openai.NewChatCompletionRequest(req, streaming || req.Stream))
	if err != nil {
		return nil, fmt.Errorf("completion: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("completion: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", sse.ContentType)
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: errorDetails(raw)}
	}

	contentType := resp.Header.Get("Content-Type")
	if streaming || isEventStream(contentType) {
		log.Debug("decoding event stream", "content_type", contentType)
		return readStream(resp.Body, d, log)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return decodeDocument(raw)
}

// readStream runs the frame loop until a finalize signal or end of stream.
// Returning closes the body; pending bytes are never read.
func readStream(body io.Reader, d delivery, log *slog.Logger) (*llm.Result, error) {
	var agg aggregator
	dec := sse.NewDecoder(body)

	for {
		frame, err := dec.Next()
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if frame == nil {
			return agg.snapshot(), nil
		}

		p, err := classify(frame)
		if err != nil {
			log.Warn("skipping unparsable frame", "error", err)
			continue
		}

		var chunk llm.Chunk
		switch p := p.(type) {
		case donePayload:
			return agg.snapshot(), nil
		case doneEventPayload:
			return agg.finalizeWith(p.values), nil
		case completionPayload:
			return &p.result, nil
		case chunkPayload:
			chunk = p.chunk
		case unrecognizedPayload:
		}

		finished := agg.add(chunk)
		d.chunk(chunk)
		if finished {
			return agg.snapshot(), nil
		}
	}
}

// decodeDocument reads a non-streamed body: a full chat.completion, or a
// flat result document as a fallback.
func decodeDocument(raw []byte) (*llm.Result, error) {
	object, err := openai.ObjectOf(raw)
	if err != nil {
		return nil, &ParseError{Data: string(raw), Err: err}
	}

	if object == openai.ObjectChatCompletion {
		var c openai.ChatCompletion
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &ParseError{Data: string(raw), Err: err}
		}
		result := normalizeCompletion(&c)
		return &result, nil
	}

	// Valid JSON that is not an object, or carries mistyped fields, falls
	// back to the defaults.
	var fields resultFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		if !json.Valid(raw) {
			return nil, &ParseError{Data: string(raw), Err: err}
		}
		fields = resultFields{}
	}

	result := &llm.Result{FinishReason: llm.FinishReasonStop}
	if fields.Result != nil {
		result.Result = *fields.Result
	}
	if s := nonEmpty(fields.FinishReason); s != nil {
		result.FinishReason = llm.FinishReason(*s)
	}
	if fields.ID != nil {
		result.ID = *fields.ID
	}
	return result, nil
}

func isEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), sse.ContentType)
}
