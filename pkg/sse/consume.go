package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultReadSize     = 32 * 1024
	maxErrorBodyBytes   = 1 << 20
	defaultStartFailure = "Failed to start stream"
)

// Handlers receives the outcome of one stream. Nil fields are skipped.
type Handlers struct {
	OnDelta func(text string)
	OnDone  func()
	OnError func(err error)
}

func (h Handlers) done() {
	if h.OnDone != nil {
		h.OnDone()
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

type options struct {
	extract  DeltaExtractor
	readSize int
}

type Option func(*options)

// WithExtractor replaces ChatCompletionDelta.
func WithExtractor(fn DeltaExtractor) Option {
	return func(o *options) {
		if fn != nil {
			o.extract = fn
		}
	}
}

// WithReadSize sets the size of the read buffer handed to the transport.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{extract: ChatCompletionDelta, readSize: defaultReadSize}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Consume reads body until the sentinel, EOF or a transport error and
// reports through h. OnDone is called exactly once unless ctx is cancelled
// while the stream is still being read, in which case Consume returns
// without further callbacks. After the sentinel the remaining bytes are
// drained and discarded; body is never closed here.
func Consume(ctx context.Context, body io.Reader, h Handlers, opts ...Option) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := buildOptions(opts)
	r := NewReassembler(h.OnDelta, o.extract)
	buf := make([]byte, o.readSize)

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := body.Read(buf)
		if n > 0 {
			r.Feed(buf[:n])
			if r.Finished() {
				h.done()
				drain(ctx, body, buf)
				return
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			r.Flush()
			h.done()
			return
		}
		if ctx.Err() != nil {
			return
		}
		h.fail(err)
		h.done()
		return
	}
}

func drain(ctx context.Context, body io.Reader, buf []byte) {
	for ctx.Err() == nil {
		if _, err := body.Read(buf); err != nil {
			return
		}
	}
}

// StatusError is reported when the stream could not be started.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// ConsumeResponse checks the response status before consuming its body.
// A non-2xx status is reported via OnError (using the {"error": "..."}
// envelope when present) followed by OnDone. The body is always closed.
func ConsumeResponse(ctx context.Context, resp *http.Response, h Handlers, opts ...Option) {
	if resp == nil {
		h.fail(&StatusError{Message: defaultStartFailure})
		h.done()
		return
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.Body == nil {
		h.fail(ResponseError(resp))
		h.done()
		return
	}
	Consume(ctx, resp.Body, h, opts...)
}

// ResponseError builds a StatusError from a failed response. It reads at
// most 1MiB of the body.
func ResponseError(resp *http.Response) *StatusError {
	out := &StatusError{StatusCode: resp.StatusCode, Message: defaultStartFailure}
	if resp.Body == nil {
		return out
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		out.Message = strings.TrimSpace(envelope.Error)
	}
	return out
}
