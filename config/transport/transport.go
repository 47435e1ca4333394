// Package transport implements the single-server-pick send call (C2): it
// rewrites the request onto a pool-selected server, classifies the
// outcome for health accounting, and retries transient failures with
// exponential backoff.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ccccccmd/nacos-config-sdk/config/pool"
	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

// Request is the capability-level request shape the transport builds and
// hands to the injected Sender. It deliberately avoids *http.Request so
// the underlying HTTP implementation stays an external collaborator.
type Request struct {
	Method  string
	Path    string // relative to {server}/{contextPath}
	Query   url.Values
	Form    url.Values
	Headers map[string]string
}

// Response is the capability-level response shape returned by Sender.
type Response struct {
	StatusCode int
	Body       []byte
}

// Sender is the HTTP-client capability this package depends on. It must
// honor ctx cancellation and return promptly when ctx is done.
type Sender interface {
	Send(ctx context.Context, method, rawURL string, headers map[string]string, form url.Values) (*Response, error)
}

// Transport sends requests through a server pool with health accounting
// and retry.
type Transport struct {
	pool         *pool.Pool
	sender       Sender
	contextPath  string
	maxRetry     int
	retryDelayMs int
	logger       *zap.SugaredLogger
}

// New builds a Transport. contextPath is the URL segment between host and
// API (e.g. "nacos").
func New(p *pool.Pool, sender Sender, contextPath string, maxRetry, retryDelayMs int, logger *zap.SugaredLogger) *Transport {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Transport{
		pool:         p,
		sender:       sender,
		contextPath:  contextPath,
		maxRetry:     maxRetry,
		retryDelayMs: retryDelayMs,
		logger:       logger,
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 500, 502, 503, 429:
		return true
	default:
		return false
	}
}

// Send picks a server, issues the request, classifies the outcome for
// health accounting, and retries retryable outcomes with exponential
// backoff retryDelayMs*2^(attempt-1) up to maxRetry attempts.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(t.retryDelayMs) * time.Millisecond
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(t.maxRetry)), ctx)

	var resp *Response
	var lastAddr string

	op := func() error {
		addr := t.pool.Select()
		lastAddr = addr

		fullURL := addr + "/" + t.contextPath + req.Path
		if len(req.Query) > 0 {
			fullURL += "?" + req.Query.Encode()
		}

		r, err := t.sender.Send(ctx, req.Method, fullURL, req.Headers, req.Form)
		if err != nil {
			if isCanceled(err) {
				return backoff.Permanent(err)
			}
			t.pool.MarkFailed(addr)
			t.logger.Warnw("transport send failed", "server", addr, "err", err)
			return err
		}

		if isRetryableStatus(r.StatusCode) {
			t.pool.MarkFailed(addr)
			resp = r
			return fmt.Errorf("retryable status %d from %s", r.StatusCode, addr)
		}

		t.pool.MarkHealthy(addr)
		resp = r
		return nil
	}

	err := backoff.Retry(op, bo)
	if err == nil {
		return resp, nil
	}
	if isCanceled(err) {
		return nil, ferr.ErrCanceled
	}
	if resp != nil {
		// Retries exhausted on a retryable status: return the response
		// as-is per the classification rule, not as an error.
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %v (last server %s)", ferr.ErrTransportError, err, lastAddr)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
