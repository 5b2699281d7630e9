package ors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"geosort-service/internal/metrics"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// transient reports whether a retry may succeed.
func (e *httpStatusError) transient() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// transientTransport reports whether a transport failure may succeed on retry:
// timeouts, resets, refused connections and connections closed mid-response.
// Bad URLs, TLS and DNS failures are permanent.
func transientTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// StatusCode extracts the HTTP status of a failed ORS call, or 0 when the
// failure happened before a response arrived.
func StatusCode(err error) int {
	var he *httpStatusError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(endpoint string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.session.Do(req)
	if err != nil {
		metrics.ObserveORS(endpoint, 0, time.Since(start))
		return nil, err
	}
	metrics.ObserveORS(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (see transientTransport, 408/429/5xx responses)
// using exponential backoff while respecting context cancellation. Every attempt
// takes a token from limiter first.
func (c *Client) doWithRetry(
	ctx context.Context,
	endpoint string,
	limiter *rate.Limiter,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s: rate limit", endpoint)
		}

		req, err := makeReq()
		if err != nil {
			return nil, eris.Wrap(err, "make request")
		}

		resp, err := c.do(endpoint, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			retry = he.transient()
		}

		if !retry && ctx.Err() == nil {
			retry = transientTransport(err)
		}

		if !retry || attempt == c.maxAttempts {
			return nil, lastErr
		}

		zap.L().Warn("retrying ORS request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
