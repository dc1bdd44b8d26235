package tracelib

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type httpClient struct {
	userAgent      string
	client         *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *circuitBreaker
}

func (h httpClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", h.userAgent)

	return h.circuitBreaker.Do(req.Context(), func(ctx context.Context) (*http.Response, error) {
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCircuitBreakerIgnore, err)
		}

		resp, err := h.client.Do(req.WithContext(ctx))
		if err != nil {
			if resp != nil {
				flushResponse(resp)
			}

			return nil, err
		}

		if resp.StatusCode >= http.StatusBadRequest {
			flushResponse(resp)

			return nil, fmt.Errorf("netloc has responded with %s", resp.Status)
		}

		return resp, nil
	})
}

func flushResponse(resp *http.Response) {
	io.Copy(ioutil.Discard, resp.Body) // nolint: errcheck
	resp.Body.Close()
}

// NewHTTPClient prepares a new HTTP client for geolocation providers,
// wraps it with rate limiter, circuit breaker, sets a user agent etc.
// A timeout of the given client limits each lookup, so please do not
// pass a client without it.
//
// Please see https://pkg.go.dev/golang.org/x/time/rate to get a meaning
// of rate limiter parameters.
//
// A meaning of circuit breaker parameters:
//
// circuitBreakerOpenThreshold - this is a threshold of failures when
// circuit breaker becomes OPEN. After this amount of failures all
// lookups fail fast and a route is going to have less hops.
//
// circuitBreakerResetFailuresTimeout - each time period when circuit
// breaker is closed, we reset a failure counter.
//
// circuitBreakerHalfOpenTimeout - when circuit breaker is open, it
// goes into HALF_OPEN state after this time period. Within this state
// we allow 1 attempt. If this attempt fails, then it goes into OPEN
// state again. If succeed - goes to CLOSED.
func NewHTTPClient(client *http.Client,
	userAgent string,
	rateLimiterInterval time.Duration,
	rateLimitBurst int,
	circuitBreakerOpenThreshold uint32,
	circuitBreakerHalfOpenTimeout, circuitBreakerResetFailuresTimeout time.Duration) HTTPClient {
	return httpClient{
		userAgent:   userAgent,
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimiterInterval), rateLimitBurst),
		circuitBreaker: newCircuitBreaker(circuitBreakerOpenThreshold,
			circuitBreakerHalfOpenTimeout,
			circuitBreakerResetFailuresTimeout),
	}
}
