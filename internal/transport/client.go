package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
	logger "github.com/muhasabah-app/profilesync/internal/logging"

	"github.com/hashicorp/go-cleanhttp"
)

// TokenSource supplies the bearer credential for remote calls. The engine
// only consumes tokens; issuing them belongs to the auth collaborator.
type TokenSource func() string

// CallOptions tune a single remote call.
type CallOptions struct {
	// MaxRetries is the number of additional attempts after the first.
	// Negative means "use the client default".
	MaxRetries int

	// BaseDelay is the starting backoff delay, doubled per attempt.
	// Zero means "use the client default".
	BaseDelay time.Duration

	// Priority clears any open circuit for the endpoint before calling.
	// Used by recovery flows that must reach the remote deliberately.
	Priority bool
}

// Response is the outcome of a successful HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// circuitState tracks consecutive failures for one endpoint key. Created
// lazily, cleared on success or after the cool-down elapses.
type circuitState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Config holds the client's retry and breaker parameters.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	MaxRetries       int
	BaseDelay        time.Duration
	FailureThreshold int
	CoolDown         time.Duration
}

// Client wraps remote calls with retry-with-backoff and a per-endpoint
// circuit breaker. Breaker state is per client instance and persists
// across calls; it is keyed by (method, path-without-query).
type Client struct {
	http   *http.Client
	config Config
	token  TokenSource
	log    logger.Logger

	mu       sync.Mutex
	circuits map[string]*circuitState

	// now is swapped out by tests to drive the cool-down window.
	now func() time.Time
}

// NewClient builds a resilient transport client.
func NewClient(config Config, token TokenSource, log logger.Logger) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	if config.RequestTimeout > 0 {
		httpClient.Timeout = config.RequestTimeout
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.CoolDown <= 0 {
		config.CoolDown = 10 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 500 * time.Millisecond
	}

	return &Client{
		http:     httpClient,
		config:   config,
		token:    token,
		log:      log,
		circuits: make(map[string]*circuitState),
		now:      time.Now,
	}
}

// Do performs an HTTP call under the retry and circuit breaker policy.
// The body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, opts CallOptions) (*Response, error) {
	key := circuitKey(method, endpoint)

	if opts.Priority {
		c.clearCircuit(key)
	}

	if until, open := c.circuitOpen(key); open {
		c.log.Debugf("Circuit open for %s until %s, failing fast", key, until.Format(time.RFC3339))
		return nil, fmt.Errorf("%s: %w", key, perrors.ErrCircuitOpen)
	}

	var payload []byte
	if body != nil {
		marshaled, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = marshaled
	}

	maxRetries := c.config.MaxRetries
	if opts.MaxRetries >= 0 {
		maxRetries = opts.MaxRetries
	}
	baseDelay := c.config.BaseDelay
	if opts.BaseDelay > 0 {
		baseDelay = opts.BaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt, baseDelay); err != nil {
				return nil, err
			}
			c.log.Debugf("Retrying %s (attempt %d of %d)", key, attempt+1, maxRetries+1)
		}

		resp, err := c.attempt(ctx, method, endpoint, payload)
		if err == nil {
			c.recordSuccess(key)
			return resp, nil
		}

		lastErr = err
		if !retryable(err) {
			// Remote answered; the breaker only counts remote distress.
			return nil, err
		}
		c.recordFailure(key)
	}

	return nil, fmt.Errorf("%s failed after %d attempts: %w: %w", key, maxRetries+1, perrors.ErrRetriesExhausted, lastErr)
}

// Reset clears all breaker state. Called on logout.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuits = make(map[string]*circuitState)
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte) (*Response, error) {
	var reader *bytes.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, perrors.ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	out, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, endpoint, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Method: method, Endpoint: endpoint, Body: out}
	}

	return &Response{StatusCode: resp.StatusCode, Body: out}, nil
}

func (c *Client) waitBackoff(ctx context.Context, attempt int, baseDelay time.Duration) error {
	delay := baseDelay << (attempt - 1)
	// Jitter spreads concurrent retries so they don't stampede the remote.
	delay += time.Duration(rand.Int63n(int64(baseDelay)/2 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) circuitOpen(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.circuits[key]
	if !ok || state.openUntil.IsZero() {
		return time.Time{}, false
	}
	if c.now().Before(state.openUntil) {
		return state.openUntil, true
	}
	// Cool-down elapsed: clear and allow the next call through.
	delete(c.circuits, key)
	return time.Time{}, false
}

func (c *Client) recordSuccess(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.circuits, key)
}

func (c *Client) recordFailure(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.circuits[key]
	if !ok {
		state = &circuitState{}
		c.circuits[key] = state
	}
	state.consecutiveFailures++
	if state.consecutiveFailures >= c.config.FailureThreshold {
		state.openUntil = c.now().Add(c.config.CoolDown)
		c.log.Warnf("Circuit opened for %s after %d consecutive failures", key, state.consecutiveFailures)
	}
}

func (c *Client) clearCircuit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.circuits, key)
}

// circuitKey identifies an endpoint for breaker purposes: the method plus
// the path with any query stripped.
func circuitKey(method, endpoint string) string {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return method + " " + path
}

// retryable reports whether an error represents remote distress worth
// retrying: network failures, timeouts, 5xx, 408 and 429. Other statuses
// are answers, not failures.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
