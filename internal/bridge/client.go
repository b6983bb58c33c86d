// Package bridge is the capability surface between the UI and the local
// backend: a fixed route table over HTTP, plus a fallback log for client
// log entries that cannot be delivered.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/metrics"
)

// Policy is the bridge's timeout and retry behavior. The zero value means
// no timeout and no retries: a hung backend hangs the caller.
type Policy struct {
	Timeout  time.Duration
	RetryMax int
}

// DefaultPolicy returns the shipped policy.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:  constants.DefaultBridgeTimeout,
		RetryMax: constants.DefaultBridgeRetryMax,
	}
}

// PolicyFromConfig builds the policy from the [bridge] section.
func PolicyFromConfig(cfg *config.ShellConfig) Policy {
	return Policy{
		Timeout:  cfg.BridgeTimeout(),
		RetryMax: cfg.Bridge.RetryMax,
	}
}

// retryLogger implements the retryablehttp.LeveledLogger interface on top of
// the shell logger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Per-request chatter stays at debug
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client performs route-table requests against the backend.
type Client struct {
	baseURL string
	policy  Policy
	logger  *logging.Logger
	metrics *metrics.Metrics

	// idempotent carries the retry policy; single never retries.
	idempotent *retryablehttp.Client
	single     *retryablehttp.Client
}

// NewClient creates a bridge client for baseURL.
func NewClient(baseURL string, policy Policy, logger *logging.Logger, m *metrics.Metrics) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if baseURL == "" {
		baseURL = constants.DefaultBridgeBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBaseURL, baseURL)
	}
	if policy.Timeout < 0 {
		return nil, config.ErrNegativeTimeout
	}
	if policy.RetryMax < 0 {
		policy.RetryMax = 0
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		policy:     policy,
		logger:     logger,
		metrics:    m,
		idempotent: newRetryClient(policy.RetryMax, logger),
		single:     newRetryClient(0, logger),
	}, nil
}

func newRetryClient(retryMax int, logger *logging.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = constants.BridgeRetryWaitMin
	rc.RetryWaitMax = constants.BridgeRetryWaitMax
	rc.Logger = &retryLogger{logger: logger}
	// Keep the final response so the status and body reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Timeouts come from the policy via the request context only.
	rc.HTTPClient.Timeout = 0
	return rc
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Policy returns the active policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// Do performs op with an optional query and JSON payload, returning the raw
// response body on 2xx. Non-2xx yields *RequestFailed; transport errors
// yield *Unreachable.
func (c *Client) Do(ctx context.Context, op Operation, query url.Values, payload interface{}) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	started := time.Now()
	body, err := c.do(ctx, op, query, payload)
	c.metrics.ObserveBridge(op.Name, outcomeOf(err), time.Since(started))
	return body, err
}

func (c *Client) do(ctx context.Context, op Operation, query url.Values, payload interface{}) ([]byte, error) {
	target := c.baseURL + op.Path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody interface{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", op.Name, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, op.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op.Name, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if op.Binary {
		req.Header.Set("Accept", "*/*")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.single
	if op.Idempotent() {
		client = c.idempotent
	}

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug().Str("operation", op.Name).Str("request_id", requestID).Err(err).Msg("Backend unreachable")
		return nil, &Unreachable{Operation: op.Name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Unreachable{Operation: op.Name, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().
			Str("operation", op.Name).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Msg("Backend returned error status")
		return nil, &RequestFailed{Operation: op.Name, Status: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsUnreachable(err):
		return metrics.OutcomeUnreachable
	default:
		return metrics.OutcomeFailed
	}
}
