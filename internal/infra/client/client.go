// Package client is the HTTP client for the budgeting REST API.
//
// Every call goes through Client.do, which attaches the bearer token, maps
// statuses to typed domain errors, and routes a 401 on an authenticated
// request to the session manager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/resilience"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// ServiceName labels errors and spans for the budgeting API.
const ServiceName = "mybudget-api"

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

const maxBodyBytes = 1 << 20

var tracer = otel.Tracer("client")

func init() {
	// The API reads amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Client talks to the budgeting API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      port.Credentials
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// New creates a Client. creds supplies the bearer token and receives 401s.
func New(
	httpClient *http.Client,
	baseURL string,
	creds port.Credentials,
	cb *gobreaker.CircuitBreaker,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		cb:         cb,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// BaseURL returns the API root this client calls.
func (c *Client) BaseURL() string { return c.baseURL }

// BreakerState returns the circuit breaker state, for health reporting.
func (c *Client) BreakerState() string { return c.cb.State().String() }

// call describes one API request.
type call struct {
	op     string // span and metric name, e.g. "budgets.get"
	method string
	path   string
	query  url.Values
	body   any
	out    any

	// public endpoints may be called without a session.
	public bool

	// resource and id label a 404.
	resource string
	id       string
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

// do executes cl. Protected calls are refused locally, without any network
// traffic, when there is no session.
func (c *Client) do(ctx context.Context, cl call) (err error) {
	ctx, span := tracer.Start(ctx, "Client."+cl.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("api.path", cl.path),
	)

	start := time.Now()
	defer func() {
		c.observe(cl.op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	token, hasToken := "", false
	if !isAuthPath(cl.path) {
		token, hasToken = c.creds.Token()
		if !hasToken && !cl.public {
			return &domain.ErrUnauthorized{Message: "not signed in"}
		}
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return fmt.Errorf("%s: %w", cl.op, err)
	}
	defer c.bulkhead.Release()

	_, err = c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, cl, token, hasToken)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: ServiceName}
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", cl.op, ctx.Err())
	}

	if hasToken && domain.KindOf(err) == domain.KindUnauthorized {
		c.logger.Warn("api rejected session token", zap.String("op", cl.op))
		c.creds.Revoke(token)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl call, token string, withToken bool) error {
	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", cl.op, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if withToken {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrExternalService{Service: ServiceName, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.ErrExternalService{Service: ServiceName, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ErrorFromStatus(resp.StatusCode, cl.resource, cl.id, detailOf(data))
	}

	if cl.out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, cl.out); err != nil {
			return &domain.ErrServer{Status: resp.StatusCode, Detail: "malformed response: " + err.Error()}
		}
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.metrics.RecordRequestDuration(op, time.Since(start))
	switch {
	case err == nil:
		c.metrics.IncrRequest("success")
	case errors.Is(err, context.Canceled):
		c.metrics.IncrRequest("canceled")
	default:
		c.metrics.IncrRequest("error")
		c.metrics.IncrAPIError(domain.KindOf(err))
	}
}

// detailOf extracts the message of an error body. The API answers
// {"detail": "..."} and, for schema errors, {"detail": [{"msg": "..."}]}.
func detailOf(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(envelope.Detail)
}
