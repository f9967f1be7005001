// Package backend talks to the external recommendation and auth service.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/pkg/metrics"
	"github.com/samirrijal/touristroute/internal/pkg/telemetry"
)

const (
	recommendationsPath = "/api/recommendations/"
	loginPath           = "/api/login/"
	registerPath        = "/api/register/"
)

// Client implements ports.RecommendationClient and ports.AuthClient over fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	order   domain.CoordinateOrder
	http    *fasthttp.Client
	tracer  trace.Tracer
}

// NewClient creates a backend client. order is used when a payload does not
// declare its coordinate order.
func NewClient(baseURL string, timeout time.Duration, order domain.CoordinateOrder) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if order == domain.OrderUnspecified {
		order = domain.OrderLonLat
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		order:   order,
		http: &fasthttp.Client{
			Name:                "touristroute",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        10 * time.Second,
		},
		tracer: telemetry.Tracer("touristroute/backend"),
	}
}

// FetchRecommendations posts the city pair and decodes the answer.
func (c *Client) FetchRecommendations(ctx context.Context, startCity, endCity string) (*domain.RecommendationResponse, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanFetchRecommendations, trace.WithAttributes(
		attribute.String(telemetry.AttrStartCity, startCity),
		attribute.String(telemetry.AttrEndCity, endCity),
	))
	defer span.End()

	started := time.Now()
	status, body, err := c.post(ctx, recommendationsPath, map[string]string{
		"start_city": startCity,
		"end_city":   endCity,
	})
	if err != nil {
		metrics.ObserveBackend("recommendations", "network_error", started)
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, status))

	if status < 200 || status > 299 {
		metrics.ObserveBackend("recommendations", "server_error", started)
		err := &domain.ServerError{Op: "recommendations", StatusCode: status, Message: errorMessage(body)}
		recordSpanError(span, err)
		return nil, err
	}

	resp, err := decodeResponse(body, c.order)
	if err != nil {
		metrics.ObserveBackend("recommendations", "malformed", started)
		recordSpanError(span, err)
		return nil, err
	}
	metrics.ObserveBackend("recommendations", "ok", started)
	span.SetAttributes(attribute.Int(telemetry.AttrPlaceCount, len(resp.Places)))
	return resp, nil
}

// Login forwards credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return c.auth(ctx, "login", loginPath, creds)
}

// Register forwards credentials to the register endpoint.
func (c *Client) Register(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return c.auth(ctx, "register", registerPath, creds)
}

// auth returns an AuthResult for any 2xx or 4xx answer; rejected
// credentials are a result, not an error.
func (c *Client) auth(ctx context.Context, op, path string, creds domain.Credentials) (*domain.AuthResult, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanAuth, trace.WithAttributes(
		attribute.String(telemetry.AttrEndpoint, op),
	))
	defer span.End()

	started := time.Now()
	status, body, err := c.post(ctx, path, creds)
	if err != nil {
		metrics.ObserveBackend(op, "network_error", started)
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, status))

	if status >= 500 || status < 200 {
		metrics.ObserveBackend(op, "server_error", started)
		err := &domain.ServerError{Op: op, StatusCode: status, Message: errorMessage(body)}
		recordSpanError(span, err)
		return nil, err
	}

	var res domain.AuthResult
	if err := json.Unmarshal(body, &res); err != nil || res.Status == "" {
		if status < 300 {
			metrics.ObserveBackend(op, "malformed", started)
			return nil, domain.Malformed("%s: unexpected response body", op)
		}
		res = domain.AuthResult{Status: "error", Message: errorMessage(body)}
	}
	metrics.ObserveBackend(op, "ok", started)
	return &domain.AuthResult{Status: res.Status, Message: res.Message}, nil
}

// post sends body as JSON and returns the status and a copy of the response body.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	op := strings.Trim(path, "/")
	if err := ctx.Err(); err != nil {
		return 0, nil, &domain.NetworkError{Op: op, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.SetBody(payload)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return 0, nil, &domain.NetworkError{Op: op, Err: err}
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
