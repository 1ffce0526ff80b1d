package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Request is the JSON body POSTed to the endpoint.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the JSON body returned by the endpoint.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors Errors          `json:"errors,omitempty"`
}

// Client executes registered operations against one endpoint.
type Client struct {
	endpoint string
	header   http.Header
	http     *http.Client
	log      logrus.FieldLogger
}

type clientOptions struct {
	httpClient *http.Client
	header     http.Header
	retryMax   int
	timeout    time.Duration
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient replaces the retrying, instrumented transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithHeader sets a header on every request. Empty values are ignored.
func WithHeader(key, value string) Option {
	return func(o *clientOptions) {
		if value != "" {
			o.header.Set(key, value)
		}
	}
}

// WithBearerToken sets the Authorization header.
func WithBearerToken(token string) Option {
	return func(o *clientOptions) {
		if token != "" {
			o.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAdminSecret sets Hasura's admin secret header.
func WithAdminSecret(secret string) Option { return WithHeader("X-Hasura-Admin-Secret", secret) }

// WithRole sets Hasura's role header.
func WithRole(role string) Option { return WithHeader("X-Hasura-Role", role) }

// WithRetryMax sets how many times a failed request is retried. Zero disables retries.
func WithRetryMax(n int) Option {
	return func(o *clientOptions) { o.retryMax = n }
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogger sets the logger for transport and operation logs.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *clientOptions) { o.log = l }
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("graphql: endpoint is required")
	}
	o := clientOptions{
		header:  http.Header{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(o)
	}
	return &Client{
		endpoint: endpoint,
		header:   o.header,
		http:     o.httpClient,
		log:      o.log,
	}, nil
}

func newHTTPClient(o clientOptions) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = o.retryMax
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = o.timeout
	retryClient.Logger = leveledLogger{o.log}
	// hand non-2xx responses back instead of a generic "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	stdClient := retryClient.StandardClient()
	stdClient.Transport = otelhttp.NewTransport(
		stdClient.Transport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "graphql " + r.Header.Get("X-Operation-Name")
		}),
	)
	return stdClient
}

// Execute runs op with vars and decodes the response data into out.
// out may be nil when the caller does not need the data.
func (c *Client) Execute(ctx context.Context, op Operation, vars map[string]any, out any) error {
	body, err := json.Marshal(Request{
		Query:         op.Document,
		OperationName: op.Name,
		Variables:     vars,
	})
	if err != nil {
		return fmt.Errorf("graphql: marshal %s: %w", op.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graphql: new request: %w", err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Operation-Name", op.Name)

	log := c.log.WithField("op", op.Name)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return fmt.Errorf("%w: %s: %w", ErrTransport, op.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrTransport, op.Name, err)
	}
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var gr Response
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, op.Name, err)
	}
	if len(gr.Errors) > 0 {
		return gr.Errors
	}
	if out == nil {
		return nil
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return fmt.Errorf("%w: %s: empty data", ErrDecode, op.Name)
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("%w: %s data: %w", ErrDecode, op.Name, err)
	}
	return nil
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log logrus.FieldLogger
}

func (l leveledLogger) entry(kv []any) logrus.FieldLogger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.log.WithFields(fields)
}

func (l leveledLogger) Error(msg string, kv ...any) { l.entry(kv).Error(msg) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.entry(kv).Info(msg) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.entry(kv).Debug(msg) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.entry(kv).Warn(msg) }
