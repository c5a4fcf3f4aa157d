// Package search is the client for the content search service. It is the
// authoritative lookup behind the content cache.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"object-denormalizer/internal/circuitbreaker"
	"object-denormalizer/internal/common/errors"
	"object-denormalizer/internal/common/logging"
	"object-denormalizer/internal/content"
)

const maxErrorBody = 512

// ClientConfig holds search client configuration
type ClientConfig struct {
	Endpoint            string
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
	Breaker             circuitbreaker.Config
}

// DefaultClientConfig returns default client configuration for endpoint
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:            endpoint,
		Timeout:             5 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		Breaker:             circuitbreaker.SearchConfig,
	}
}

// ClientOption modifies ClientConfig
type ClientOption func(*ClientConfig)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

func WithBreaker(config circuitbreaker.Config) ClientOption {
	return func(c *ClientConfig) {
		c.Breaker = config
	}
}

// Client fetches content records by identifier
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     logging.Logger
}

// NewClient creates a search client. Not-found answers do not count against the breaker.
func NewClient(endpoint string, logger logging.Logger, opts ...ClientOption) (*Client, error) {
	cfg := DefaultClientConfig(endpoint)
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Endpoint == "" {
		return nil, errors.ConfigError("search service endpoint is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Field{Key: "component", Value: "search_client"})

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	breakerConfig := cfg.Breaker
	breakerConfig.IsExpected = IsNotFound

	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		breaker: circuitbreaker.New("search-service", breakerConfig, logger),
		logger:  logger,
	}, nil
}

type searchRequest struct {
	Request struct {
		Filters struct {
			Identifier []string `json:"identifier"`
		} `json:"filters"`
	} `json:"request"`
}

type searchResponse struct {
	ID     string `json:"id"`
	Params struct {
		Status string `json:"status"`
		ErrMsg string `json:"errmsg"`
	} `json:"params"`
	Result struct {
		Count   int                `json:"count"`
		Content []*content.Content `json:"content"`
	} `json:"result"`
}

// Fetch returns the content record for id. Every failure is a lookup-kind
// AppError; not-found answers carry code "404".
func (c *Client) Fetch(ctx context.Context, id string) (*content.Content, error) {
	var result *content.Content

	err := c.breaker.Execute(ctx, func() error {
		var err error
		result, err = c.search(ctx, id)
		return err
	})
	if err != nil {
		if !errors.IsType(err, errors.ErrTypeLookup) {
			err = errors.LookupError(id, "search service unavailable", err)
		}
		return nil, err
	}

	return result, nil
}

func (c *Client) search(ctx context.Context, id string) (*content.Content, error) {
	var body searchRequest
	body.Request.Filters.Identifier = []string{id}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.LookupError(id, "failed to encode search request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.LookupError(id, "failed to build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.LookupError(id, "search request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Search service responded",
		logging.Field{Key: "object_id", Value: id},
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "duration", Value: time.Since(start)},
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.LookupError(id, fmt.Sprintf("search service returned status %d", resp.StatusCode), nil).
			WithCode(strconv.Itoa(resp.StatusCode)).
			WithContext("body", string(snippet))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.LookupError(id, "failed to decode search response", err)
	}

	if parsed.Params.Status != "" && parsed.Params.Status != "successful" {
		return nil, errors.LookupError(id, fmt.Sprintf("search status %s: %s", parsed.Params.Status, parsed.Params.ErrMsg), nil)
	}

	if parsed.Result.Count == 0 || len(parsed.Result.Content) == 0 || parsed.Result.Content[0] == nil {
		return nil, errors.LookupError(id, "content not found", nil).WithCode("404")
	}

	return parsed.Result.Content[0], nil
}

// Stats exposes the circuit breaker state for health reporting
func (c *Client) Stats() circuitbreaker.Stats {
	return c.breaker.Stats()
}

// IsNotFound reports a lookup that reached the service but matched nothing
func IsNotFound(err error) bool {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return false
	}
	return appErr.Type == errors.ErrTypeLookup && appErr.Code == "404"
}
