package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cody-cli/internal/logger"
)

const (
	pathModels          = "/.api/llm/models"
	pathChatCompletions = "/.api/llm/chat/completions"
	pathContext         = "/.api/cody/context"
)

var log = logger.Named("api")

// Options configures a Client. Endpoint and AccessToken are required.
type Options struct {
	Endpoint      string
	AccessToken   string
	RequestedWith string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client issues authenticated JSON requests against the API. Each call is a
// single attempt: retry policy, if any, belongs to the caller. The client
// holds no conversation or session state.
type Client struct {
	endpoint      string
	token         string
	requestedWith string
	http          *http.Client
}

// CallStats describes one completed round trip.
type CallStats struct {
	Status  int
	Latency time.Duration
}

func New(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("missing endpoint")
	}
	token := strings.TrimSpace(opts.AccessToken)
	if token == "" {
		return nil, errors.New("missing access token")
	}
	requestedWith := strings.TrimSpace(opts.RequestedWith)
	if requestedWith == "" {
		requestedWith = "cody-cli"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		endpoint:      endpoint,
		token:         token,
		requestedWith: requestedWith,
		http:          httpClient,
	}, nil
}

// ListModels fetches the model catalog.
func (c *Client) ListModels(ctx context.Context) (ModelList, CallStats, error) {
	var list ModelList
	stats, err := c.do(ctx, http.MethodGet, pathModels, nil, &list)
	return list, stats, err
}

// GetModel fetches a single model descriptor; an unknown id surfaces as the
// remote's APIError.
func (c *Client) GetModel(ctx context.Context, id string) (Model, CallStats, error) {
	var model Model
	stats, err := c.do(ctx, http.MethodGet, pathModels+"/"+url.PathEscape(id), nil, &model)
	return model, stats, err
}

// ChatCompletions submits a conversation and returns the model's reply.
func (c *Client) ChatCompletions(ctx context.Context, req ChatRequest) (*ChatResponse, CallStats, error) {
	var resp ChatResponse
	stats, err := c.do(ctx, http.MethodPost, pathChatCompletions, req, &resp)
	if err != nil {
		return nil, stats, err
	}
	return &resp, stats, nil
}

// SearchContext runs a code-context search across the given repositories.
func (c *Client) SearchContext(ctx context.Context, req ContextRequest) (*ContextResponse, CallStats, error) {
	var resp ContextResponse
	stats, err := c.do(ctx, http.MethodPost, pathContext, req, &resp)
	if err != nil {
		return nil, stats, err
	}
	return &resp, stats, nil
}

// do performs one request/response round trip. The wall-clock latency is
// recorded in stats even when the call fails.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) (CallStats, error) {
	endpoint := c.endpoint + path

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return CallStats{}, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return CallStats{}, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("X-Requested-With", c.requestedWith)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		log.WithField("endpoint", path).WithField("latency_ms", latency.Milliseconds()).Errorf("request failed: %v", err)
		return CallStats{Latency: latency}, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	stats := CallStats{Status: resp.StatusCode, Latency: latency}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stats, &TransportError{Endpoint: endpoint, Err: err}
	}

	log.WithFields(logger.Fields{
		"endpoint":   path,
		"status":     resp.StatusCode,
		"latency_ms": latency.Milliseconds(),
	}).Debug("round trip")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return stats, apiErrorFromBody(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return stats, &DecodeError{Status: resp.StatusCode, Raw: string(raw), Err: err}
	}
	return stats, nil
}

func apiErrorFromBody(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(raw)}
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Type = envelope.Type
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		case envelope.Nested.Message != "":
			apiErr.Message = envelope.Nested.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
