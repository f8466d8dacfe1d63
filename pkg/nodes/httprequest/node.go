// Package httprequest provides the HTTP request node.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
)

// maxResponseBytes caps how much of a response body is kept in the node output.
const maxResponseBytes = 4 << 20

// HTTPRequestNode calls an arbitrary HTTP endpoint.
type HTTPRequestNode struct {
	id     string
	config HTTPRequestConfig
	client *http.Client
}

// HTTPRequestConfig defines the configuration for HTTP request nodes.
type HTTPRequestConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"-"`
	Timeout int               `json:"timeout"`
	Retries RetryConfig       `json:"retries"`
	// Extract maps output keys to JSONPath expressions evaluated on a JSON response.
	Extract map[string]string `json:"extract"`
}

// RetryConfig defines retry behavior for HTTP requests. Attempts counts the
// first request; Delay is in milliseconds and doubles after every failed attempt.
type RetryConfig struct {
	Attempts int `json:"attempts"`
	Delay    int `json:"delay"`
}

// NewHTTPRequestNode creates a new HTTP request node.
func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	httpConfig, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	return &HTTPRequestNode{
		id:     id,
		config: httpConfig,
		client: &http.Client{Timeout: time.Duration(httpConfig.Timeout) * time.Second},
	}, nil
}

func parseConfig(config map[string]any) (HTTPRequestConfig, error) {
	parsed := HTTPRequestConfig{
		Method:  http.MethodGet,
		Timeout: 30,
		Retries: RetryConfig{Attempts: 1},
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return parsed, fmt.Errorf("invalid config: %w", err)
	}

	if err := json.Unmarshal(raw, &parsed); err != nil {
		return parsed, fmt.Errorf("invalid config: %w", err)
	}

	if parsed.URL == "" {
		return parsed, errors.New("missing required field 'url'")
	}

	parsed.Method = strings.ToUpper(parsed.Method)
	parsed.Retries.Attempts = max(parsed.Retries.Attempts, 1)

	if parsed.Headers == nil {
		parsed.Headers = map[string]string{}
	}

	switch body := config["body"].(type) {
	case string:
		parsed.Body = body
	case map[string]any, []any:
		data, err := json.Marshal(body)
		if err != nil {
			return parsed, fmt.Errorf("invalid body: %w", err)
		}

		parsed.Body = string(data)
	}

	return parsed, nil
}

func (n *HTTPRequestNode) ID() string {
	return n.id
}

func (n *HTTPRequestNode) Type() string {
	return models.NodeTypeHTTPRequest
}

// Execute performs the request, retrying server and network errors.
func (n *HTTPRequestNode) Execute(ctx context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	url, err := n.render(n.config.URL, &execCtx)
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to render URL template: %v", err)), nil
	}

	body, err := n.render(n.config.Body, &execCtx)
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to render body template: %v", err)), nil
	}

	headers := make(map[string]string, len(n.config.Headers))

	for key, value := range n.config.Headers {
		rendered, err := n.render(value, &execCtx)
		if err != nil {
			rendered = value
		}

		headers[key] = rendered
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(n.config.Retries.Delay) * time.Millisecond
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	retries := backoff.WithMaxRetries(policy, uint64(n.config.Retries.Attempts-1))

	output, err := backoff.RetryWithData(func() (map[string]any, error) {
		output, err := n.performRequest(ctx, url, body, headers)

		// client errors are final
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}

		return output, err
	}, backoff.WithContext(retries, ctx))
	if err != nil {
		return models.Failed(fmt.Sprintf("HTTP request failed: %v", err)), nil
	}

	return models.Succeeded(output), nil
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (n *HTTPRequestNode) render(value string, execCtx *models.ExecutionContext) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	rendered, err := template.RenderWithContext(value, execCtx)
	if err != nil {
		return "", err
	}

	if s, ok := rendered.(string); ok {
		return s, nil
	}

	data, err := json.Marshal(rendered)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (n *HTTPRequestNode) performRequest(ctx context.Context, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	responseHeaders := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		responseHeaders[key] = resp.Header.Get(key)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     responseHeaders,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
		n.extract(result, jsonBody)
	}

	return result, nil
}

// extract copies JSONPath matches into the output. Paths that do not match
// yield nil.
func (n *HTTPRequestNode) extract(result map[string]any, jsonBody any) {
	if len(n.config.Extract) == 0 {
		return
	}

	root := map[string]any{"body": jsonBody}
	if object, ok := jsonBody.(map[string]any); ok {
		root = object
	}

	for key, path := range n.config.Extract {
		value, err := template.Lookup(root, path)
		if err != nil {
			value = nil
		}

		result[key] = value
	}
}
