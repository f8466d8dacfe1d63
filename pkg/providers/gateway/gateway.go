// Package gateway talks to the provider gateway, the service that owns OAuth
// credentials and the per-provider REST clients. It implements both the change
// feed used by the fetcher and the action invoker used by provider nodes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

const (
	changesPath = "/v1/changes"
	actionsPath = "/v1/actions"

	DefaultTimeout = 30 * time.Second
)

var ErrNoBaseURL = errors.New("provider gateway URL is not configured")

// Client calls the provider gateway over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logger.With("module", "provider_gateway"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type changesRequest struct {
	Provider       models.Provider `json:"provider"`
	AccountID      string          `json:"account_id"`
	IntegrationID  string          `json:"integration_id"`
	SubscriptionID string          `json:"subscription_id"`
	Cursor         string          `json:"cursor,omitempty"`
	Since          *time.Time      `json:"since,omitempty"`
	Scope          map[string]any  `json:"scope,omitempty"`
}

type changesResponse struct {
	Changes    []models.RawChange `json:"changes"`
	NextCursor string             `json:"next_cursor"`
}

// FetchChanges reads one page of the incremental change feed.
func (c *Client) FetchChanges(ctx context.Context, subscription *models.WatchSubscription, cursor string, since time.Time) (*changes.ChangeBatch, error) {
	req := changesRequest{
		Provider:       subscription.Provider,
		AccountID:      subscription.AccountID,
		IntegrationID:  subscription.IntegrationID,
		SubscriptionID: subscription.ID,
		Cursor:         cursor,
		Scope:          subscription.ScopeMetadata,
	}

	if cursor == "" && !since.IsZero() {
		s := since.UTC()
		req.Since = &s
	}

	var resp changesResponse
	if err := c.post(ctx, subscription.Provider, "changes.list", changesPath, req, &resp); err != nil {
		return nil, err
	}

	return &changes.ChangeBatch{Changes: resp.Changes, NextCursor: resp.NextCursor}, nil
}

type actionResponse struct {
	Output map[string]any `json:"output"`
}

// Invoke performs a provider operation on behalf of the call's account.
func (c *Client) Invoke(ctx context.Context, call protocol.ActionCall) (map[string]any, error) {
	var resp actionResponse
	if err := c.post(ctx, call.Provider, call.Operation, actionsPath, call, &resp); err != nil {
		return nil, err
	}

	if resp.Output == nil {
		resp.Output = map[string]any{}
	}

	return resp.Output, nil
}

func (c *Client) post(ctx context.Context, provider models.Provider, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &changes.ProviderError{Provider: provider, Op: op, Transient: true, Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &changes.ProviderError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Transient: true, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(ctx, provider, op, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &changes.ProviderError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c *Client) statusError(ctx context.Context, provider models.Provider, op string, status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if len(message) > 512 {
		message = message[:512]
	}

	if status == http.StatusGone {
		return &changes.ProviderError{Provider: provider, Op: op, StatusCode: status, Err: changes.ErrCursorExpired}
	}

	transient := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError

	c.logger.WarnContext(ctx, "Provider gateway returned an error",
		"provider", provider,
		"operation", op,
		"status", status,
		"transient", transient,
	)

	return &changes.ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: status,
		Transient:  transient,
		Err:        fmt.Errorf("gateway responded %d: %s", status, message),
	}
}
