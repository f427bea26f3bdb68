// Package client talks to the archive HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is any non-200 answer from the archive. Message is empty for 405 and 5xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("archive returned %d", e.StatusCode)
	}
	return fmt.Sprintf("archive returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New returns a client for the archive at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PutEvent archives a raw, signed kind 4 event.
func (c *Client) PutEvent(ctx context.Context, event []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/", bytes.NewReader(event))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	return c.do(request, nil)
}

// ListConversation returns the keys of every message from sender to receiver.
func (c *Client) ListConversation(ctx context.Context, sender, receiver string) ([]string, error) {
	params := url.Values{}
	params.Set("sender", sender)
	params.Set("receiver", receiver)

	var keys []string
	if err := c.get(ctx, "/", params, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Counts returns the number of messages sender sent to each receiver. Nil filters are omitted.
func (c *Client) Counts(ctx context.Context, sender string, receiver *string, since *int64) (map[string]int, error) {
	params := url.Values{}
	params.Set("sender", sender)
	if receiver != nil {
		params.Set("receiver", *receiver)
	}
	if since != nil {
		params.Set("since", strconv.FormatInt(*since, 10))
	}

	counts := map[string]int{}
	if err := c.get(ctx, "/counts", params, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(request, out)
}

func (c *Client) do(request *http.Request, out any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s: %w", request.Method, request.URL.Path, err)
	}
	defer func() { _ = response.Body.Close() }()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: response.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
