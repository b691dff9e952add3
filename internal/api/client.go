// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api talks to an OpenAI-style chat-completions endpoint.
//
// The client sends a single streaming request per user submission and hands
// the response body to the stream decoder. Authentication is a bearer
// credential; a client without one refuses to send anything.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the endpoint used when no override is configured.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the model used when no override is configured.
	DefaultModel = "openrouter/auto"

	// MaxErrorBodySize caps how much of an error response body is read.
	MaxErrorBodySize = 1 * 1024 * 1024
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// sharedStreamingClient is used for streaming requests; no client
	// timeout, the lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common API failures.
var (
	// ErrNoAPIKey indicates the credential is missing; no request is sent.
	ErrNoAPIKey = errors.New("API key not configured")

	// ErrAuthFailed indicates the credential was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError represents a non-2xx response from the endpoint.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// StreamError is a transport failure that interrupted an open stream. The
// content received before the failure is preserved for the caller.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ChatMessage is one message in the request payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// apiErrorResponse is the endpoint's error body shape.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client sends streaming chat-completion requests.
//
// The With* setters are for construction only; Reconfigure is the one safe
// mutation after the client is shared across goroutines.
type Client struct {
	mu         sync.RWMutex
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// New creates a client with the given API key. An empty key still yields a
// usable client, but Stream fails with ErrNoAPIKey before any network I/O.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: sharedStreamingClient,
		// Submissions are human-paced; the limiter only guards against
		// pathological callers hammering a metered endpoint.
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		userAgent: "chatbot/1.0",
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// WithModel sets the model identifier sent with each request.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithHTTPClient replaces the HTTP client. Tests use this to avoid the
// shared pool.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Reconfigure applies a changed credential, base URL and model. Used when
// the config file is rewritten while the program is running; an in-flight
// request keeps the values it started with.
func (c *Client) Reconfigure(apiKey, baseURL, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(apiKey)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	if model != "" {
		c.model = model
	}
}

// IsConfigured reports whether a credential is present.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *Client) setHeaders(req *http.Request) {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// handleErrorResponse maps a non-2xx response to a typed error.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		detail := &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, detail.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, detail.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, detail.Message)
		default:
			return detail
		}
	}

	// Fallback for unparseable error bodies.
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{
			Message: strings.TrimSpace(string(body)),
			Status:  statusCode,
		}
	}
}

// Stream sends one streaming chat-completion request and decodes the
// response. onDelta is invoked once per content increment, in order. The
// full accumulated text is returned; on a mid-stream transport failure the
// error is a *StreamError carrying the partial text.
func (c *Client) Stream(ctx context.Context, messages []ChatMessage, maxTokens int, onDelta DeltaFunc) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	c.mu.RLock()
	model, baseURL := c.model, c.baseURL
	c.mu.RUnlock()

	reqBody := ChatRequest{
		Model:     model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		log.Printf("api: POST /chat/completions -> %d (%s)", resp.StatusCode, time.Since(start).Round(time.Millisecond))
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	dec := NewDecoder(onDelta)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return dec.Text(), &StreamError{Partial: dec.Text(), Err: ctx.Err()}
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
		}
		if err == io.EOF {
			dec.Flush()
			log.Printf("api: POST /chat/completions -> %d (%s, %d chars)", resp.StatusCode, time.Since(start).Round(time.Millisecond), len(dec.Text()))
			return dec.Text(), nil
		}
		if err != nil {
			return dec.Text(), &StreamError{Partial: dec.Text(), Err: err}
		}
		if dec.Done() {
			// Terminal sentinel seen; drain nothing further.
			log.Printf("api: POST /chat/completions -> %d (%s, %d chars)", resp.StatusCode, time.Since(start).Round(time.Millisecond), len(dec.Text()))
			return dec.Text(), nil
		}
	}
}
