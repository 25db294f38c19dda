// Package client talks to the TwinTrack API. Responses are normalized into
// canonical records at this boundary, mutations are validated locally
// against the last fetch, and views re-fetch after every change instead of
// trusting local arithmetic.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	session *Session
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(session *Session, opts ...Option) *Client {
	c := &Client{
		session: session,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

// do sends one request and returns the envelope's data. A body without an
// envelope is returned whole.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, string, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.session.endpoint(path, query), reader)
	if err != nil {
		return nil, "", &TransportError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, "", &TransportError{Op: "read " + path, Err: err}
	}
	return unwrapEnvelope(resp.StatusCode, raw)
}

func unwrapEnvelope(status int, raw []byte) (json.RawMessage, string, error) {
	var env struct {
		IsSuccess *bool           `json:"isSuccess"`
		Data      json.RawMessage `json:"data"`
		Message   string          `json:"message"`
	}
	hasEnvelope := json.Unmarshal(raw, &env) == nil && env.IsSuccess != nil

	switch {
	case hasEnvelope && (!*env.IsSuccess || status >= 400):
		return nil, "", &BackendError{Status: status, Message: env.Message}
	case hasEnvelope:
		return env.Data, env.Message, nil
	case status >= 400:
		return nil, "", &BackendError{Status: status, Message: plainMessage(raw)}
	case len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw):
		return nil, "", &TransportError{Op: "decode response", Err: fmt.Errorf("%w: not JSON", ErrMalformedPayload)}
	}
	return raw, "", nil
}

// plainMessage extracts a message from a non-envelope error body.
func plainMessage(raw []byte) string {
	var obj struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if s, ok := obj.Error.(string); ok {
			return s
		}
	}
	text := string(bytes.TrimSpace(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func decodeOne[T any](data json.RawMessage, msg string, err error, normalize func(json.RawMessage) (T, error)) (T, string, error) {
	var zero T
	if err != nil {
		return zero, "", err
	}
	v, err := normalize(data)
	if err != nil {
		return zero, "", &TransportError{Op: "decode response", Err: err}
	}
	return v, msg, nil
}

func decodeMany[T any](data json.RawMessage, err error, normalize func(json.RawMessage) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out, err := normalizeList(data, normalize)
	if err != nil {
		return nil, &TransportError{Op: "decode response", Err: err}
	}
	return out, nil
}
