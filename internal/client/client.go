// Package client is a typed Go client for the ledger HTTP API.
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

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/services/ledger"
)

var ErrInvalidInput = errors.New("invalid input")

// APIError is returned for any non-2xx response that does not map to a
// ledger sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger api: %d %s", e.Status, e.Message)
}

type Client struct {
	base *url.URL
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) List(ctx context.Context) (api.ListResponse, error) {
	var out api.ListResponse

	err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &out)
	if err != nil {
		return api.ListResponse{}, fmt.Errorf("list: %w", err)
	}

	return out, nil
}

func (c *Client) Credit(ctx context.Context, amount float64) (api.OperationResponse, error) {
	return c.operation(ctx, "credit", map[string]float64{"amount": amount})
}

func (c *Client) Debit(ctx context.Context, amount float64) (api.OperationResponse, error) {
	return c.operation(ctx, "debit", map[string]float64{"amount": amount})
}

func (c *Client) Undo(ctx context.Context) (api.OperationResponse, error) {
	return c.operation(ctx, "undo", nil)
}

func (c *Client) Redo(ctx context.Context) (api.OperationResponse, error) {
	return c.operation(ctx, "redo", nil)
}

func (c *Client) operation(ctx context.Context, op string, body any) (api.OperationResponse, error) {
	var out api.OperationResponse

	err := c.do(ctx, http.MethodPost, "/api/transactions/"+op, body, &out)
	if err != nil {
		return api.OperationResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	var e api.ErrorResponse

	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)

	if resp.StatusCode == http.StatusBadRequest {
		switch e.Message {
		case api.MsgNothingToUndo:
			return ledger.ErrNothingToUndo
		case api.MsgNothingToRedo:
			return ledger.ErrNothingToRedo
		case api.MsgInvalidInput:
			return ErrInvalidInput
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	return &APIError{Status: resp.StatusCode, Message: e.Message}
}
