// Package client talks to the reviews API and holds the presentation state
// used by reviewctl: paging, collapsed text and the offline journal.
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

	"github.com/daleribragimov115-spec/my-website/internal/models"
)

// ErrUnreachable wraps transport failures, timeouts included.
var ErrUnreachable = errors.New("server unreachable")

// APIError is a {success:false} answer or an unexpected status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

type Timeouts struct {
	Health time.Duration
	List   time.Duration
	Submit time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Health: 10 * time.Second,
		List:   15 * time.Second,
		Submit: 30 * time.Second,
	}
}

type Client struct {
	BaseURL    string
	HTTP       *http.Client
	Timeouts   Timeouts
	AdminToken string
}

// New targets baseURL, which includes the API prefix (e.g. http://host:3001/api).
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{},
		Timeouts: DefaultTimeouts(),
	}
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	if err := c.do(ctx, c.Timeouts.Health, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) ([]models.PublicReview, error) {
	var out struct {
		Comments []models.PublicReview `json:"comments"`
	}
	if err := c.do(ctx, c.Timeouts.List, http.MethodGet, "/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// AdminList needs AdminToken.
func (c *Client) AdminList(ctx context.Context) ([]models.Review, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.AdminToken}
	var out struct {
		Comments []models.Review `json:"comments"`
	}
	if err := c.do(ctx, c.Timeouts.List, http.MethodGet, "/admin/comments", nil, headers, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) Submit(ctx context.Context, in models.ReviewInput) (*models.CreateResponse, error) {
	var out models.CreateResponse
	if err := c.do(ctx, c.Timeouts.Submit, http.MethodPost, "/comments", in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id, ownerToken string) error {
	headers := map[string]string{"X-Owner-Token": ownerToken}
	return c.do(ctx, c.Timeouts.Submit, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, headers, nil)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body any, headers map[string]string, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	var envelope models.ApiResponse
	_ = json.Unmarshal(raw, &envelope)
	if resp.StatusCode >= 400 || !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
