package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the identity provider's admin API using the privileged
// service key. It implements Provider.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates an admin API client for the given provider base URL.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// List fetches one page of identities from the admin API.
func (c *Client) List(ctx context.Context, page, pageSize int) ([]Identity, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	var out struct {
		Users []Identity `json:"users"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/admin/users?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Claims   Claims `json:"claims"`
}

// Create registers a new identity. A conflict status from the provider maps
// to ErrDuplicateLoginKey so callers can treat the race as recoverable.
func (c *Client) Create(ctx context.Context, email, password string, claims Claims) (*Identity, error) {
	var out Identity
	status, err := c.do(ctx, http.MethodPost, "/admin/users", createRequest{Email: email, Password: password, Claims: claims}, &out)
	if err != nil {
		if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
			return nil, ErrDuplicateLoginKey
		}
		return nil, err
	}
	return &out, nil
}

// Update applies a partial patch to an identity.
func (c *Client) Update(ctx context.Context, id string, patch Patch) error {
	status, err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), patch, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
			return ErrDuplicateLoginKey
		}
		return err
	}
	return nil
}

// Delete removes an identity from the provider.
func (c *Client) Delete(ctx context.Context, id string) error {
	status, err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}
