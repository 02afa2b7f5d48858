// Package httpclient implements the resource services against the JSON API
// served by internal/httpapi.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/ballotdesk/internal/resource"
)

// DefaultTimeout bounds a single request when no client is supplied.
const DefaultTimeout = 10 * time.Second

// Client talks to a remote resource API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ resource.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetGame fetches a game.
func (c *Client) GetGame(ctx context.Context, id string) (resource.Game, error) {
	var game resource.Game
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(id), nil, &game)
	return game, err
}

// ListGames fetches all games.
func (c *Client) ListGames(ctx context.Context) ([]resource.Game, error) {
	var games []resource.Game
	err := c.do(ctx, http.MethodGet, "/api/games", nil, &games)
	return games, err
}

// CreateGame creates a game.
func (c *Client) CreateGame(ctx context.Context, in resource.GameInput) (resource.Game, error) {
	var game resource.Game
	err := c.do(ctx, http.MethodPost, "/api/games", in, &game)
	return game, err
}

// UpdateGame updates a game.
func (c *Client) UpdateGame(ctx context.Context, id string, in resource.GameInput) (resource.Game, error) {
	var game resource.Game
	err := c.do(ctx, http.MethodPut, "/api/games/"+url.PathEscape(id), in, &game)
	return game, err
}

// DeleteGame deletes a game.
func (c *Client) DeleteGame(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/games/"+url.PathEscape(id), nil, nil)
}

// GetVotingConfig fetches a voting configuration.
func (c *Client) GetVotingConfig(ctx context.Context, code string) (resource.VotingConfig, error) {
	var cfg resource.VotingConfig
	err := c.do(ctx, http.MethodGet, "/api/voting-configs/"+url.PathEscape(code), nil, &cfg)
	return cfg, err
}

// ImportVotingConfig creates or replaces a voting configuration.
func (c *Client) ImportVotingConfig(ctx context.Context, cfg resource.VotingConfig, force bool) (resource.VotingConfig, error) {
	path := "/api/voting-configs/" + url.PathEscape(cfg.Code)
	if force {
		path += "?force=true"
	}
	var stored resource.VotingConfig
	err := c.do(ctx, http.MethodPut, path, cfg, &stored)
	return stored, err
}

// DeleteVotingConfig deletes a voting configuration.
func (c *Client) DeleteVotingConfig(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/api/voting-configs/"+url.PathEscape(code), nil, nil)
}

// GetNomination fetches a nomination.
func (c *Client) GetNomination(ctx context.Context, id string) (resource.Nomination, error) {
	var n resource.Nomination
	err := c.do(ctx, http.MethodGet, "/api/nominations/"+url.PathEscape(id), nil, &n)
	return n, err
}

// CreateNomination creates a nomination.
func (c *Client) CreateNomination(ctx context.Context, in resource.NominationInput) (resource.Nomination, error) {
	var n resource.Nomination
	err := c.do(ctx, http.MethodPost, "/api/nominations", in, &n)
	return n, err
}

// DeleteNomination deletes a nomination.
func (c *Client) DeleteNomination(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/nominations/"+url.PathEscape(id), nil, nil)
}

// ListNominations fetches the nominations of a game.
func (c *Client) ListNominations(ctx context.Context, gameID string) ([]resource.Nomination, error) {
	var list []resource.Nomination
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(gameID)+"/nominations", nil, &list)
	return list, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &resource.APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = resource.CodeForStatus(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
