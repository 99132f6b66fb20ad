package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"shopfloor/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "SHOPFLOOR_HTTP_TIMEOUT"
)

// Client is a simple HTTP client for the remote task store.
type Client struct {
	baseURL string
	timeout time.Duration
	token   string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout. Non-positive values keep
// the default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithToken authenticates every request with a bearer access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// NewClient creates a new API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: httpTimeoutFromEnv(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{Timeout: c.timeout}
	if c.token != "" {
		c.http.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
		}
	}
	return c
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp)
	return resp, err
}

// Logout revokes the client's access token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the user that owns the client's access token.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var resp models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &resp)
	return resp, err
}

// ListTasks returns every task visible to the caller, optionally limited to
// one month.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, error) {
	var resp []models.Task
	err := c.do(ctx, http.MethodGet, "/tasks/", q.values(), nil, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, req TaskCreateRequest) (models.Task, error) {
	var resp models.Task
	err := c.do(ctx, http.MethodPost, "/tasks/", nil, req, &resp)
	return resp, err
}

// Transition issues POST /tasks/{id}/{action}. Reason-carrying actions send
// a JSON body; the others send none.
func (c *Client) Transition(ctx context.Context, id string, action models.Action, reason string) (models.Task, error) {
	var resp models.Task
	var body any
	if models.RequiresReason(action) {
		body = TransitionRequest{Reason: reason}
	}
	err := c.do(ctx, http.MethodPost, taskPath(id)+"/"+string(action), nil, body, &resp)
	return resp, err
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var resp []models.User
	err := c.do(ctx, http.MethodGet, "/users/", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateUser(ctx context.Context, req UserCreateRequest) (models.User, error) {
	var resp models.User
	err := c.do(ctx, http.MethodPost, "/users/", nil, req, &resp)
	return resp, err
}

// ListMachines returns the registry, optionally filtered by status.
func (c *Client) ListMachines(ctx context.Context, status string) ([]models.Machine, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": []string{status}}
	}
	var resp []models.Machine
	err := c.do(ctx, http.MethodGet, "/machines/", query, nil, &resp)
	return resp, err
}

func (c *Client) CreateMachine(ctx context.Context, req MachineCreateRequest) (models.Machine, error) {
	var resp models.Machine
	err := c.do(ctx, http.MethodPost, "/machines/", nil, req, &resp)
	return resp, err
}

func (c *Client) UpdateMachine(ctx context.Context, id string, req MachineUpdateRequest) (models.Machine, error) {
	var resp models.Machine
	err := c.do(ctx, http.MethodPatch, "/machines/"+url.PathEscape(id), nil, req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.Detail = strings.TrimSpace(errResp.Detail)
	}
	return apiErr
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
