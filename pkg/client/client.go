// Package client is a typed Go client for the agent studio API. It keeps the
// session cookie in a jar, so a client that signed in stays signed in, and it
// can alternatively authenticate with an API token.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	"github.com/R3E-Network/agent_studio/internal/app/domain/agent"
	"github.com/R3E-Network/agent_studio/internal/app/domain/apitoken"
	"github.com/R3E-Network/agent_studio/internal/app/domain/notification"
	"github.com/R3E-Network/agent_studio/internal/app/domain/onboarding"
	"github.com/R3E-Network/agent_studio/internal/app/domain/paging"
	"github.com/R3E-Network/agent_studio/internal/app/domain/tool"
	"github.com/R3E-Network/agent_studio/internal/httputil"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agent studio: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("agent studio: %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of err when it is an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// APIToken authenticates every request with the X-API-Key header instead
	// of the session cookie.
	APIToken  string
	UserAgent string
	// HTTPClient replaces the default client. Its Jar, when nil, is set to a
	// fresh cookie jar.
	HTTPClient *http.Client
}

// Client calls the API.
type Client struct {
	http  *httputil.ServiceClient
	token string
}

// New creates a client for the API served at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "agent-studio-go-client"
	}
	return &Client{
		http: httputil.NewServiceClient(httputil.ServiceClientConfig{
			BaseURL:    baseURL,
			HTTPClient: hc,
			UserAgent:  userAgent,
		}),
		token: opts.APIToken,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqOpts []httputil.RequestOption
	if c.token != "" {
		reqOpts = append(reqOpts, httputil.WithHeader("X-API-Key", c.token))
	}
	resp, err := c.http.Do(ctx, method, path, body, reqOpts...)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		out = nil
	}
	return httputil.DecodeResponse(resp, out)
}

func decodeError(resp *http.Response) error {
	defer resp.Body.Close()
	body, _, err := httputil.ReadAllWithLimit(resp.Body, 64<<10)
	if err != nil {
		return fmt.Errorf("read error response: %w", err)
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if msg := parsed.Get("error").String(); msg != "" {
			apiErr.Message = msg
		}
		apiErr.Code = parsed.Get("code").String()
		apiErr.TraceID = parsed.Get("traceId").String()
	}
	return apiErr
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  account.User `json:"user"`
}

// SignUp creates an account and signs in.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"name": name, "email": email, "password": password,
	}, &out)
	return out, err
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": email, "password": password,
	}, &out)
	return out, err
}

// SignOut revokes the current session.
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/sign-out", nil, nil)
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*account.Authenticated, error) {
	var out *account.Authenticated
	if err := c.do(ctx, http.MethodGet, "/api/auth/get-session", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (account.User, error) {
	var out account.User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &out)
	return out, err
}

// UpdateProfile changes the display name and image of the signed-in user.
func (c *Client) UpdateProfile(ctx context.Context, name, image string) (account.User, error) {
	var out account.User
	err := c.do(ctx, http.MethodPatch, "/api/me", map[string]string{"name": name, "image": image}, &out)
	return out, err
}

func pageQuery(path string, page paging.Request, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if page.Page > 0 {
		q.Set("page", strconv.Itoa(page.Page))
	}
	if page.Limit > 0 {
		q.Set("limit", strconv.Itoa(page.Limit))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// ListAgents returns one page of the caller's agents.
func (c *Client) ListAgents(ctx context.Context, page paging.Request) (paging.Result[agent.Agent], error) {
	var out paging.Result[agent.Agent]
	err := c.do(ctx, http.MethodGet, pageQuery("/api/agents", page, nil), nil, &out)
	return out, err
}

// CreateAgent creates an agent.
func (c *Client) CreateAgent(ctx context.Context, in agent.Input) (agent.Agent, error) {
	var out agent.Agent
	err := c.do(ctx, http.MethodPost, "/api/agents", in, &out)
	return out, err
}

// GetAgent fetches one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (agent.Agent, error) {
	var out agent.Agent
	err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id), nil, &out)
	return out, err
}

// UpdateAgent applies a partial update.
func (c *Client) UpdateAgent(ctx context.Context, id string, patch agent.Patch) (agent.Agent, error) {
	var out agent.Agent
	err := c.do(ctx, http.MethodPatch, "/api/agents/"+url.PathEscape(id), patch, &out)
	return out, err
}

// DeleteAgent soft-deletes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(id), nil, nil)
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// ListTools returns the tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]tool.Tool, error) {
	var out listEnvelope[tool.Tool]
	err := c.do(ctx, http.MethodGet, "/api/tools", nil, &out)
	return out.Data, err
}

// ListNotifications returns one page of notifications, optionally unread
// only.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool, page paging.Request) (paging.Result[notification.Notification], error) {
	var extra url.Values
	if unreadOnly {
		extra = url.Values{"unread": {"true"}}
	}
	var out paging.Result[notification.Notification]
	err := c.do(ctx, http.MethodGet, pageQuery("/api/notifications", page, extra), nil, &out)
	return out, err
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &out)
	return out.Count, err
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	var out notification.Notification
	err := c.do(ctx, http.MethodPatch, "/api/notifications/"+url.PathEscape(id)+"/read", nil, &out)
	return out, err
}

// MarkAllRead marks every notification read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var out struct {
		Updated int `json:"updated"`
	}
	err := c.do(ctx, http.MethodPost, "/api/notifications/read-all", nil, &out)
	return out.Updated, err
}

// CreateToken issues an API token. expiresInDays of zero means no expiry.
// The raw secret is only available in the returned value.
func (c *Client) CreateToken(ctx context.Context, name string, expiresInDays int) (apitoken.Issued, error) {
	body := map[string]interface{}{"name": name}
	if expiresInDays > 0 {
		body["expiresInDays"] = expiresInDays
	}
	var out apitoken.Issued
	err := c.do(ctx, http.MethodPost, "/api/api-tokens", body, &out)
	return out, err
}

// ListTokens returns the caller's active tokens.
func (c *Client) ListTokens(ctx context.Context) ([]apitoken.Token, error) {
	var out listEnvelope[apitoken.Token]
	err := c.do(ctx, http.MethodGet, "/api/api-tokens", nil, &out)
	return out.Data, err
}

// RevokeToken revokes a token.
func (c *Client) RevokeToken(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/api-tokens/"+url.PathEscape(id), nil, nil)
}

// Onboarding returns the caller's onboarding profile.
func (c *Client) Onboarding(ctx context.Context) (onboarding.Profile, error) {
	var out onboarding.Profile
	err := c.do(ctx, http.MethodGet, "/api/onboarding", nil, &out)
	return out, err
}

// SaveOnboarding stores the onboarding answers.
func (c *Client) SaveOnboarding(ctx context.Context, p onboarding.Profile) (onboarding.Profile, error) {
	var out onboarding.Profile
	err := c.do(ctx, http.MethodPut, "/api/onboarding", map[string]string{
		"role":        p.Role,
		"useCase":     p.UseCase,
		"companySize": p.CompanySize,
		"referral":    p.Referral,
	}, &out)
	return out, err
}

// Chat sends a message to an agent and returns the streamed reply text.
func (c *Client) Chat(ctx context.Context, agentID, message string) (string, error) {
	var reqOpts []httputil.RequestOption
	if c.token != "" {
		reqOpts = append(reqOpts, httputil.WithHeader("X-API-Key", c.token))
	}
	resp, err := c.http.Post(ctx, "/api/chat/stream", map[string]string{"agentId": agentID, "message": message}, reqOpts...)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}
	defer resp.Body.Close()
	text, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat stream: %w", err)
	}
	return string(text), nil
}
