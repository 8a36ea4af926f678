// Package evalapi is a thin client for the remote evaluation service.
//
// ENDPOINTS:
//
//	POST {base}/register           body: model.Credentials   → {clientID, clientSecret}
//	POST {base}/auth               body: model.AuthRequest   → {access_token}
//	GET  {base}/users              bearer token              → {users: {id: name}}
//	GET  {base}/users/{id}/posts   bearer token              → {posts: [...]}
//
// Every method returns a typed error from internal/apperror instead of a
// zero value, so callers decide what a failure means (abort the run, or
// count the user as having zero posts).
package evalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/model"
)

// DefaultBaseURL is the evaluation service the dashboard was built against.
const DefaultBaseURL = "http://20.244.56.144/evaluation-service"

// maxErrorBody caps how much of a failed response we copy into an error.
const maxErrorBody = 512

// Client talks to one evaluation service instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. httpClient may be nil, in which case a client with
// no timeout is used. The base URL must not end with a slash.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Register submits the credentials and returns the client pair used to
// obtain a token.
func (c *Client) Register(ctx context.Context, creds model.Credentials) (model.ClientRegistration, error) {
	const op = "POST /register"
	c.logger.Info("registering client",
		slog.String("email", creds.Email),
		slog.String("rollNo", creds.RollNo),
	)

	var reg model.ClientRegistration
	if err := c.do(ctx, c.http, http.MethodPost, "/register", creds, &reg); err != nil {
		c.logger.Error("registration failed", slog.String("error", err.Error()))
		return model.ClientRegistration{}, err
	}

	if reg.ClientID == "" || reg.ClientSecret == "" {
		err := apperror.Auth(op, "response carried no client credentials")
		c.logger.Error("registration failed", slog.String("error", err.Error()))
		return model.ClientRegistration{}, err
	}

	return reg, nil
}

// Authenticate exchanges the registration for a bearer token.
func (c *Client) Authenticate(ctx context.Context, req model.AuthRequest) (string, error) {
	const op = "POST /auth"
	c.logger.Info("fetching auth token",
		slog.String("email", req.Email),
		slog.String("clientID", req.ClientID),
	)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, c.http, http.MethodPost, "/auth", req, &resp); err != nil {
		c.logger.Error("auth token request failed", slog.String("error", err.Error()))
		return "", err
	}

	if resp.AccessToken == "" {
		err := apperror.Auth(op, "response carried no access token")
		c.logger.Error("auth token request failed", slog.String("error", err.Error()))
		return "", err
	}

	return resp.AccessToken, nil
}

// Users fetches the user directory as a map of id → name. A response without
// a "users" field decodes as an empty map, not an error.
func (c *Client) Users(ctx context.Context, token string) (map[string]string, error) {
	c.logger.Info("fetching users")

	var resp struct {
		Users map[string]string `json:"users"`
	}
	if err := c.do(ctx, c.bearer(token), http.MethodGet, "/users", nil, &resp); err != nil {
		c.logger.Error("fetching users failed", slog.String("error", err.Error()))
		return nil, err
	}

	if resp.Users == nil {
		return map[string]string{}, nil
	}
	return resp.Users, nil
}

// Posts fetches one user's posts. A response without a "posts" field
// decodes as an empty list.
func (c *Client) Posts(ctx context.Context, token, userID string) ([]model.Post, error) {
	c.logger.Debug("fetching posts", slog.String("userID", userID))

	var resp struct {
		Posts []model.Post `json:"posts"`
	}
	path := "/users/" + url.PathEscape(userID) + "/posts"
	if err := c.do(ctx, c.bearer(token), http.MethodGet, path, nil, &resp); err != nil {
		c.logger.Error("fetching posts failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if resp.Posts == nil {
		return []model.Post{}, nil
	}
	return resp.Posts, nil
}

// bearer returns an *http.Client that adds "Authorization: Bearer <token>"
// to every request.
//
// oauth2.Transport does the header work for us. A static token source never
// refreshes, which matches how the token is used: obtained once, reused
// until someone clears it.
func (c *Client) bearer(token string) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: token,
				TokenType:   "Bearer",
			}),
			Base: c.http.Transport,
		},
		Timeout: c.http.Timeout,
	}
}

// do sends one JSON request and decodes a JSON response into out.
//
// ERROR MAPPING:
//   - transport error, non-2xx, undecodable body → apperror.ErrNetwork
//   - 401 / 403                                  → apperror.ErrAuth
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperror.Network(op, fmt.Errorf("encoding request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperror.Network(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apperror.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return apperror.Auth(op, detail)
		}
		return apperror.Network(op, fmt.Errorf("unexpected %s", detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Network(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
