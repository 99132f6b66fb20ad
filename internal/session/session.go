// Package session holds the explicit login context handed to every
// component that talks to the remote task store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

// ErrNotLoggedIn is returned when no usable session exists.
var ErrNotLoggedIn = errors.New("not logged in")

// Session is one authenticated operator context: the access token and the
// user it belongs to.
type Session struct {
	APIURL    string      `json:"api_url"`
	Token     string      `json:"access_token"`
	ExpiresAt time.Time   `json:"expires_at,omitempty"`
	User      models.User `json:"user"`
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error)
}

// Login authenticates against the remote store and returns a new session.
func Login(ctx context.Context, auth Authenticator, apiURL, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	resp, err := auth.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}

	s := &Session{
		APIURL: strings.TrimRight(apiURL, "/"),
		Token:  resp.AccessToken,
		User:   resp.User,
	}
	if resp.ExpiresAt != "" {
		if expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			s.ExpiresAt = expiresAt
		}
	}
	return s, nil
}

// Valid reports whether the session has a token that has not expired.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || strings.TrimSpace(s.Token) == "" {
		return false
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return false
	}
	return true
}

// UserID is the identifier tasks are matched against for ownership.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Client returns an API client that authenticates as this session.
func (s *Session) Client(opts ...api.Option) *api.Client {
	opts = append([]api.Option{api.WithToken(s.Token)}, opts...)
	return api.NewClient(s.APIURL, opts...)
}
