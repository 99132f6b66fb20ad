package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "shopfloor/internal/auth"
	"shopfloor/internal/models"
	"shopfloor/internal/store"
)

const tokenTypeBearer = "bearer"

var defaultSessionTTL = 24 * time.Hour

// AuthService owns credentials, bearer sessions, and user provisioning.
type AuthService struct {
	store      store.AuthStore
	sessionTTL time.Duration
}

type authLoginResult struct {
	User      *store.AuthUser
	Token     string
	ExpiresAt time.Time
}

// CreateUserInput is a plaintext user provisioning request.
type CreateUserInput struct {
	Username string
	Password string
	FullName string
	Role     string
}

func NewAuthService(authStore store.AuthStore) *AuthService {
	if authStore == nil {
		return nil
	}
	return &AuthService{store: authStore, sessionTTL: defaultSessionTTL}
}

func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*authLoginResult, error) {
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequest(err)
	}
	if strings.TrimSpace(password) == "" {
		return nil, badRequestCode(fmt.Errorf("password is required"), codeMissingRequired)
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, storeFailure(err)
	}
	if user == nil || user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, internalauth.ErrInvalidCredentials
	}

	token, err := internalauth.NewToken()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, user.ID, internalauth.HashToken(token), expiresAt, now); err != nil {
		return nil, storeFailure(err)
	}

	return &authLoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// AuthenticateToken resolves a bearer token to its user, or nil.
func (a *AuthService) AuthenticateToken(ctx context.Context, token string, now time.Time) (*store.AuthUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, internalauth.HashToken(token), now)
}

func (a *AuthService) RevokeToken(ctx context.Context, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, internalauth.HashToken(token), now)
}

// CreateUser validates and provisions one user. Authorization is the
// caller's concern; the first admin is created this way from the CLI.
func (a *AuthService) CreateUser(ctx context.Context, input CreateUserInput, now time.Time) (*store.AuthUser, error) {
	username, err := internalauth.NormalizeUsername(input.Username)
	if err != nil {
		return nil, badRequest(err)
	}
	fullName, err := internalauth.NormalizeFullName(input.FullName)
	if err != nil {
		return nil, badRequest(err)
	}
	role, err := models.ParseRole(input.Role)
	if err != nil {
		return nil, badRequest(err)
	}
	hash, err := internalauth.HashPassword(input.Password)
	if err != nil {
		return nil, badRequest(err)
	}

	user, err := a.store.CreateUser(ctx, store.UserInput{
		Username:     username,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
	}, now)
	if errors.Is(err, store.ErrUsernameTaken) {
		return nil, conflictCode(err, codeUsernameTaken)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return user, nil
}

func (a *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	out := make([]models.User, 0, len(users))
	for _, user := range users {
		out = append(out, user.Public())
	}
	return out, nil
}
