package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/models"
)

// AuthUser is a provisioned account including its password hash.
type AuthUser struct {
	ID           string
	Username     string
	FullName     string
	PasswordHash string
	Role         models.Role
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public strips credentials.
func (u AuthUser) Public() models.User {
	return models.User{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
		Disabled: u.Disabled,
	}
}

// UserInput describes a user to create. Username must already be
// normalized and PasswordHash already computed.
type UserInput struct {
	Username     string
	FullName     string
	PasswordHash string
	Role         models.Role
}

const userColumns = "id, username, full_name, password_hash, role, disabled, created_at, updated_at"

// CountEnabledUsers returns the number of non-disabled provisioned users.
func (s *Store) CountEnabledUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE disabled = 0").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateUser inserts one user. It returns ErrUsernameTaken when the name is
// already in use.
func (s *Store) CreateUser(ctx context.Context, input UserInput, now time.Time) (*AuthUser, error) {
	username := normalizeAuthUsername(input.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(input.PasswordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	if !models.IsValidRole(input.Role) {
		return nil, fmt.Errorf("invalid role %q", input.Role)
	}

	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	userID, err := GenerateID(userIDPrefix, s.UserExists)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, userID, username, nullIfEmpty(input.FullName), input.PasswordHash, string(input.Role), formatTime(now), formatTime(now))
	if err != nil {
		return nil, err
	}

	return &AuthUser{
		ID:           userID,
		Username:     username,
		FullName:     input.FullName,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// GetUserByUsername returns a user by normalized username, or nil.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*AuthUser, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", username)
	return scanAuthUser(row)
}

// GetUserByID returns a user by id, or nil.
func (s *Store) GetUserByID(ctx context.Context, id string) (*AuthUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanAuthUser(row)
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]AuthUser, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AuthUser, 0)
	for rows.Next() {
		user, err := scanAuthUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserDisabled updates one user's disabled state. Disabling also revokes
// the user's open sessions. It returns nil when the user does not exist.
func (s *Store) SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*AuthUser, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	disabledInt := 0
	if disabled {
		disabledInt = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET disabled = ?, updated_at = ? WHERE username = ?
	`, disabledInt, formatTime(now), username)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	if disabled {
		_, err = s.db.ExecContext(ctx, `
			UPDATE sessions SET revoked_at = ?
			WHERE revoked_at IS NULL
			  AND user_id = (SELECT id FROM users WHERE username = ?)
		`, formatTime(now), username)
		if err != nil {
			return nil, err
		}
	}
	return s.GetUserByUsername(ctx, username)
}

// CreateSession stores a bearer session bound to one user and token hash.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error {
	userID = strings.TrimSpace(userID)
	tokenHash = strings.TrimSpace(tokenHash)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}

	sessionID, err := GenerateID(sessionIDPrefix, nil)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)
	`, sessionID, userID, tokenHash, formatTime(expiresAt), formatTime(createdAt))
	return err
}

// GetUserBySessionTokenHash returns the owner of an active, non-revoked
// session, or nil.
func (s *Store) GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}

	var expiresAt string
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.full_name, u.password_hash, u.role, u.disabled, u.created_at, u.updated_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
		  AND s.revoked_at IS NULL
		  AND u.disabled = 0
		LIMIT 1
	`, tokenHash)
	user, err := scanAuthUser(row, &expiresAt)
	if err != nil || user == nil {
		return nil, err
	}

	// Compared as time values; the text form has variable fraction width.
	expires, err := parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	if !now.Before(expires) {
		return nil, nil
	}
	return user, nil
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL
	`, formatTime(revokedAt), tokenHash)
	return err
}

func scanAuthUser(scanner interface {
	Scan(dest ...any) error
}, extra ...any) (*AuthUser, error) {
	var user AuthUser
	var fullName sql.NullString
	var role string
	var disabled int
	var createdAt, updatedAt string

	dest := []any{&user.ID, &user.Username, &fullName, &user.PasswordHash, &role, &disabled, &createdAt, &updatedAt}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.FullName = fullName.String
	user.Role = models.Role(role)
	user.Disabled = disabled != 0

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeAuthUsername(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}
