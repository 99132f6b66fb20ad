package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes  = 72
	maxUsernameLength = 32
	maxFullNameLength = 120
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._-]*[a-z0-9])?$`)
)

// NormalizeUsername lowercases and trims a login name, then checks the
// allowed character set.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(strings.ToLower(raw))
	switch {
	case username == "":
		return "", fmt.Errorf("username is required")
	case len(username) > maxUsernameLength:
		return "", fmt.Errorf("username too long (max %d)", maxUsernameLength)
	case !usernamePattern.MatchString(username):
		return "", fmt.Errorf("invalid username %q", raw)
	}
	return username, nil
}

// NormalizeFullName trims a display name. Empty is allowed.
func NormalizeFullName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(name) > maxFullNameLength {
		return "", fmt.Errorf("full name too long (max %d)", maxFullNameLength)
	}
	return name, nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

// HashPassword validates and bcrypt-hashes a plaintext password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func VerifyPassword(passwordHash, candidate string) bool {
	if strings.TrimSpace(passwordHash) == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(candidate)) == nil
}
