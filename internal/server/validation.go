package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopfloor/internal/models"
)

const (
	maxTitleLength = 200
	dueDateLayout  = "2006-01-02"
)

var idRegex = regexp.MustCompile(`^[a-z]{2}-[0-9a-z]{1,32}$`)

func validateID(id string) bool {
	return idRegex.MatchString(id)
}

func pathTaskID(r *http.Request) (string, error) {
	return pathID(r, "task")
}

func pathID(r *http.Request, kind string) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !validateID(id) {
		return "", badRequest(fmt.Errorf("invalid %s id %q", kind, id))
	}
	return id, nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", badRequestCode(fmt.Errorf("title is required"), codeMissingRequired)
	}
	if len(title) > maxTitleLength {
		return "", badRequest(fmt.Errorf("title too long (max %d)", maxTitleLength))
	}
	return title, nil
}

func normalizePriority(raw *string) (string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return models.DefaultPriority, nil
	}
	value := strings.ToLower(strings.TrimSpace(*raw))
	if !models.IsValidPriority(value) {
		return "", badRequest(fmt.Errorf("invalid priority %q (want low, medium or high)", *raw))
	}
	return value, nil
}

func normalizeDueDate(raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(dueDateLayout, value); err != nil {
		return "", badRequest(fmt.Errorf("invalid due_date %q (want YYYY-MM-DD)", value))
	}
	return value, nil
}

// parsePeriod reads the optional month and year query parameters.
func parsePeriod(r *http.Request) (month, year int, err error) {
	month, err = queryInt(r, "month", 1, 12)
	if err != nil {
		return 0, 0, err
	}
	year, err = queryInt(r, "year", 1970, 9999)
	if err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

func queryInt(r *http.Request, key string, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < lo || value > hi {
		return 0, badRequest(fmt.Errorf("invalid %s %q", key, raw))
	}
	return value, nil
}

func trimmed(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return strings.TrimSpace(*ptr)
}
