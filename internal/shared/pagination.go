package shared

import (
	"net/url"
	"strconv"
	"time"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListFilters holds common listing parameters.
type ListFilters struct {
	Query  string
	Limit  int
	Offset int
}

// Normalize clamps limit and offset into their allowed ranges.
func (f ListFilters) Normalize() ListFilters {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ParseListFilters reads q, limit and offset from a query string.
func ParseListFilters(values url.Values) ListFilters {
	limit, _ := strconv.Atoi(values.Get("limit"))
	offset, _ := strconv.Atoi(values.Get("offset"))
	return ListFilters{Query: values.Get("q"), Limit: limit, Offset: offset}.Normalize()
}

// ParseDateRange reads the from and to query parameters as YYYY-MM-DD or
// RFC3339. A date-only to is inclusive of that whole day, so the returned to
// is an exclusive bound. Absent parameters come back as zero times.
func ParseDateRange(values url.Values) (from, to time.Time, err error) {
	if from, err = parseDay(values.Get("from"), "from"); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to, err = parseDay(values.Get("to"), "to"); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !to.IsZero() && len(values.Get("to")) == len(time.DateOnly) {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func parseDay(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be YYYY-MM-DD or RFC3339")
	}
	return t, nil
}
