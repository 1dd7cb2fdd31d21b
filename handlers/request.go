package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
)

// contextKey keeps request-scoped values out of other packages' key space.
type contextKey string

const UserContextKey contextKey = "user"

// WithUser stores the authenticated user. Used by the auth middleware.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext returns the user set by the auth middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// PathID parses a positive integer path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: Invalid %s", pkg.ErrBadRequest, name)
	}
	return id, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", pkg.ErrBadRequest, name)
	}
	return n, nil
}

// queryTime parses an RFC 3339 parameter, returning def when absent.
func queryTime(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", pkg.ErrBadRequest, name)
	}
	return t.UTC(), nil
}

// timeRange reads start/end, defaulting to [now+from, now+to). Defaults are
// truncated to the minute so repeated requests share a cache key.
func timeRange(r *http.Request, now time.Time, from, to time.Duration) (time.Time, time.Time, error) {
	base := now.UTC().Truncate(time.Minute)
	start, err := queryTime(r, "start", base.Add(from))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryTime(r, "end", base.Add(to))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// queryList merges repeated and comma-separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
