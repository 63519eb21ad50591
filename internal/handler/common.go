package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/lock"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// lockFailed maps a lock acquisition failure onto an HTTP response.
// Timeouts are transient: the terminal should retry with backoff, so
// the response carries Retry-After.
func lockFailed(c echo.Context, err error) error {
	if errors.Is(err, lock.ErrTimeout) {
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "resource busy, retry shortly"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock acquisition failed"})
}

// releaseAll invokes the collected lock releases in reverse
// acquisition order.
func releaseAll(releases []func()) {
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

// sortedUnique returns the distinct values of ids in ascending
// order. Locks are always acquired in this order so two sales
// touching the same products cannot deadlock each other.
func sortedUnique(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sameCalendarDay reports whether two instants fall on the same UTC
// calendar day. Void eligibility is decided on this.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// amountsEqual compares two monetary amounts within the accepted
// floating point tolerance of one cent.
func amountsEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 0.01
}
