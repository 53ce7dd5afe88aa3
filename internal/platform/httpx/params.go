package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// PathID parses the {id} route parameter, writing a 400 problem when it
// is not a positive integer.
func PathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Problem(w, http.StatusBadRequest, "Invalid ID", "path id must be a positive integer")
		return 0, false
	}
	return id, true
}

// QueryInt64 parses an optional integer query parameter, zero when absent.
func QueryInt64(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

// ActorID extracts the acting user id supplied by the authenticating
// front proxy. Authorization itself happens before requests reach us.
func ActorID(r *http.Request) int64 {
	v, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return v
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
