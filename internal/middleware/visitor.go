package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	// VisitorCookie holds the anonymous visitor id used for view deduplication.
	VisitorCookie = "visitor_id"
	visitorMaxAge = 365 * 24 * 60 * 60
	// maxVisitorID matches the stored session_id column width.
	maxVisitorID = 64
)

// Visitor issues a visitor cookie to clients without a usable one.
func Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if VisitorID(r) == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    uuid.NewString(),
				Path:     "/",
				MaxAge:   visitorMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// VisitorID returns the visitor cookie sent with r, or "". Values longer than
// the session column are treated as absent rather than cut.
func VisitorID(r *http.Request) string {
	c, err := r.Cookie(VisitorCookie)
	if err != nil || len(c.Value) > maxVisitorID {
		return ""
	}
	return c.Value
}
