package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type clientIDKey struct{}

// ClientID identifies a browser across requests with an opaque cookie. The
// id keys the in-memory session table; it carries no authority by itself.
type ClientID struct {
	CookieName string
	Secure     bool
}

// Handler issues the cookie when absent or malformed and stores the id in
// the request context.
func (c ClientID) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if ck, err := r.Cookie(c.CookieName); err == nil {
			if _, err := uuid.Parse(ck.Value); err == nil {
				id = ck.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			c.Issue(w, id)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id)))
	})
}

// Issue sets the client cookie to id, replacing the browser's current one.
func (c ClientID) Issue(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClientIDFromContext returns the id set by ClientID.Handler, or "".
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
