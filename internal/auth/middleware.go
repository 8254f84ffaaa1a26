package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// SessionCookie is the name of the cookie that carries the session JWT.
const SessionCookie = "session"

// contextKey is an unexported type used for context keys in this package.
// Only this package can build a key of this type, so nothing else can read
// or overwrite the user ID stored under it.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticate reads the session cookie on every request. A valid token puts
// the user ID on the context; a missing or invalid one leaves the request
// anonymous. It never rejects a request on its own, that's RequireAuth's job.
//
// An invalid cookie (expired, wrong secret after a rotation) is cleared so
// the browser stops sending it.
func Authenticate(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				// http.ErrNoCookie: anonymous visitor
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(cookie.Value)
			if err != nil {
				ClearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireAuth guards login-only pages. Anonymous requests are redirected to
// loginPath with the current path in ?next= so the login form can send the
// user back afterwards:
//
//	GET /accounts/edit  →  303 /accounts/login?next=%2Faccounts%2Fedit
//
// It must run after Authenticate.
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				target := loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetSessionCookie stores a freshly issued token. Max-Age matches the
// token's own expiry.
//
// COOKIE FLAGS:
//   - HttpOnly: page scripts can't read it (XSS can't steal the session)
//   - SameSite=Lax: not sent on cross-site POSTs, which covers the forms here
//   - Secure: only over HTTPS, set when the request came in over TLS
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   IsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie logs the browser out.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// IsSecure reports whether the request reached us over HTTPS, directly or
// through a proxy that sets X-Forwarded-Proto.
func IsSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
