// Package flash carries one-shot notices ("post was created successfully")
// from the request that sets them to the next page the browser renders.
//
// The notice lives in a short-lived cookie. Set writes it; Pop reads it and
// clears it in the same response, so each notice is shown exactly once.
//
//	POST /blog/create  → Set(w, Success("post was created successfully"))
//	                   → 303 /blog/{id}/
//	GET  /blog/{id}/   → Pop(w, r) returns the notice and deletes the cookie
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "flash"

// Level is the severity of a notice. It doubles as a CSS class in templates.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"l"`
	Message string `json:"m"`
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Warning(msg string) Notice { return Notice{Level: LevelWarning, Message: msg} }

// Set stores n for the next request.
func Set(w http.ResponseWriter, n Notice) {
	raw, err := json.Marshal(n)
	if err != nil {
		return // Notice is two strings; Marshal can't fail
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending notice, if any, and clears it.
// A malformed cookie is cleared and treated as no notice.
func Pop(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Notice{}, false
	}
	expire(w)

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Notice{}, false
	}
	var n Notice
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		return Notice{}, false
	}
	return n, true
}

func expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
