package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carry copies the cookies set on rec onto a new request, like a browser
// following a redirect would.
func carry(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestSetThenPop(t *testing.T) {
	rec := httptest.NewRecorder()
	Set(rec, Success("post was created successfully"))

	next := carry(t, rec)
	rec2 := httptest.NewRecorder()
	n, ok := Pop(rec2, next)

	require.True(t, ok)
	assert.Equal(t, LevelSuccess, n.Level)
	assert.Equal(t, "post was created successfully", n.Message)

	// Pop must clear the cookie so the notice is shown once.
	cookies := rec2.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestPopIsReadOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	Set(rec, Warning("could not share post"))

	rec2 := httptest.NewRecorder()
	_, ok := Pop(rec2, carry(t, rec))
	require.True(t, ok)

	// The browser applies the deletion, so the next request has no cookie.
	_, ok = Pop(httptest.NewRecorder(), carry(t, rec2))
	assert.False(t, ok)
}

func TestPopWithoutCookie(t *testing.T) {
	_, ok := Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestPopMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%not-base64"})

	_, ok := Pop(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestMessageWithSpecialCharacters(t *testing.T) {
	rec := httptest.NewRecorder()
	Set(rec, Success(`Profile "updated"; café ✓`))

	n, ok := Pop(httptest.NewRecorder(), carry(t, rec))
	require.True(t, ok)
	assert.Equal(t, `Profile "updated"; café ✓`, n.Message)
}
