package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/mail"
	"github.com/sakif/inkwell/internal/media"
	"github.com/sakif/inkwell/internal/model"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
	"github.com/sakif/inkwell/web"
)

// =========================================================================
// HARNESS
// =========================================================================

// recordingMailer keeps every message instead of sending it.
type recordingMailer struct {
	sent    []mail.Message
	sendErr error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

// harness wires the real services and handlers to an in-memory database.
type harness struct {
	db       *sqliteRepo.DB
	accounts *service.AccountService
	posts    *service.PostService
	mailer   *recordingMailer
	mediaDir string
	views    *view.Renderer
	shares   *service.ShareService
	logger   *slog.Logger

	account *handler.AccountHandler
	post    *handler.PostHandler
	share   *handler.ShareHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	views, err := view.New(web.Templates(), logger)
	require.NoError(t, err)

	h := &harness{
		db:       db,
		mailer:   &recordingMailer{},
		mediaDir: t.TempDir(),
		views:    views,
		logger:   logger,
	}
	h.accounts = service.NewAccountService(db, db, db, tokens, auth.NewPasswordServiceForTest(4), logger)
	h.posts = service.NewPostService(db, db, db, logger)
	h.shares = service.NewShareService(h.mailer, "noreply@localhost", logger)

	h.account = handler.NewAccountHandler(views, h.accounts, media.NewStore(h.mediaDir), logger)
	h.post = handler.NewPostHandler(views, h.accounts, h.posts, logger)
	h.share = handler.NewShareHandler(views, h.accounts, h.posts, h.shares, "", logger)
	return h
}

// shareHandlerAt is h.share with BASE_URL set to baseURL.
func (h *harness) shareHandlerAt(baseURL string) *handler.ShareHandler {
	return handler.NewShareHandler(h.views, h.accounts, h.posts, h.shares, baseURL, h.logger)
}

func (h *harness) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	user, err := h.accounts.Register(context.Background(), service.RegisterInput{
		Username:  username,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		Email:     username + "@example.com",
		Password:  "s3cret-pass",
	})
	require.NoError(t, err)
	return user
}

func (h *harness) createPost(t *testing.T, ownerID, title string, tags ...string) *model.Post {
	t.Helper()
	post, err := h.posts.Create(context.Background(), ownerID, service.PostInput{
		Title: title,
		Body:  "Body of " + title,
		Tags:  tags,
	})
	require.NoError(t, err)
	return post
}

// =========================================================================
// REQUEST BUILDERS
// =========================================================================

func get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// multipartFile is one file part of a multipart request.
type multipartFile struct {
	field, name string
	content     []byte
}

func postMultipart(t *testing.T, target string, values url.Values, file *multipartFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// asUser puts a logged-in user on the request, the way auth.Authenticate
// does for a valid session cookie.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

// withParams sets chi URL params, which the router normally fills in.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// notice reads the flash notice a response set for the next request.
func notice(t *testing.T, rr *httptest.ResponseRecorder) flash.Notice {
	t.Helper()
	req := get("/")
	for _, c := range rr.Result().Cookies() {
		// A response may first expire the old notice, then set a new one.
		if c.Name == "flash" && c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	n, ok := flash.Pop(httptest.NewRecorder(), req)
	require.True(t, ok, "response set no flash notice")
	return n
}

// pngBytes is enough of a PNG for http.DetectContentType.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
