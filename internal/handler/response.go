// Package handler contains the HTTP handlers for the blog's pages.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, form values, uploaded files)
//  2. Validate the form and call the service layer
//  3. Render a page, or set a flash notice and redirect
//
// Handlers hold no business rules. Uniqueness, ownership and password
// checks live in the service package; handlers only translate its errors
// into pages and status codes.
package handler

// RESPONSE HELPERS:
// Every page handler ends in one of a few ways: render a template, redirect
// after a successful POST, or show an error page. These helpers keep that
// consistent across handlers.
//
// ERROR MAPPING:
//
//	apperror.ErrNotFound        → 404 page
//	apperror.ErrForbidden       → 403, plain text
//	apperror.ErrUnauthenticated → 303 to the login page
//	anything else               → logged, 500 page (no internals shown)

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
)

// LoginPath is where anonymous visitors are sent for login-only pages.
const LoginPath = "/accounts/login"

// pages is the rendering toolkit shared by all page handlers.
type pages struct {
	views    *view.Renderer
	accounts *service.AccountService
	logger   *slog.Logger
}

// base builds the data every page needs: the session user (for the nav
// bar) and the pending flash notice, which is consumed here.
func (p *pages) base(w http.ResponseWriter, r *http.Request, title string) view.Base {
	b := view.Base{Title: title, Path: r.URL.RequestURI()}
	if n, ok := flash.Pop(w, r); ok {
		b.Notice = &n
	}
	b.User = p.sessionUser(r)
	return b
}

// sessionUser returns the logged-in user, or nil. A token for a user that
// no longer exists is treated as anonymous.
func (p *pages) sessionUser(r *http.Request) *model.User {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := p.accounts.GetUser(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			p.logger.ErrorContext(r.Context(), "loading session user",
				slog.String("userID", id),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return user
}

func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	p.views.Render(w, status, name, data)
}

func (p *pages) notFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusNotFound, "404", p.base(w, r, "Page not found"))
}

// serverError logs err with the request ID and shows the generic 500 page.
func (p *pages) serverError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.render(w, http.StatusInternalServerError, "500", view.Base{Title: "Server error"})
}

// forbidden writes a bare plain-text 403 with no page around it.
func forbidden(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusForbidden)
}

// handleError maps a service error that isn't a form error.
func (p *pages) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		p.notFound(w, r)
	case errors.Is(err, apperror.ErrForbidden) && errors.As(err, &appErr):
		forbidden(w, appErr.Message)
	case errors.Is(err, apperror.ErrUnauthenticated):
		redirectToLogin(w, r)
	default:
		p.serverError(w, r, err)
	}
}

// redirect answers a POST with 303 See Other, so a browser refresh
// re-GETs the target instead of re-submitting the form.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, LoginPath+"?"+url.Values{"next": {r.URL.RequestURI()}}.Encode())
}

// currentUserID is the session user's ID, or "" for anonymous requests.
func currentUserID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// HandleNotFound renders the 404 page for paths no route matched.
func (p *pages) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	p.notFound(w, r)
}
