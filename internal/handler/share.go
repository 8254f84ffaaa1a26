package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/form"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
)

// ShareHandler serves /blog/{postID}/share.
type ShareHandler struct {
	pages
	posts   *service.PostService
	shares  *service.ShareService
	baseURL string
}

// NewShareHandler builds the share handler. baseURL ("https://blog.example")
// prefixes the links in outgoing mail; when it is empty the link is built
// from the request's own scheme and Host.
func NewShareHandler(
	views *view.Renderer,
	accounts *service.AccountService,
	posts *service.PostService,
	shares *service.ShareService,
	baseURL string,
	logger *slog.Logger,
) *ShareHandler {
	return &ShareHandler{
		pages:   pages{views: views, accounts: accounts, logger: logger},
		posts:   posts,
		shares:  shares,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type sharePage struct {
	view.Base
	Post *model.Post
	Form form.Share
}

// HandleShare serves GET and POST /blog/{postID}/share.
//
// STATE MACHINE:
//
//	form shown → validating → sent     (notice "post has been shared", empty form)
//	                        → rejected (warning "could not share post", errors)
//
// Both outcomes re-render this same page; nothing is stored. A mail
// delivery failure is neither of them: it is logged and the request ends
// in a 500.
func (h *ShareHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := sharePage{Base: h.base(w, r, "Share "+post.Title), Post: post}
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "share_post", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	f := form.ShareFromValues(r.PostForm)
	if errs := f.Validate(); !errs.Valid() {
		page.Form = f
		page.Errors = errs
		page.SetNotice(flash.Warning("could not share post"))
		h.render(w, http.StatusOK, "share_post", page)
		return
	}

	sender := ""
	if page.User != nil {
		sender = page.User.Email
	}
	err = h.shares.Share(r.Context(), post, service.ShareInput{
		Title:       f.Title,
		Destination: f.Destination,
		Comment:     f.Comment,
		PostURL:     h.absoluteURL(r, "/blog/"+post.ID+"/"),
		SenderEmail: sender,
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	page.SetNotice(flash.Success("post has been shared"))
	h.render(w, http.StatusOK, "share_post", page)
}

// absoluteURL prefixes path with the configured base URL, or with the
// scheme and Host of the request.
func (h *ShareHandler) absoluteURL(r *http.Request, path string) string {
	if h.baseURL != "" {
		return h.baseURL + path
	}
	scheme := "http"
	if auth.IsSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
