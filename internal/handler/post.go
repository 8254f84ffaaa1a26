package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/form"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
)

// PostHandler serves /blog/: listing, detail, comments and the
// owner-only create/update/delete pages.
type PostHandler struct {
	pages
	posts *service.PostService
}

func NewPostHandler(views *view.Renderer, accounts *service.AccountService, posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		pages: pages{views: views, accounts: accounts, logger: logger},
		posts: posts,
	}
}

// =========================================================================
// LISTING
// =========================================================================

type postListPage struct {
	view.Base
	Posts []model.Post
	Page  *model.Page[model.Post] // nil for the unpaginated tag listing
	Tag   *model.Tag
	Tags  []model.Tag
}

// HandleList serves GET /blog/?page=N. ?page=last jumps to the end; any
// other non-numeric or out-of-range page is a 404.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.posts.List(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	tags, err := h.posts.Tags(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, http.StatusOK, "post_list", postListPage{
		Base:  h.base(w, r, "Posts"),
		Posts: page.Items,
		Page:  &page,
		Tags:  tags,
	})
}

// HandleListByTag serves GET /blog/tag/{tagID}/.
func (h *PostHandler) HandleListByTag(w http.ResponseWriter, r *http.Request) {
	tag, posts, err := h.posts.ListByTag(r.Context(), chi.URLParam(r, "tagID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	tags, err := h.posts.Tags(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, http.StatusOK, "post_list", postListPage{
		Base:  h.base(w, r, "Posts tagged "+tag.Name),
		Posts: posts,
		Tag:   tag,
		Tags:  tags,
	})
}

// =========================================================================
// DETAIL + COMMENTS
// =========================================================================

type postDetailPage struct {
	view.Base
	Post     *model.Post
	Comments []model.Comment
	Form     form.Comment
	CanEdit  bool
}

func (h *PostHandler) detailPage(w http.ResponseWriter, r *http.Request, d *service.Detail) postDetailPage {
	return postDetailPage{
		Base:     h.base(w, r, d.Post.Title),
		Post:     d.Post,
		Comments: d.Comments,
		CanEdit:  d.Post.IsOwnedBy(currentUserID(r)),
	}
}

// HandleDetail serves GET /blog/{postID}/.
func (h *PostHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.posts.Detail(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.render(w, http.StatusOK, "post_detail", h.detailPage(w, r, d))
}

// HandleComment serves POST /blog/{postID}/comment. Anyone may comment.
func (h *PostHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	d, err := h.posts.Detail(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	f := form.CommentFromValues(r.PostForm)
	errs := f.Validate()
	if errs.Valid() {
		_, err := h.posts.AddComment(r.Context(), d.Post.ID, service.CommentInput{
			Name:  f.Name,
			Email: f.Email,
			Body:  f.Body,
		})
		if err == nil {
			flash.Set(w, flash.Success("Your comment has been added."))
			redirect(w, r, "/blog/"+d.Post.ID+"/")
			return
		}
		if !errs.AddError(err) {
			h.handleError(w, r, err)
			return
		}
	}

	page := h.detailPage(w, r, d)
	page.Form = f
	page.Errors = errs
	page.SetNotice(flash.Warning("Your comment could not be added."))
	h.render(w, http.StatusOK, "post_detail", page)
}

// =========================================================================
// CREATE / UPDATE / DELETE
// =========================================================================

type postFormPage struct {
	view.Base
	Form   form.Post
	Post   *model.Post // nil when creating
	Action string
}

// HandleCreate serves GET and POST /blog/create. Login required.
// The owner is always the session user, whatever the form says.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	page := postFormPage{Base: h.base(w, r, "New post"), Action: "/blog/create"}
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "post_form", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page.Form = form.PostFromValues(r.PostForm)
	page.Errors = page.Form.Validate()

	if page.Errors.Valid() {
		post, err := h.posts.Create(r.Context(), currentUserID(r), postInput(page.Form))
		if err == nil {
			flash.Set(w, flash.Success("post was created successfully"))
			redirect(w, r, "/blog/"+post.ID+"/")
			return
		}
		if !page.Errors.AddError(err) {
			h.handleError(w, r, err)
			return
		}
	}
	h.render(w, http.StatusOK, "post_form", page)
}

// HandleUpdate serves GET and POST /blog/{postID}/update. Login required,
// and only the owner gets past the ownership check; anyone else gets a
// plain 403 and the post is left as it was.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.AuthorizeOwner(r.Context(), chi.URLParam(r, "postID"), currentUserID(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := postFormPage{
		Base:   h.base(w, r, "Edit post"),
		Post:   post,
		Action: "/blog/" + post.ID + "/update",
	}
	if r.Method != http.MethodPost {
		page.Form = form.Post{Title: post.Title, Body: post.Body, Tags: joinTags(post.TagNames())}
		h.render(w, http.StatusOK, "post_form", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page.Form = form.PostFromValues(r.PostForm)
	page.Errors = page.Form.Validate()

	if page.Errors.Valid() {
		_, err := h.posts.Update(r.Context(), post.ID, currentUserID(r), postInput(page.Form))
		if err == nil {
			flash.Set(w, flash.Success("post was updated successfully"))
			redirect(w, r, "/blog/"+post.ID+"/")
			return
		}
		if !page.Errors.AddError(err) {
			h.handleError(w, r, err)
			return
		}
	}
	h.render(w, http.StatusOK, "post_form", page)
}

type postDeletePage struct {
	view.Base
	Post *model.Post
}

// HandleDelete serves GET (confirmation page) and POST /blog/{postID}/delete.
// The same OwnerID check as update applies to both.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	userID := currentUserID(r)

	if r.Method != http.MethodPost {
		post, err := h.posts.AuthorizeOwner(r.Context(), postID, userID)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		h.render(w, http.StatusOK, "post_confirm_delete", postDeletePage{
			Base: h.base(w, r, "Delete post"),
			Post: post,
		})
		return
	}

	if err := h.posts.Delete(r.Context(), postID, userID); err != nil {
		h.handleError(w, r, err)
		return
	}
	flash.Set(w, flash.Success("post was deleted successfully"))
	redirect(w, r, "/blog/")
}

func postInput(f form.Post) service.PostInput {
	return service.PostInput{Title: f.Title, Body: f.Body, Tags: f.TagNames}
}

// joinTags renders tag names back into the form's input syntax. Names with
// spaces force the comma form so they survive a round trip through
// form.ParseTags.
func joinTags(names []string) string {
	sep := " "
	for _, n := range names {
		if strings.ContainsAny(n, " \t") {
			sep = ", "
			break
		}
	}
	return strings.Join(names, sep)
}
