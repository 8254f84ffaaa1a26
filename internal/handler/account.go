package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/flash"
	"github.com/sakif/inkwell/internal/form"
	"github.com/sakif/inkwell/internal/media"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
	"github.com/sakif/inkwell/internal/view"
)

// AvatarDir is the media subdirectory avatars are stored in.
const AvatarDir = "avatars"

// AccountHandler serves /accounts/: registration, login, the dashboard and
// profile editing.
type AccountHandler struct {
	pages
	media *media.Store
	now   func() time.Time
}

func NewAccountHandler(views *view.Renderer, accounts *service.AccountService, store *media.Store, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		pages: pages{views: views, accounts: accounts, logger: logger},
		media: store,
		now:   time.Now,
	}
}

// =========================================================================
// REGISTRATION
// =========================================================================

type registerPage struct {
	view.Base
	Form form.Registration
}

type registerDonePage struct {
	view.Base
	NewUser *model.User
}

// HandleRegister serves GET and POST /accounts/register.
//
// Failed submissions re-render the form with status 200 and field errors.
// The password fields are never echoed back.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	page := registerPage{Base: h.base(w, r, "Create an account")}
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "register", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page.Form = form.RegistrationFromValues(r.PostForm)
	page.Errors = page.Form.Validate()

	if page.Errors.Valid() {
		user, err := h.accounts.Register(r.Context(), service.RegisterInput{
			Username:  page.Form.Username,
			FirstName: page.Form.FirstName,
			Email:     page.Form.Email,
			Password:  page.Form.Password,
		})
		if err == nil {
			h.render(w, http.StatusOK, "register_done", registerDonePage{
				Base:    page.Base,
				NewUser: user,
			})
			return
		}
		if !page.Errors.AddError(err) {
			h.serverError(w, r, err)
			return
		}
	}

	page.Form.Password, page.Form.Password2 = "", ""
	h.render(w, http.StatusOK, "register", page)
}

// =========================================================================
// LOGIN / LOGOUT
// =========================================================================

type loginPage struct {
	view.Base
	Form form.Login
}

// HandleLogin serves GET and POST /accounts/login. On success it sets the
// session cookie and redirects to ?next= (local paths only) or the
// dashboard.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	page := loginPage{Base: h.base(w, r, "Log in")}
	page.Path = "" // no "?next=" back to the login page itself
	if r.Method != http.MethodPost {
		page.Form.Next = form.SafeNext(r.URL.Query().Get("next"))
		h.render(w, http.StatusOK, "login", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page.Form = form.LoginFromValues(r.PostForm)
	page.Form.Next = form.SafeNext(page.Form.Next)
	page.Errors = page.Form.Validate()

	if page.Errors.Valid() {
		result, err := h.accounts.Authenticate(r.Context(), page.Form.Username, page.Form.Password)
		if err == nil {
			auth.SetSessionCookie(w, r, result.Token, h.accounts.SessionTTL())
			target := page.Form.Next
			if target == "" {
				target = "/accounts/"
			}
			redirect(w, r, target)
			return
		}
		if !page.Errors.AddError(err) {
			h.serverError(w, r, err)
			return
		}
	}

	page.Form.Password = ""
	h.render(w, http.StatusOK, "login", page)
}

// HandleLogout serves POST /accounts/logout.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, r)
	flash.Set(w, flash.Success("You have been logged out."))
	redirect(w, r, LoginPath)
}

// =========================================================================
// DASHBOARD
// =========================================================================

type dashboardPage struct {
	view.Base
	Account     *service.Account
	RecentPosts []model.Post
}

// HandleDashboard serves GET /accounts/. Login required.
func (h *AccountHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.accounts.Dashboard(r.Context(), currentUserID(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.render(w, http.StatusOK, "dashboard", dashboardPage{
		Base:        h.base(w, r, "Dashboard"),
		Account:     &dash.Account,
		RecentPosts: dash.RecentPosts,
	})
}

// =========================================================================
// PROFILE EDIT
// =========================================================================

type editPage struct {
	view.Base
	UserForm    form.UserEdit
	ProfileForm form.ProfileEdit
	Avatar      string // current avatar, relative media path
}

// HandleEdit serves GET and POST /accounts/edit. Login required.
//
// Both forms (user fields and profile fields) must validate before anything
// is saved, and the two records are then written in one transaction. A
// failed submission leaves the stored values untouched.
func (h *AccountHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	acct, err := h.accounts.GetAccount(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := editPage{Base: h.base(w, r, "Edit your account"), Avatar: acct.Profile.Avatar}
	page.UserForm, page.ProfileForm = storedForms(acct)
	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, "edit", page)
		return
	}

	// The body cap leaves room for the text fields next to the avatar.
	r.Body = http.MaxBytesReader(w, r.Body, form.MaxAvatarBytes+1<<20)
	if err := r.ParseMultipartForm(form.MaxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if !errors.As(err, &tooBig) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		// The body was cut off, so the submitted fields are gone too. The
		// forms keep the stored values.
		page.Errors = form.Errors{"avatar": {"Avatar must be 2 MB or smaller."}}
		h.rejectEdit(w, page)
		return
	}
	if r.MultipartForm == nil {
		// Plain urlencoded submission (no file input).
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	page.UserForm = form.UserEditFromValues(r.PostForm)
	page.ProfileForm = form.ProfileEditFromValues(r.PostForm)
	page.Errors = page.UserForm.Validate()
	page.Errors.Merge(page.ProfileForm.Validate(h.now()))

	newAvatar := ""
	if page.Errors.Valid() {
		newAvatar, err = h.saveAvatar(r, page.Errors)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
	}

	if page.Errors.Valid() {
		replaced, err := h.accounts.EditProfile(r.Context(), userID, service.ProfileInput{
			FirstName:   page.UserForm.FirstName,
			LastName:    page.UserForm.LastName,
			Email:       page.UserForm.Email,
			Bio:         page.ProfileForm.Bio,
			DateOfBirth: page.ProfileForm.Birth,
			Avatar:      newAvatar,
		})
		if err == nil {
			h.removeAvatar(r, replaced)
			flash.Set(w, flash.Success("Profile updated successfully"))
			redirect(w, r, "/accounts/")
			return
		}
		h.removeAvatar(r, newAvatar)
		if !page.Errors.AddError(err) {
			h.serverError(w, r, err)
			return
		}
	}

	h.rejectEdit(w, page)
}

// storedForms fills the edit forms with the account's current values.
func storedForms(acct *service.Account) (form.UserEdit, form.ProfileEdit) {
	u := form.UserEdit{
		FirstName: acct.User.FirstName,
		LastName:  acct.User.LastName,
		Email:     acct.User.Email,
	}
	p := form.ProfileEdit{Bio: acct.Profile.Bio}
	if acct.Profile.DateOfBirth != nil {
		p.DateOfBirth = acct.Profile.DateOfBirth.Format(form.DateLayout)
	}
	return u, p
}

func (h *AccountHandler) rejectEdit(w http.ResponseWriter, page editPage) {
	page.SetNotice(flash.Warning("Error updating your profile"))
	h.render(w, http.StatusOK, "edit", page)
}

// saveAvatar stores the uploaded avatar, if any, and returns its relative
// path. Problems with the file itself are added to errs; only storage
// failures are returned as errors.
func (h *AccountHandler) saveAvatar(r *http.Request, errs form.Errors) (string, error) {
	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		errs.Add("avatar", "The avatar upload failed. Please try again.")
		return "", nil
	}
	defer file.Close()

	contentType, err := sniff(file)
	if err != nil {
		errs.Add("avatar", "The avatar upload failed. Please try again.")
		return "", nil
	}
	ext, fileErrs := form.CheckAvatar(contentType, header.Size)
	if !fileErrs.Valid() {
		errs.Merge(fileErrs)
		return "", nil
	}

	return h.media.Save(AvatarDir, ext, file, form.MaxAvatarBytes)
}

// sniff detects the content type from the first 512 bytes, ignoring the
// type the browser claimed, then rewinds the file.
func sniff(file multipart.File) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func (h *AccountHandler) removeAvatar(r *http.Request, rel string) {
	if err := h.media.Remove(rel); err != nil {
		h.logger.WarnContext(r.Context(), "removing avatar",
			slog.String("path", rel),
			slog.String("error", err.Error()),
		)
	}
}
