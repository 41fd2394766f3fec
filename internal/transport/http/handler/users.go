package handler

import (
	"errors"
	"net/http"

	"github.com/go-api-accounts/internal/application/account"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/transport/http/middleware"
)

const maxAvatarSize = 5 << 20

// UserHandler handles endpoints scoped to the authenticated account.
type UserHandler struct {
	accounts account.Service
}

func NewUserHandler(accounts account.Service) *UserHandler { return &UserHandler{accounts: accounts} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, codeInvalidAuth, msgNoBearer, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile retrieved", toProfile(u, h.accounts.AvatarURL(r.Context(), u)))
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, codeInvalidAuth, msgNoBearer, nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+1<<20)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Upload a valid image"
		if errors.As(err, &tooLarge) {
			msg = "5MB max"
		}
		writeServiceError(w, &domain.FieldError{Field: "avatar", Message: msg, Err: domain.ErrBadRequest})
		return
	}
	f, header, err := r.FormFile("avatar")
	if err != nil {
		writeServiceError(w, &domain.FieldError{Field: "avatar", Message: "This field is required", Err: domain.ErrBadRequest})
		return
	}
	defer f.Close()

	u, err = h.accounts.UploadAvatar(r.Context(), u, domain.AvatarUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Avatar updated", toProfile(u, h.accounts.AvatarURL(r.Context(), u)))
}
