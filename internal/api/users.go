package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bumothekid/clothing-booth-api-v2/internal/account"
)

type UserHandler struct {
	accounts    *account.Manager
	baseURL     string
	uploadLimit int64
}

func NewUserHandler(accounts *account.Manager, baseURL string, profileMaxBytes int64) *UserHandler {
	return &UserHandler{
		accounts:    accounts,
		baseURL:     baseURL,
		uploadLimit: profileMaxBytes + multipartOverhead,
	}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetMe(r.Context(), GetUserID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponseFromModel(user, h.baseURL))
}

// GET /api/v1/users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUserResponseFromModel(user, h.baseURL))
}

type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

// PUT /api/v1/users/me/username
func (h *UserHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	var req UpdateUsernameRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	userID := GetUserID(r)
	if err := h.accounts.UpdateUsername(r.Context(), userID, req.Username); err != nil {
		writeAppError(w, r, err)
		return
	}

	user, err := h.accounts.GetMe(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponseFromModel(user, h.baseURL))
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"max=256"`
}

// DELETE /api/v1/users/me
//
// Guests may send no body at all.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r.Body, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	if err := h.accounts.DeleteAccount(r.Context(), GetUserID(r), req.Password); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ProfilePictureResponse struct {
	ImageID string `json:"image_id"`
	URL     string `json:"profile_picture_url"`
}

type DefaultPicturesResponse struct {
	Names []string `json:"names"`
	URLs  []string `json:"urls"`
}

// GET /api/v1/users/profile-pictures
func (h *UserHandler) ListDefaultProfilePictures(w http.ResponseWriter, r *http.Request) {
	names := h.accounts.DefaultProfilePictures()
	urls := make([]string, len(names))
	for i, name := range names {
		urls[i] = profilePictureURL(h.baseURL, account.DefaultPictureID(name))
	}
	writeJSON(w, http.StatusOK, DefaultPicturesResponse{Names: names, URLs: urls})
}

// PUT /api/v1/users/me/profile-picture
//
// A multipart "file" uploads a custom picture; ?named=<default> selects one
// of the defaults instead.
func (h *UserHandler) SetProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r)

	if named := strings.TrimSpace(r.URL.Query().Get("named")); named != "" {
		id, err := h.accounts.SetDefaultProfilePicture(r.Context(), userID, named)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ProfilePictureResponse{ImageID: id, URL: profilePictureURL(h.baseURL, id)})
		return
	}

	file, fileHeader, cleanup, ok := readSingleFileUpload(w, r, h.uploadLimit)
	if !ok {
		return
	}
	defer cleanup()
	defer file.Close()

	id, err := h.accounts.UploadProfilePicture(r.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfilePictureResponse{ImageID: id, URL: profilePictureURL(h.baseURL, id)})
}

// DELETE /api/v1/users/me/profile-picture
func (h *UserHandler) RemoveProfilePicture(w http.ResponseWriter, r *http.Request) {
	id, err := h.accounts.RemoveProfilePicture(r.Context(), GetUserID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfilePictureResponse{ImageID: id, URL: profilePictureURL(h.baseURL, id)})
}
