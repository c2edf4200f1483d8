package api

import (
	"net/http"

	"github.com/bumothekid/clothing-booth-api-v2/internal/account"
	"github.com/bumothekid/clothing-booth-api-v2/internal/auth"
)

type AuthHandler struct {
	tokens   *auth.TokenService
	accounts *account.Manager
	baseURL  string
}

func NewAuthHandler(tokens *auth.TokenService, accounts *account.Manager, baseURL string) *AuthHandler {
	return &AuthHandler{tokens: tokens, accounts: accounts, baseURL: baseURL}
}

// POST /api/v1/auth/guest
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	pair, err := h.tokens.IssueGuestSession(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

type LoginRequest struct {
	Email    *string `json:"email" validate:"omitempty,max=254"`
	Username *string `json:"username" validate:"omitempty,max=64"`
	Password string  `json:"password" validate:"max=256"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	pair, err := h.tokens.SignIn(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/v1/auth/refresh
//
// The expired access token may come in the body or the Authorization header.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.AccessToken == "" {
		req.AccessToken = accessTokenFromHeader(r.Header.Get("Authorization"))
	}

	pair, err := h.tokens.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req SignOutRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	if err := h.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UpgradeRequest struct {
	Email          *string `json:"email"`
	Username       *string `json:"username"`
	Password       string  `json:"password" validate:"max=256"`
	ProfilePicture *string `json:"profile_picture"`
}

// POST /api/v1/auth/upgrade
func (h *AuthHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	var req UpgradeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	user, err := h.accounts.UpgradeGuest(r.Context(), GetUserID(r), account.UpgradeInput{
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponseFromModel(user, h.baseURL))
}
