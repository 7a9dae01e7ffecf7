package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/services"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

func (s *HTTPServer) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, "OK", nil)
}

// handleRegister accepts a multipart form: fullName, email, username,
// password plus an avatar file and an optional coverImage file.
func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, common.ErrorValidation)
		return
	}

	avatarPath, err := s.stageUploadedFile(r, "avatar")
	if err != nil {
		s.logger.Error(r.Context(), "staging avatar failed", "error", err.Error())
		respondError(w, common.ErrorInternal)
		return
	}
	coverPath, err := s.stageUploadedFile(r, "coverImage")
	if err != nil {
		s.removeStaged(r, avatarPath)
		s.logger.Error(r.Context(), "staging cover image failed", "error", err.Error())
		respondError(w, common.ErrorInternal)
		return
	}

	account, err := s.registration.Register(r.Context(), services.RegisterInput{
		FullName:       r.FormValue("fullName"),
		Email:          r.FormValue("email"),
		Username:       r.FormValue("username"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		// consumed staged files are already gone; this catches the ones a
		// pre-upload failure left behind
		s.removeStaged(r, avatarPath, coverPath)
		respondError(w, err)
		return
	}

	respondData(w, http.StatusCreated, "user registered successfully", account)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, common.ErrorValidation)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	account, pair, err := s.sessions.Login(r.Context(), identifier, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	s.setSessionCookies(w, pair)
	respondData(w, http.StatusOK, "login successful", map[string]any{
		"user":         account,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// handleRefresh accepts the refresh token from the cookie or the request
// body and rotates it for a fresh pair.
func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		respondError(w, common.ErrorUnauthorized)
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), presented)
	if err != nil {
		respondError(w, err)
		return
	}

	s.setSessionCookies(w, pair)
	respondData(w, http.StatusOK, "access token refreshed", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), accountIDFromContext(r.Context())); err != nil {
		respondError(w, err)
		return
	}

	s.clearSessionCookies(w)
	respondData(w, http.StatusOK, "user logged out successfully", nil)
}

func (s *HTTPServer) handleCurrentAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.GetCurrent(r.Context(), accountIDFromContext(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, "current user details", account)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, common.ErrorValidation)
		return
	}

	id := accountIDFromContext(r.Context())
	if err := s.accounts.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, "password changed successfully", nil)
}

type updateDetailsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (s *HTTPServer) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req updateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, common.ErrorValidation)
		return
	}

	id := accountIDFromContext(r.Context())
	account, err := s.accounts.UpdateDetails(r.Context(), id, req.FullName, req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, "account details updated", account)
}

func (s *HTTPServer) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	s.handleAssetUpdate(w, r, "avatar", s.accounts.UpdateAvatar, "avatar updated successfully")
}

func (s *HTTPServer) handleUpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	s.handleAssetUpdate(w, r, "coverImage", s.accounts.UpdateCoverImage, "cover image updated successfully")
}

// handleAssetUpdate stages the single file field and hands its path to the
// account service. A request without the field is a validation error.
func (s *HTTPServer) handleAssetUpdate(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, id, path string) (*models.PublicAccount, error), message string) {

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, common.ErrorValidation)
		return
	}

	path, err := s.stageUploadedFile(r, field)
	if err != nil {
		s.logger.Error(r.Context(), "staging upload failed", "field", field, "error", err.Error())
		respondError(w, common.ErrorInternal)
		return
	}
	if path == "" {
		respondError(w, common.ErrorValidation)
		return
	}

	account, err := update(r.Context(), accountIDFromContext(r.Context()), path)
	if err != nil {
		s.removeStaged(r, path)
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, message, account)
}

// setSessionCookies mirrors the token pair into httpOnly cookies so browser
// clients need not handle the body copies.
func (s *HTTPServer) setSessionCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *HTTPServer) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
