package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/mailer"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/storage"
	"tarely-backend/pkg/utils"
)

const maxAvatarBytes = 5 << 20

// AuthHandler handles registration, login, token refresh and the profile
// endpoints.
type AuthHandler struct {
	config  *config.Config
	db      database.Store
	jwt     *utils.JWTService
	mail    mailer.Mailer
	objects storage.ObjectStore
}

func NewAuthHandler(cfg *config.Config, db database.Store, mail mailer.Mailer, objects storage.ObjectStore) *AuthHandler {
	return &AuthHandler{config: cfg, db: db, jwt: utils.NewJWTService(cfg.JWTSecret), mail: mail, objects: objects}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") { utils.WriteValidationErrorResponse(w, "A valid email is required"); return }
	if len(req.Password) < 8 { utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters"); return }

	hash, err := utils.HashPassword(req.Password)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create account"); return }

	user := &models.User{Email: email, Password: hash, Name: strings.TrimSpace(req.Name)}
	if err := h.db.CreateUser(user); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "Email already registered"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to create account")
		return
	}

	if err := h.mail.SendWelcome(r.Context(), user.Email, user.Name); err != nil {
		logging.Get().WithError(err).WithField("email", user.Email).Warn("Failed to send welcome email")
	}

	access, refresh, expiresIn, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to issue tokens"); return }

	utils.WriteCreatedResponse(w, models.UserLoginResponse{
		User: *user, AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	user, err := h.db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !utils.CheckPassword(user.Password, req.Password) {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	access, refresh, expiresIn, err := h.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to issue tokens"); return }

	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User: *user, AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn,
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.RefreshToken == "" { utils.WriteBadRequestResponse(w, "refreshToken required"); return }

	access, expiresIn, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil { utils.WriteUnauthorizedResponse(w, "Invalid refresh token"); return }

	utils.WriteSuccessResponse(w, map[string]interface{}{"accessToken": access, "expiresIn": expiresIn})
}

// POST /api/auth/logout
// Tokens are stateless, so logout is a client-side discard; the endpoint
// exists so clients have a uniform call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]string{"message": "Logged out"})
}

// GET /api/user/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	full, err := h.db.GetUserByID(user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, "User not found"); return }
	utils.WriteSuccessResponse(w, full)
}

// PUT /api/user/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Name   *string `json:"name"`
		Avatar *string `json:"avatar"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	full, err := h.db.GetUserByID(user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, "User not found"); return }
	if req.Name != nil { full.Name = strings.TrimSpace(*req.Name) }
	if req.Avatar != nil { full.Avatar = *req.Avatar }

	if err := h.db.UpdateUser(full); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update profile"); return }
	utils.WriteSuccessResponse(w, full)
}

// POST /api/user/avatar
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil { utils.WriteValidationErrorResponse(w, "Avatar must be a multipart upload of at most 5MB"); return }
	file, header, err := r.FormFile("file")
	if err != nil { utils.WriteBadRequestResponse(w, "file field required"); return }
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to read upload"); return }
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") { utils.WriteValidationErrorResponse(w, "Avatar must be an image"); return }

	full, err := h.db.GetUserByID(user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, "User not found"); return }

	path := fmt.Sprintf("avatars/%s", user.ID)
	if err := h.objects.Upload(r.Context(), path, contentType, data); err != nil {
		logging.Get().WithError(err).WithField("user", user.ID).Error("Avatar upload failed")
		utils.WriteUpstreamErrorResponse(w, "Failed to store avatar")
		return
	}

	full.Avatar = path
	full.AvatarVersion++
	if err := h.db.UpdateUser(full); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update profile"); return }

	url, err := h.objects.SignedURL(r.Context(), path, 24*time.Hour)
	if err != nil {
		logging.Get().WithError(err).WithField("user", user.ID).Warn("Failed to sign avatar URL")
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"user": full, "avatarUrl": url})
}

// POST /api/user/onboarding
func (h *AuthHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	full, err := h.db.GetUserByID(user.ID)
	if err != nil { utils.WriteNotFoundResponse(w, "User not found"); return }
	full.HasSeenOnboarding = true
	if err := h.db.UpdateUser(full); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update profile"); return }
	utils.WriteSuccessResponse(w, full)
}

// DELETE /api/user/account
// Owned workspaces fan out through the store; memberships go with the user.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	workspaces, err := h.db.ListWorkspacesForUser(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete account"); return }
	for _, ws := range workspaces {
		if ws.OwnerID != user.ID { continue }
		if err := h.db.DeleteWorkspace(ws.ID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete account"); return }
	}

	if err := h.db.DeleteUser(user.ID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete account"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Account deleted"})
}
