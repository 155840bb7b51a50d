package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photoshare/internal/app"
	"photoshare/internal/model"
	"photoshare/internal/pkg/token"
	"photoshare/internal/transport/http/middleware"
	"photoshare/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email,max=128"`
}

type NewPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=128"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusConflict, response.CodeEmailExists, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.OK(c, gin.H{"user": userView(user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		case errors.Is(err, app.ErrEmailNotConfirmed):
			response.Error(c, http.StatusUnauthorized, response.CodeEmailNotConfirmed, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          userView(user),
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrStaleToken):
			response.Error(c, http.StatusUnauthorized, response.CodeStaleToken, err.Error())
		case errors.Is(err, app.ErrInvalidCredential), isTokenError(err):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid refresh token")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "refresh failed")
		}
		return
	}

	response.OK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "logout failed")
		return
	}
	response.OK(c, gin.H{"result": "logged out"})
}

func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing token")
		return
	}

	user, err := h.authService.ConfirmEmail(raw)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrAlreadyConfirmed):
			response.Error(c, http.StatusConflict, response.CodeAlreadyConfirmed, err.Error())
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case isTokenError(err):
			respondTokenError(c, err)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "confirm failed")
		}
		return
	}

	response.OK(c, gin.H{"user": userView(user)})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reset request failed")
		return
	}
	// Identical answer whether or not the account exists.
	response.OK(c, gin.H{"result": "if the account exists, a reset mail was sent"})
}

// VerifyPasswordReset backs the GET link in the reset mail: it validates the
// token without consuming it, so a client can show the new-password form only
// for tokens that will actually be accepted.
func (h *AuthHandler) VerifyPasswordReset(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing token")
		return
	}

	if err := h.authService.CheckPasswordReset(c.Request.Context(), raw); err != nil {
		if isTokenError(err) {
			respondTokenError(c, err)
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "token check failed")
		return
	}
	response.OK(c, gin.H{"token": raw})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req NewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case isTokenError(err):
			respondTokenError(c, err)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reset failed")
		}
		return
	}

	response.OK(c, gin.H{"user": userView(user)})
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	user, err := h.authService.GetUserByID(actor.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch current user failed")
		return
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}

	response.OK(c, gin.H{"user": userView(user)})
}

func (h *AuthHandler) UpdateAvatar(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open file failed")
		return
	}
	defer file.Close()

	user, err := h.authService.UpdateAvatar(c.Request.Context(), actor.ID, file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
		case errors.Is(err, app.ErrUnsupportedType):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedType, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "avatar update failed")
		}
		return
	}

	response.OK(c, gin.H{"user": userView(user)})
}

func userView(user *model.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"role":      user.Role,
		"avatar":    user.Avatar,
		"confirmed": user.Confirmed,
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrTokenExpired) ||
		errors.Is(err, token.ErrPurposeMismatch)
}

func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		response.Error(c, http.StatusUnauthorized, response.CodeTokenExpired, "token expired")
	default:
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token")
	}
}
