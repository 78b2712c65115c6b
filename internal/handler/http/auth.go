package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/service"
)

// AuthHandler 封装了与用户认证相关的 HTTP 处理逻辑
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService}
}

// RegisterRequest 定义注册请求体
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 处理 POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	newUser, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		logCtx := logrus.WithFields(logrus.Fields{"username": req.Username, "email": req.Email})
		if errors.Is(err, service.ErrRegistrationFailed) {
			logCtx.WithError(err).Warn("Handler.Register: registration failed (likely duplicate)")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logCtx.WithError(err).Error("Handler.Register: internal error during registration")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed due to server error"})
		}
		return
	}

	logrus.WithField("user_id", newUser.ID).Info("Handler.Register: user registered successfully")
	c.JSON(http.StatusOK, gin.H{
		"id":       newUser.ID,
		"username": newUser.Username,
		"email":    newUser.Email,
	})
}

// LoginRequest 定义登录请求体（使用邮箱登录）
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 处理 POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: email and password required"})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logCtx := logrus.WithField("email", req.Email)
		if errors.Is(err, service.ErrAuthenticationFailed) {
			logCtx.WithError(err).Warn("Handler.Login: authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		} else {
			logCtx.WithError(err).Error("Handler.Login: internal error during login")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed due to server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user_id":      user.ID,
		"username":     user.Username,
	})
}
