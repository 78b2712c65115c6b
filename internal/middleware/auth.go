package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/service"
)

// ErrMissingAuthHeader 表示请求缺少 Authorization 头
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// TokenVerifier 校验 Bearer Token 并返回用户 ID，由 service.AuthService 实现。
type TokenVerifier interface {
	VerifyToken(token string) (uint, error)
}

// Auth 返回一个 Gin 中间件，用于校验 Bearer JWT。
// 校验通过后将 user_id 写入 Gin 上下文，供后续处理程序使用。
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("token verifier cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractBearerToken(c)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: could not extract token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header with Bearer token is required"})
			c.Abort()
			return
		}

		userID, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		logrus.WithField("user_id", userID).Debug("Auth middleware: user authenticated via JWT")
		c.Next()
	}
}

// extractBearerToken 从 Authorization 头提取 Bearer Token
func extractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("malformed Authorization header")
	}
	return parts[1], nil
}

// 确认 AuthService 满足接口
var _ TokenVerifier = (*service.AuthService)(nil)
