package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"team_chat/internal/domain"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

// TokenValidator - часть AuthService, нужная middleware
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type AuthMiddleware struct {
	authService TokenValidator
	log         logger.Logger
}

func NewAuthMiddleware(authService TokenValidator, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

// bearerToken берет токен из Authorization, а для websocket из ?access_token
func bearerToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func (m *AuthMiddleware) authenticate(c *gin.Context, token string) error {
	user, err := m.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return err
	}

	c.Set("user_id", user.ID)
	c.Set("user_email", user.Email)
	c.Request = c.Request.WithContext(service.WithIdentity(c.Request.Context(), user.ID))
	return nil
}

// OptionalAuth пропускает запрос без токена: запросы деградируют, мутации отклонит сервис
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if ok {
			if err := m.authenticate(c, token); err != nil {
				m.log.Debug("Ignoring invalid token", "error", err, "path", c.FullPath())
			}
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		if err := m.authenticate(c, token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
