package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/repository"
	apperrors "github.com/yferras/clinic-api/pkg/errors"
	"github.com/yferras/clinic-api/pkg/httputil"
)

const currentUserKey = "currentUser"

type AuthMiddleware struct {
	secret   []byte
	userRepo repository.UserRepository
}

func NewAuthMiddleware(secret string, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		secret:   []byte(secret),
		userRepo: userRepo,
	}
}

// Authenticate verifies the JWT bearer token and loads the requesting
// user into the context. Token issuance lives in the auth service; only
// validation happens here.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid authorization format"))
			c.Abort()
			return
		}

		userID, err := m.parseToken(parts[1])
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		user, err := m.userRepo.Get(c.Request.Context(), userID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("unknown user"))
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func (m *AuthMiddleware) parseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("missing subject claim: %w", err)
	}
	return uuid.Parse(sub)
}

// CurrentUser returns the authenticated user set by Authenticate, or
// nil when the request skipped authentication.
func CurrentUser(c *gin.Context) *model.User {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}
