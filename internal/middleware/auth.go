package middleware

import (
	"errors"
	"net/http"
	"strings"

	"bookkeeping/internal/auth"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	claimsKey   = "claims"
	tokenCookie = "access_token"
)

// bearerToken reads the token from the Authorization header, falling back to the access_token cookie
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if token, err := c.Cookie(tokenCookie); err == nil {
		return token
	}
	return ""
}

// Authenticate rejects requests without a valid, unrevoked session token
func Authenticate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Access token required"))
			return
		}

		claims, err := tokens.Verify(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrExpiredToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Token expired"))
			return
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Invalid token"))
			return
		default:
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("Internal server error"))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is presented and never rejects
func OptionalAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.Verify(c.Request.Context(), token); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// Claims returns the verified token claims, or nil for anonymous requests
func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// UserID returns the authenticated user's id, or "" for anonymous requests
func UserID(c *gin.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
