package jwt

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
)

const (
	// ContextKeyClientID holds the authenticated client id.
	ContextKeyClientID = "client_id"
	// ContextKeyClaims holds the validated *Claims.
	ContextKeyClaims = "jwt_claims"
)

// JWTMiddleware rejects requests without a valid bearer token.
func JWTMiddleware(jwtService *JWTService, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			logger.Warn("Invalid authorization header format",
				logging.NewField("header_length", len(authHeader)),
				logging.NewField("ip", c.ClientIP()),
			)
			abortUnauthorized(c, "Invalid authorization header format. Expected: Bearer <token>")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			abortUnauthorized(c, "Token is required")
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				logging.NewField("error", err),
				logging.NewField("ip", c.ClientIP()),
				logging.NewField("path", c.Request.URL.Path),
				logging.NewField("method", c.Request.Method),
			)

			msg := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "Token has expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		c.Set(ContextKeyClientID, claims.ClientID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClientID extracts the authenticated client id from context.
func GetClientID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyClientID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetClaims extracts full JWT claims from context.
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	appErr := apperrors.NewUnauthorizedError(msg)
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
