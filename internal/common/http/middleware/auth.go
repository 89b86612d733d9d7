package middleware

import (
	"context"
	"strings"

	"codearena/internal/common/auth"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Auth modes.
const (
	AuthOff      = "off"
	AuthOptional = "optional"
	AuthRequired = "required"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

// AuthMiddleware verifies the bearer token and stores the user id in the
// request context.
//
// In optional mode an absent token passes anonymously but a bad one is
// still rejected.
func AuthMiddleware(verifier TokenVerifier, mode string) gin.HandlerFunc {
	mode = strings.ToLower(strings.TrimSpace(mode))
	return func(c *gin.Context) {
		if mode == "" || mode == AuthOff {
			c.Next()
			return
		}
		if verifier == nil {
			response.AbortWithErrorCode(c, appErr.ServiceUnavailable, "auth service unavailable")
			return
		}

		token := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if token == "" && mode == AuthOptional {
			c.Next()
			return
		}
		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		setUserID(c, identity.UserID)
		c.Set("user_role", identity.Role)
		c.Next()
	}
}
