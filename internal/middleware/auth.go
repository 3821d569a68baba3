package middleware

import (
	"strings"

	"royalty-split-manager/internal/auth"
	"royalty-split-manager/internal/errors"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware verifies the externally minted JWT and requires the
// admin role. User/session management itself lives in the auth service.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		parsedToken, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		userID, role, err := auth.GetDataFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		if role != "admin" {
			ctx.Error(errors.Forbidden("Admin role required!", nil))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", userID)
		ctx.Next()
	}
}

// InternalAuthMiddleware gates server-to-server routes (the automated
// contract-generation trigger) behind a shared secret.
func InternalAuthMiddleware(internalSecret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if token != internalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
