package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"secureauth/internal/auth"
)

// IdentityKey: ключ в gin.Context, под которым лежит *auth.Identity.
const IdentityKey = "identity"

type TokenValidator interface {
	Validate(token string) (*auth.Identity, error)
}

// BearerGuard пропускает запрос только с валидным Bearer-токеном.
// Нет заголовка или токена -> 401, токен не прошёл проверку -> 403.
func BearerGuard(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// preflight пропускаем
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access denied"})
			return
		}

		identity, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("[auth][guard] token rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom достаёт личность, положенную BearerGuard.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok && id != nil
}
