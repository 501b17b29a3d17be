package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quickcommerce/storefront/internal/config"
)

// ContextSessionToken holds the guest session token
const ContextSessionToken = "session_token"

const maxSessionTokenLength = 64

// Session makes sure every request carries a guest session token, issuing a
// new cookie when the client has none.
func Session(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.Session.CookieName)
		if err != nil || token == "" || len(token) > maxSessionTokenLength {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.Session.CookieName, token, cfg.Session.MaxAge, "/", "", cfg.Session.Secure, true)
		}

		c.Set(ContextSessionToken, token)
		c.Next()
	}
}

// GetSessionTokenFromContext returns the guest session token, if any
func GetSessionTokenFromContext(c *gin.Context) string {
	return c.GetString(ContextSessionToken)
}
