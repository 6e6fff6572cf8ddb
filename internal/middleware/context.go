package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// CurrentUserID returns the user id set by JWTAuth.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CurrentToken returns the id and expiry of the presented access token.
func CurrentToken(c *gin.Context) (string, time.Time) {
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return c.GetString("jti"), t
}
