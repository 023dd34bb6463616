package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-stylize/utils"
)

// AdminAuth guards the support endpoints with the shared admin key.
func AdminAuth(c *gin.Context) {
	key := utils.AdminKey()
	got := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin key"})
		c.Abort()
		return
	}
	c.Next()
}
