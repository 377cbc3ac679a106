package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends the unified error payload: an HTML fragment by default,
// {"error": {"code", "message"}} when the client asks for JSON.
func respondError(c *gin.Context, status int, code, message string) {
	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
	default:
		c.HTML(status, "error", gin.H{"Code": code, "Message": message})
	}
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirectTo uses HX-Redirect for htmx requests so the whole page navigates.
func redirectTo(c *gin.Context, path string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", path)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, path)
}
