package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SubmitterKey is the context key for the submitter identity.
	SubmitterKey = "submitter"
	// SubmitterHeader carries the opaque user identity set by the auth proxy.
	SubmitterHeader = "X-Submitter-ID"
)

// Submitter copies the submitter header, when present, into the context.
func Submitter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(SubmitterHeader)); id != "" {
			setSubmitter(c, id)
		}
		c.Next()
	}
}

// RejectFunc writes the error response for a rejected request.
type RejectFunc func(c *gin.Context, message string)

// RequireSubmitter rejects requests without a submitter identity with 401.
// The value is opaque and never format-checked. reject writes the response;
// when nil a bare error envelope is written.
func RequireSubmitter(reject RejectFunc) gin.HandlerFunc {
	if reject == nil {
		reject = unauthorized
	}
	return func(c *gin.Context) {
		id := GetSubmitter(c)
		if id == "" {
			id = strings.TrimSpace(c.GetHeader(SubmitterHeader))
		}
		if id == "" {
			reject(c, SubmitterHeader+" header is required")
			c.Abort()
			return
		}
		setSubmitter(c, id)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       "UNAUTHORIZED",
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}

// GetSubmitter returns the submitter identity, or "" when absent.
func GetSubmitter(c *gin.Context) string {
	if v, exists := c.Get(SubmitterKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func setSubmitter(c *gin.Context, id string) {
	c.Set(SubmitterKey, id)
	if l := GetLogger(c); l != nil {
		c.Set(loggerKey, l.WithSubmitter(id))
	}
}
