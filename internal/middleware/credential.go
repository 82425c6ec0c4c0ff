// Package middleware contains Gin middleware functions.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CredentialKey is the gin context key holding the caller's model API key.
const CredentialKey = "api_key"

// Credential picks up the caller's model API key from the Authorization bearer
// token, the X-API-Key header or the api_key form field, in that order, and
// stores it in the context. The key is only passed through to the model API;
// requests without one continue so the review can report the missing key in
// its own output.
func Credential() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearerToken(c.GetHeader("Authorization"))
		if key == "" {
			key = strings.TrimSpace(c.GetHeader("X-API-Key"))
		}
		if key == "" && c.Request.Method == http.MethodPost && isForm(c.ContentType()) {
			key = strings.TrimSpace(c.PostForm("api_key"))
		}

		if key != "" {
			c.Set(CredentialKey, key)
		}
		c.Next()
	}
}

// APIKey returns the key stored by Credential, if any.
func APIKey(c *gin.Context) string {
	return c.GetString(CredentialKey)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func isForm(contentType string) bool {
	return contentType == "application/x-www-form-urlencoded" || contentType == "multipart/form-data"
}
