package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// AccountIDHeader carries the caller identity resolved by the auth layer
	AccountIDHeader = "X-Account-ID"

	// AccountIDKey is the key used to store the caller identity in the context
	AccountIDKey = "account_id"

	maxAccountIDLength = 128
)

// AccountIdentity rejects requests without a usable caller identity
func AccountIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := strings.TrimSpace(c.GetHeader(AccountIDHeader))
		if accountID == "" || len(accountID) > maxAccountIDLength {
			response := gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing or invalid " + AccountIDHeader + " header",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// GetAccountID retrieves the caller identity from the gin context if present
func GetAccountID(c *gin.Context) string {
	if id, exists := c.Get(AccountIDKey); exists {
		if accountID, ok := id.(string); ok {
			return accountID
		}
	}
	return ""
}
