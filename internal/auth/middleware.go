package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nettrack/internal/database"
	"nettrack/internal/models"
)

// AuthMiddleware validates the access token cookie and checks the
// account's token version, so logout-everywhere works immediately.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AccessTokenCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if claims.TokenType != AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token type"})
			return
		}

		db := database.GetDB()
		var account models.Account
		if err := db.Select("username, token_version").
			Where("username = ?", claims.Username).First(&account).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}

		if account.TokenVersion != claims.TokenVersion {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// GetUsernameFromContext returns the authenticated username, or ""
func GetUsernameFromContext(c *gin.Context) string {
	return c.GetString("username")
}

// SetAuthCookies writes the access and refresh token cookies
func SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	secure := gin.Mode() != gin.DebugMode

	c.SetCookie(
		AccessTokenCookieName,
		accessToken,
		int(AccessTokenExpiry.Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly
	)

	c.SetCookie(
		RefreshTokenCookieName,
		refreshToken,
		int(RefreshTokenExpiry.Seconds()),
		"/api/auth/refresh",
		"",
		secure,
		true,
	)
}

// ClearAuthCookies removes both token cookies
func ClearAuthCookies(c *gin.Context) {
	c.SetCookie(AccessTokenCookieName, "", -1, "/", "", false, true)
	c.SetCookie(RefreshTokenCookieName, "", -1, "/api/auth/refresh", "", false, true)
}
