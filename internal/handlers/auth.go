package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/models"
	"nettrack/internal/services"
	"nettrack/internal/utils"
)

// validatePassword checks if password meets security requirements
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	hasLetter := false
	hasNumber := false

	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		} else if unicode.IsNumber(char) {
			hasNumber = true
		}

		if hasLetter && hasNumber {
			return nil
		}
	}

	return fmt.Errorf("password must contain at least one letter and one number")
}

func logLogin(c *gin.Context, username, method string, success bool) {
	db := database.GetDB()
	entry := models.LoginLog{
		Username:  username,
		IPAddress: utils.GetRealClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   success,
		Method:    method,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		// Audit failure shouldn't block the login itself.
		log.Printf("Warning: Failed to record login attempt for %s: %v", username, err)
	}
}

// Register handles new user registration
func Register(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if err := validatePassword(req.Password); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	// Password hashing is handled in the Account model's BeforeCreate hook
	now := time.Now()
	account := models.Account{
		Username:   req.Username,
		Email:      req.Email,
		HashedPass: req.Password,
		FullName:   req.FullName,
		DateJoined: now,
		LastLogin:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	db := database.GetDB()
	if err := db.Create(&account).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			if strings.Contains(err.Error(), "username") {
				handleError(c, http.StatusConflict, "Username already exists", err)
			} else if strings.Contains(err.Error(), "email") {
				handleError(c, http.StatusConflict, "Email already in use", err)
			} else {
				handleError(c, http.StatusConflict, "Account creation failed: duplicate data", err)
			}
			return
		}

		handleError(c, http.StatusInternalServerError, "Failed to create account", err)
		return
	}

	if err := services.NewEmailService().SendWelcomeEmail(account.Email, account.Username); err != nil {
		log.Printf("Warning: Failed to send welcome email to %s: %v", account.Username, err)
	}

	c.JSON(http.StatusCreated, account)
}

// Login authenticates with username/password and issues token cookies
func Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid login request", err)
		return
	}

	db := database.GetDB()
	var account models.Account
	if err := db.Where("username = ?", req.Username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logLogin(c, req.Username, "password", false)
			handleError(c, http.StatusUnauthorized, "Invalid credentials", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Login attempt failed", err)
		return
	}

	if !account.VerifyPassword(req.Password) {
		logLogin(c, req.Username, "password", false)
		handleError(c, http.StatusUnauthorized, "Invalid credentials",
			fmt.Errorf("password verification failed for user %s", req.Username))
		return
	}

	accessToken, accessExpiry, err := auth.GenerateToken(account.Username, auth.AccessToken, account.TokenVersion)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate access token", err)
		return
	}

	refreshToken, refreshExpiry, err := auth.GenerateToken(account.Username, auth.RefreshToken, account.TokenVersion)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate refresh token", err)
		return
	}

	auth.SetAuthCookies(c, accessToken, refreshToken)

	db.Model(&account).Update("last_login", time.Now())
	logLogin(c, account.Username, "password", true)

	c.JSON(http.StatusOK, gin.H{
		"username":              account.Username,
		"access_token_expires":  accessExpiry,
		"refresh_token_expires": refreshExpiry,
	})
}

// RefreshToken exchanges a valid refresh cookie for a new access token
func RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(auth.RefreshTokenCookieName)
	if err != nil {
		handleError(c, http.StatusUnauthorized, "Refresh token required", err)
		return
	}

	claims, err := auth.ValidateToken(refreshToken)
	if err != nil {
		handleError(c, http.StatusUnauthorized, "Invalid refresh token", err)
		return
	}

	if claims.TokenType != auth.RefreshToken {
		handleError(c, http.StatusUnauthorized, "Invalid token type",
			fmt.Errorf("token type mismatch: expected refresh, got %s", claims.TokenType))
		return
	}

	// The version check makes logout-everywhere stick for refreshes too.
	db := database.GetDB()
	var account models.Account
	if err := db.Select("username, token_version").
		Where("username = ?", claims.Username).First(&account).Error; err != nil {
		handleError(c, http.StatusUnauthorized, "Account not found", err)
		return
	}
	if account.TokenVersion != claims.TokenVersion {
		handleError(c, http.StatusUnauthorized, "Token has been revoked",
			fmt.Errorf("token version mismatch for user %s", claims.Username))
		return
	}

	accessToken, accessExpiry, err := auth.GenerateToken(claims.Username, auth.AccessToken, account.TokenVersion)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	auth.SetAuthCookies(c, accessToken, refreshToken)

	c.JSON(http.StatusOK, gin.H{
		"username":             claims.Username,
		"access_token_expires": accessExpiry,
	})
}

// Logout invalidates all outstanding tokens and clears cookies
func Logout(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	if username != "" {
		db := database.GetDB()
		if err := db.Model(&models.Account{}).
			Where("username = ?", username).
			Update("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
			log.Printf("Warning: Failed to bump token version for %s: %v", username, err)
		}
	}

	auth.ClearAuthCookies(c)
	auth.DeleteSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// GetCurrentUser returns the currently authenticated user
func GetCurrentUser(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	db := database.GetDB()
	var account models.Account
	if err := db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "User not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to load user", err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GoogleLogin redirects to the Google OAuth consent screen
func GoogleLogin(c *gin.Context) {
	url, err := auth.GetLoginURL(c)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate login URL", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback processes the OAuth callback from Google
func GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	if !auth.VerifyOAuthState(c, state) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	user, err := auth.ExchangeAndVerify(c.Request.Context(), c.Query("code"))
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Google sign-in failed", err)
		return
	}

	db := database.GetDB()
	var account models.Account
	err = db.Where("google_id = ?", user.Sub).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Fall back to matching a password account by verified email.
		err = db.Where("email = ?", user.Email).First(&account).Error
		if err == nil {
			if !user.EmailVerified {
				handleError(c, http.StatusForbidden, "Google email is not verified",
					fmt.Errorf("refusing to link unverified Google email to account %s", account.Username))
				return
			}
			db.Model(&account).Update("google_id", user.Sub)
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First sign-in: derive a username from the email local part.
		base := strings.Split(user.Email, "@")[0]
		base = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				return r
			}
			return -1
		}, base)
		suffix, randErr := auth.GenerateRandomString(6)
		if randErr != nil {
			handleError(c, http.StatusInternalServerError, "Failed to create account", randErr)
			return
		}
		if len(base) > 20 {
			base = base[:20]
		}

		account = models.Account{
			Username:      base + suffix[:4],
			Email:         user.Email,
			GoogleID:      user.Sub,
			FullName:      user.Name,
			AvatarURL:     user.Picture,
			EmailVerified: user.EmailVerified,
		}
		if createErr := db.Create(&account).Error; createErr != nil {
			handleError(c, http.StatusInternalServerError, "Failed to create account", createErr)
			return
		}
	} else if err != nil {
		handleError(c, http.StatusInternalServerError, "Google sign-in failed", err)
		return
	}

	if err := auth.CreateSession(c, user, account.Username); err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	// Issue the same cookies as a password login so the API surface
	// doesn't care how the user signed in.
	accessToken, _, err := auth.GenerateToken(account.Username, auth.AccessToken, account.TokenVersion)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate access token", err)
		return
	}
	refreshToken, _, err := auth.GenerateToken(account.Username, auth.RefreshToken, account.TokenVersion)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate refresh token", err)
		return
	}
	auth.SetAuthCookies(c, accessToken, refreshToken)

	db.Model(&account).Update("last_login", time.Now())
	logLogin(c, account.Username, "google", true)

	c.Redirect(http.StatusTemporaryRedirect, "/dashboard")
}

// ForgotPasswordRequest is the payload for requesting a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword emails a single-use reset token. The response is the
// same whether or not the email exists.
func ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	response := gin.H{"message": "If that email is registered, a reset link has been sent"}

	db := database.GetDB()
	var account models.Account
	if err := db.Where("email = ?", req.Email).First(&account).Error; err != nil {
		c.JSON(http.StatusOK, response)
		return
	}

	token, err := auth.GenerateRandomString(48)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create reset token", err)
		return
	}

	reset := models.PasswordReset{
		Token:     token,
		Username:  account.Username,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := db.Create(&reset).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create reset token", err)
		return
	}

	if err := services.NewEmailService().SendPasswordResetEmail(account.Email, account.Username, token); err != nil {
		log.Printf("Warning: Failed to send reset email to %s: %v", account.Username, err)
	}

	c.JSON(http.StatusOK, response)
}

// ResetPasswordRequest is the payload for redeeming a reset token
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPassword redeems a reset token and sets a new password
func ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if err := validatePassword(req.Password); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	db := database.GetDB()
	var reset models.PasswordReset
	if err := db.Where("token = ?", req.Token).First(&reset).Error; err != nil {
		handleError(c, http.StatusBadRequest, "Invalid or expired reset token", err)
		return
	}
	if reset.IsExpired() {
		handleError(c, http.StatusBadRequest, "Invalid or expired reset token",
			fmt.Errorf("reset token for %s expired or already used", reset.Username))
		return
	}

	// Updates bypasses the create hook, so hash here.
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to reset password", err)
		return
	}

	updates := map[string]interface{}{
		"hashed_pass":   string(hashed),
		"token_version": gorm.Expr("token_version + 1"), // revoke outstanding tokens
	}
	if err := db.Model(&models.Account{}).
		Where("username = ?", reset.Username).Updates(updates).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to reset password", err)
		return
	}

	if err := db.Model(&reset).Update("used", true).Error; err != nil {
		log.Printf("Warning: Failed to mark reset token used for %s: %v", reset.Username, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated, please log in again"})
}
