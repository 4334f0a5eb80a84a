package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"nettrack/internal/database"
	"nettrack/internal/models"
)

const (
	// SessionCookieName is the name of the cookie that stores the session ID
	SessionCookieName = "nettrack_session"
	// StateCookieName is the name of the cookie that temporarily stores the OAuth state
	StateCookieName = "nettrack_oauth_state"
	// SessionIDLength is the length of the random session ID in bytes
	SessionIDLength = 32
	// StateLength is the length of the random state string in bytes
	StateLength = 32
)

var googleOAuthConfig *oauth2.Config

// GoogleUser holds the verified identity claims from a Google ID token
type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// InitOAuth initializes the Google OAuth configuration. Optional: when
// the variables are absent, Google sign-in routes are not registered.
func InitOAuth() error {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, and GOOGLE_REDIRECT_URL must be set")
	}

	googleOAuthConfig = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "openid"},
		Endpoint:     google.Endpoint,
	}

	return nil
}

// OAuthEnabled reports whether Google sign-in is configured
func OAuthEnabled() bool {
	return googleOAuthConfig != nil
}

// GenerateRandomString creates a cryptographically secure random string
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// GetLoginURL returns the Google OAuth login URL with a secure state parameter
func GetLoginURL(c *gin.Context) (string, error) {
	state, err := setOAuthState(c)
	if err != nil {
		return "", err
	}

	return googleOAuthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	), nil
}

// ExchangeAndVerify trades the callback code for a verified Google identity
func ExchangeAndVerify(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("token response contained no id_token")
	}

	payload, err := idtoken.Validate(ctx, rawIDToken, googleOAuthConfig.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate ID token: %w", err)
	}

	user := &GoogleUser{Sub: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		user.Email = email
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		user.EmailVerified = verified
	}
	if name, ok := payload.Claims["name"].(string); ok {
		user.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		user.Picture = picture
	}

	if user.Email == "" {
		return nil, fmt.Errorf("ID token carried no email claim")
	}

	return user, nil
}

// CreateSession creates a new OAuth session for the user
func CreateSession(c *gin.Context, user *GoogleUser, username string) error {
	sessionID, err := GenerateRandomString(SessionIDLength)
	if err != nil {
		return fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := models.Session{
		ID:        sessionID,
		GoogleID:  user.Sub,
		Username:  username,
		Email:     user.Email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(models.SessionDuration),
	}

	db := database.GetDB()
	if err := db.Create(&session).Error; err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	secure := gin.Mode() != gin.DebugMode
	c.SetCookie(
		SessionCookieName,
		sessionID,
		int(time.Until(session.ExpiresAt).Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly
	)

	return nil
}

// DeleteSession removes the session and clears the cookie
func DeleteSession(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookieName)
	if err == nil {
		db := database.GetDB()
		db.Where("id = ?", sessionID).Delete(&models.Session{})
	}

	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
}

// setOAuthState generates and stores a random state for CSRF protection
func setOAuthState(c *gin.Context) (string, error) {
	state, err := GenerateRandomString(StateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	secure := gin.Mode() != gin.DebugMode
	c.SetCookie(
		StateCookieName,
		state,
		int(10*time.Minute.Seconds()),
		"/",
		"",
		secure,
		true,
	)

	return state, nil
}

// VerifyOAuthState verifies the state parameter from the OAuth callback
func VerifyOAuthState(c *gin.Context, receivedState string) bool {
	savedState, err := c.Cookie(StateCookieName)
	if err != nil {
		return false
	}

	// Clear the state cookie regardless of outcome
	c.SetCookie(StateCookieName, "", -1, "/", "", false, true)

	return savedState == receivedState && receivedState != ""
}
