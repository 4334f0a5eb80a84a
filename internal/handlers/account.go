package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/models"
	"nettrack/internal/services"
)

const maxUploadSize = 5 << 20 // 5 MB

// GetProfile returns the public profile for a username
func GetProfile(c *gin.Context) {
	username := c.Param("username")

	db := database.GetDB()
	var account models.Account
	if err := db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "User not found", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":           account.Username,
		"full_name":          account.FullName,
		"avatar_url":         account.AvatarURL,
		"bio":                account.Bio,
		"total_testnets":     account.TotalTestnets,
		"completed_testnets": account.CompletedTestnets,
		"missed_deadlines":   account.MissedDeadlines,
		"date_joined":        account.DateJoined,
	})
}

// UpdateProfile applies partial updates to the current user's profile
func UpdateProfile(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var account models.Account
	if err := db.Where("username = ?", username).First(&account).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load account", err)
		return
	}

	if req.FullName != nil {
		account.FullName = *req.FullName
	}
	if req.Bio != nil {
		account.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		account.AvatarURL = *req.AvatarURL
	}

	if err := db.Save(&account).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetActivity lists the current user's recent activity entries
func GetActivity(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	limit, offset := pagination(c)

	db := database.GetDB()
	var entries []models.ActivityLog
	if err := db.Where("username = ?", username).
		Order("timestamp desc").
		Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load activity", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"limit":    limit,
		"offset":   offset,
	})
}

// UploadAvatar replaces the current user's avatar image
func UploadAvatar(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		handleError(c, http.StatusBadRequest, "avatar file is required", err)
		return
	}
	if fileHeader.Size > maxUploadSize {
		handleError(c, http.StatusBadRequest, "File too large (max 5MB)",
			fmt.Errorf("avatar upload of %d bytes rejected", fileHeader.Size))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to read upload", err)
		return
	}
	defer file.Close()

	imageService, err := services.NewImageService()
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Image uploads are not configured", err)
		return
	}

	if err := imageService.ValidateImageFile(file, maxUploadSize); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	url, err := imageService.UploadAvatar(file, fileHeader.Filename, username)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to upload avatar", err)
		return
	}

	db := database.GetDB()
	if err := db.Model(&models.Account{}).Where("username = ?", username).
		Update("avatar_url", url).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save avatar", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// UploadTestnetLogo uploads a logo image and stores it on the testnet
func UploadTestnetLogo(c *gin.Context) {
	testnet, ok := loadOwnedTestnet(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		handleError(c, http.StatusBadRequest, "logo file is required", err)
		return
	}
	if fileHeader.Size > maxUploadSize {
		handleError(c, http.StatusBadRequest, "File too large (max 5MB)",
			fmt.Errorf("logo upload of %d bytes rejected", fileHeader.Size))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to read upload", err)
		return
	}
	defer file.Close()

	imageService, err := services.NewImageService()
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Image uploads are not configured", err)
		return
	}

	if err := imageService.ValidateImageFile(file, maxUploadSize); err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	url, err := imageService.UploadLogo(file, fileHeader.Filename, "testnet", testnet.Username)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to upload logo", err)
		return
	}

	db := database.GetDB()
	if err := db.Model(&testnet).Update("logo_url", url).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save logo", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logo_url": url})
}

// DeleteAccount soft-deletes the current user's account and revokes
// all outstanding tokens
func DeleteAccount(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	db := database.GetDB()
	if err := db.Model(&models.Account{}).Where("username = ?", username).
		Update("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete account", err)
		return
	}

	if err := db.Where("username = ?", username).Delete(&models.Account{}).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete account", err)
		return
	}

	auth.ClearAuthCookies(c)
	auth.DeleteSession(c)

	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
