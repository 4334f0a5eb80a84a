package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/models"
	"nettrack/internal/services"
)

// GetNotifications lists the current user's notifications, newest first
func GetNotifications(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	limit, offset := pagination(c)

	db := database.GetDB()
	query := db.Model(&models.Notification{}).Where("username = ?", username)

	if notifType := c.Query("type"); notifType != "" {
		query = query.Where("type = ?", notifType)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if read := c.Query("read"); read != "" {
		query = query.Where("read = ?", read == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}

	var notifications []models.Notification
	if err := query.Order("created_at desc").
		Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load notifications", err)
		return
	}

	var unread int64
	db.Model(&models.Notification{}).
		Where("username = ? AND read = ?", username, false).Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"unread_count":  unread,
		"limit":         limit,
		"offset":        offset,
	})
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid notification ID", err)
		return
	}

	db := database.GetDB()
	result := db.Model(&models.Notification{}).
		Where("id = ? AND username = ?", uint(id), username).
		Update("read", true)
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update notification", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		handleError(c, http.StatusNotFound, "Notification not found", gorm.ErrRecordNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// MarkAllNotificationsRead marks every unread notification as read
func MarkAllNotificationsRead(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	db := database.GetDB()
	result := db.Model(&models.Notification{}).
		Where("username = ? AND read = ?", username, false).
		Update("read", true)
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update notifications", result.Error)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "all notifications marked read",
		"updated": result.RowsAffected,
	})
}

// DeleteNotification removes one notification
func DeleteNotification(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid notification ID", err)
		return
	}

	db := database.GetDB()
	result := db.Where("id = ? AND username = ?", uint(id), username).
		Delete(&models.Notification{})
	if result.Error != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete notification", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		handleError(c, http.StatusNotFound, "Notification not found", gorm.ErrRecordNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

// GetNotificationSettings returns the user's delivery preferences,
// falling back to defaults when none were ever saved
func GetNotificationSettings(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	db := database.GetDB()
	c.JSON(http.StatusOK, services.SettingsFor(db, username))
}

// UpdateNotificationSettings upserts delivery preferences
func UpdateNotificationSettings(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	var req models.UpdateNotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var settings models.NotificationSetting
	err := db.Where("username = ?", username).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultNotificationSettings(username)
	} else if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}

	if req.EmailEnabled != nil {
		settings.EmailEnabled = *req.EmailEnabled
	}
	if req.PushEnabled != nil {
		settings.PushEnabled = *req.PushEnabled
	}
	if req.DeadlineReminders != nil {
		settings.DeadlineReminders = *req.DeadlineReminders
	}
	if req.ReminderHours != nil {
		settings.ReminderHours = *req.ReminderHours
	}
	if req.QuietHoursEnabled != nil {
		settings.QuietHoursEnabled = *req.QuietHoursEnabled
	}
	if req.QuietHoursStart != nil {
		settings.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		settings.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.TypeReminder != nil {
		settings.TypeReminder = *req.TypeReminder
	}
	if req.TypeDeadline != nil {
		settings.TypeDeadline = *req.TypeDeadline
	}
	if req.TypeSystem != nil {
		settings.TypeSystem = *req.TypeSystem
	}
	if req.TypeAchievement != nil {
		settings.TypeAchievement = *req.TypeAchievement
	}

	if err := db.Save(&settings).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// SendTestNotification emits a sample notification so the user can
// verify their delivery settings end to end
func SendTestNotification(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	db := database.GetDB()
	notifier := services.NewNotifier(db, services.NewEmailService())

	err := notifier.Notify(username, services.Notice{
		Type:     models.NotificationTypeSystem,
		Title:    "Test Notification",
		Message:  "If you can read this, notifications are working.",
		Priority: models.PriorityLow,
		Metadata: map[string]interface{}{"test": true},
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to send test notification", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "test notification sent"})
}
