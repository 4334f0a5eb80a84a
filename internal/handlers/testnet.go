package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/models"
	"nettrack/internal/schedule"
)

// testnetView wraps a Testnet with derived display fields
type testnetView struct {
	models.Testnet
	TimeRemaining string                `json:"time_remaining"`
	Urgency       schedule.UrgencyLevel `json:"urgency"`
}

func annotate(t models.Testnet, now time.Time) testnetView {
	return testnetView{
		Testnet:       t,
		TimeRemaining: schedule.FormatTimeRemaining(t.NextDeadline, now),
		Urgency:       schedule.Urgency(t.NextDeadline, now),
	}
}

func logActivity(db *gorm.DB, username, eventType string, testnetID uint) {
	entry := models.ActivityLog{
		Username:  username,
		EventType: eventType,
		TestnetID: testnetID,
		Timestamp: time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("Warning: Failed to log %s activity for %s: %v", eventType, username, err)
	}
}

// loadOwnedTestnet fetches a testnet by path id and verifies ownership.
// It writes the error response itself and returns false on failure.
func loadOwnedTestnet(c *gin.Context) (models.Testnet, bool) {
	var testnet models.Testnet

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid testnet ID", err)
		return testnet, false
	}

	db := database.GetDB()
	if err := db.First(&testnet, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Testnet not found", err)
			return testnet, false
		}
		handleError(c, http.StatusInternalServerError, "Failed to load testnet", err)
		return testnet, false
	}

	username := auth.GetUsernameFromContext(c)
	if testnet.Username != username {
		handleError(c, http.StatusForbidden, "You do not own this testnet",
			fmt.Errorf("user %s attempted to access testnet %d owned by %s", username, testnet.ID, testnet.Username))
		return testnet, false
	}

	return testnet, true
}

// CreateTestnet starts tracking a new testnet for the current user
func CreateTestnet(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	var req models.CreateTestnetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if req.Interval == schedule.IntervalCustom && req.CustomInterval == 0 {
		handleError(c, http.StatusBadRequest, "custom_interval is required for custom intervals",
			fmt.Errorf("custom interval missing for testnet %q", req.Name))
		return
	}

	now := time.Now()
	testnet := models.Testnet{
		Username:       username,
		Name:           req.Name,
		Description:    req.Description,
		Blockchain:     req.Blockchain,
		Category:       req.Category,
		WebsiteURL:     req.WebsiteURL,
		LogoURL:        req.LogoURL,
		WalletAddress:  req.WalletAddress,
		Interval:       req.Interval,
		CustomInterval: req.CustomInterval,
		DeadlineType:   req.DeadlineType,
		ReminderHours:  req.ReminderHours,
		Status:         models.StatusActive,
		NextDeadline:   schedule.NextDeadline(req.DeadlineType, req.Interval, req.CustomInterval, nil, now),
	}
	if testnet.Category == "" {
		testnet.Category = models.CategoryOtherTN
	}

	db := database.GetDB()
	if err := db.Create(&testnet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create testnet", err)
		return
	}

	if err := db.Model(&models.Account{}).Where("username = ?", username).
		Update("total_testnets", gorm.Expr("total_testnets + 1")).Error; err != nil {
		log.Printf("Warning: Failed to bump testnet count for %s: %v", username, err)
	}
	logActivity(db, username, "create_testnet", testnet.ID)

	c.JSON(http.StatusCreated, annotate(testnet, now))
}

// GetTestnets lists the current user's testnets with filtering and sorting
func GetTestnets(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	limit, offset := pagination(c)

	db := database.GetDB()
	query := db.Model(&models.Testnet{}).Where("username = ?", username)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if blockchain := c.Query("blockchain"); blockchain != "" {
		query = query.Where("blockchain = ?", blockchain)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to count testnets", err)
		return
	}

	switch c.DefaultQuery("sort", "deadline") {
	case "name":
		query = query.Order("name asc")
	case "created":
		query = query.Order("created_at desc")
	case "updated":
		query = query.Order("updated_at desc")
	default:
		query = query.Order("next_deadline asc")
	}

	var testnets []models.Testnet
	if err := query.Limit(limit).Offset(offset).Find(&testnets).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load testnets", err)
		return
	}

	now := time.Now()
	views := make([]testnetView, 0, len(testnets))
	for _, t := range testnets {
		views = append(views, annotate(t, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"testnets": views,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetTestnet returns a single testnet owned by the current user
func GetTestnet(c *gin.Context) {
	testnet, ok := loadOwnedTestnet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, annotate(testnet, time.Now()))
}

// UpdateTestnet applies partial updates; schedule changes recompute the
// next deadline from now.
func UpdateTestnet(c *gin.Context) {
	testnet, ok := loadOwnedTestnet(c)
	if !ok {
		return
	}

	var req models.UpdateTestnetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if req.Name != nil {
		testnet.Name = *req.Name
	}
	if req.Description != nil {
		testnet.Description = *req.Description
	}
	if req.Blockchain != nil {
		testnet.Blockchain = *req.Blockchain
	}
	if req.Category != nil {
		testnet.Category = *req.Category
	}
	if req.WebsiteURL != nil {
		testnet.WebsiteURL = *req.WebsiteURL
	}
	if req.LogoURL != nil {
		testnet.LogoURL = *req.LogoURL
	}
	if req.WalletAddress != nil {
		testnet.WalletAddress = *req.WalletAddress
	}
	if req.ReminderHours != nil {
		testnet.ReminderHours = *req.ReminderHours
	}
	if req.Status != nil {
		testnet.Status = *req.Status
	}

	scheduleChanged := false
	if req.Interval != nil && *req.Interval != testnet.Interval {
		testnet.Interval = *req.Interval
		scheduleChanged = true
	}
	if req.CustomInterval != nil && *req.CustomInterval != testnet.CustomInterval {
		testnet.CustomInterval = *req.CustomInterval
		scheduleChanged = true
	}
	if req.DeadlineType != nil && *req.DeadlineType != testnet.DeadlineType {
		testnet.DeadlineType = *req.DeadlineType
		scheduleChanged = true
	}

	if testnet.Interval == schedule.IntervalCustom && testnet.CustomInterval == 0 {
		handleError(c, http.StatusBadRequest, "custom_interval is required for custom intervals",
			fmt.Errorf("custom interval missing on update of testnet %d", testnet.ID))
		return
	}

	now := time.Now()
	if scheduleChanged {
		testnet.NextDeadline = schedule.NextDeadline(
			testnet.DeadlineType, testnet.Interval, testnet.CustomInterval, testnet.LastCompletedAt, now)
		// A fresh schedule clears the overdue flag.
		if testnet.Status == models.StatusOverdue {
			testnet.Status = models.StatusActive
		}
	}

	db := database.GetDB()
	if err := db.Save(&testnet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update testnet", err)
		return
	}

	c.JSON(http.StatusOK, annotate(testnet, now))
}

// DeleteTestnet stops tracking a testnet
func DeleteTestnet(c *gin.Context) {
	testnet, ok := loadOwnedTestnet(c)
	if !ok {
		return
	}

	db := database.GetDB()
	if err := db.Delete(&testnet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete testnet", err)
		return
	}

	if err := db.Model(&models.Account{}).Where("username = ?", testnet.Username).
		Update("total_testnets", gorm.Expr("GREATEST(total_testnets - 1, 0)")).Error; err != nil {
		log.Printf("Warning: Failed to lower testnet count for %s: %v", testnet.Username, err)
	}
	logActivity(db, testnet.Username, "delete_testnet", testnet.ID)

	c.JSON(http.StatusOK, gin.H{"message": "testnet deleted"})
}

// CompleteTestnet records a completed participation and advances the
// deadline to the next occurrence.
func CompleteTestnet(c *gin.Context) {
	testnet, ok := loadOwnedTestnet(c)
	if !ok {
		return
	}

	if testnet.Status == models.StatusPaused {
		handleError(c, http.StatusConflict, "Cannot complete a paused testnet",
			fmt.Errorf("testnet %d is paused", testnet.ID))
		return
	}

	now := time.Now()
	testnet.LastCompletedAt = &now
	testnet.NextDeadline = schedule.NextDeadline(
		testnet.DeadlineType, testnet.Interval, testnet.CustomInterval, testnet.LastCompletedAt, now)
	testnet.CompletionCount++
	testnet.Status = models.StatusActive

	db := database.GetDB()
	if err := db.Save(&testnet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to record completion", err)
		return
	}

	if err := db.Model(&models.Account{}).Where("username = ?", testnet.Username).
		Update("completed_testnets", gorm.Expr("completed_testnets + 1")).Error; err != nil {
		log.Printf("Warning: Failed to bump completion count for %s: %v", testnet.Username, err)
	}
	logActivity(db, testnet.Username, "complete_testnet", testnet.ID)

	c.JSON(http.StatusOK, annotate(testnet, now))
}

// GetTestnetStats aggregates the current user's testnets
func GetTestnetStats(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	db := database.GetDB()
	var testnets []models.Testnet
	if err := db.Where("username = ?", username).Find(&testnets).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load testnets", err)
		return
	}

	stats := models.TestnetStats{
		Blockchains: make(map[string]int),
		Categories:  make(map[string]int),
	}
	for _, t := range testnets {
		stats.Total++
		switch t.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusOverdue:
			stats.Overdue++
		case models.StatusPaused:
			stats.Paused++
		}
		stats.TotalCompletions += t.CompletionCount
		stats.TotalMissed += t.MissedCount
		stats.Blockchains[t.Blockchain]++
		stats.Categories[string(t.Category)]++
	}

	c.JSON(http.StatusOK, stats)
}

// GetUpcomingDeadlines lists active testnets due within the requested
// horizon (default 48h), soonest first.
func GetUpcomingDeadlines(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	hours, err := strconv.Atoi(c.DefaultQuery("hours", "48"))
	if err != nil || hours <= 0 {
		hours = 48
	}
	if hours > 24*30 {
		hours = 24 * 30
	}

	now := time.Now()
	horizon := now.Add(time.Duration(hours) * time.Hour)

	db := database.GetDB()
	var testnets []models.Testnet
	if err := db.Where("username = ? AND status = ? AND next_deadline <= ?",
		username, models.StatusActive, horizon).
		Order("next_deadline asc").Find(&testnets).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load deadlines", err)
		return
	}

	views := make([]testnetView, 0, len(testnets))
	for _, t := range testnets {
		views = append(views, annotate(t, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"deadlines": views,
		"hours":     hours,
	})
}
