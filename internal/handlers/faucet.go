package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nettrack/internal/auth"
	"nettrack/internal/database"
	"nettrack/internal/models"
)

func toJSONArray(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// faucetView wraps a Faucet with the viewer's favourite flag
type faucetView struct {
	models.Faucet
	IsFavorite bool `json:"is_favorite"`
}

func loadFaucet(c *gin.Context) (models.Faucet, bool) {
	var faucet models.Faucet

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid faucet ID", err)
		return faucet, false
	}

	db := database.GetDB()
	if err := db.First(&faucet, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Faucet not found", err)
			return faucet, false
		}
		handleError(c, http.StatusInternalServerError, "Failed to load faucet", err)
		return faucet, false
	}

	return faucet, true
}

// GetFaucets lists directory entries with filtering and the viewer's
// favourites annotated
func GetFaucets(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)
	limit, offset := pagination(c)

	db := database.GetDB()
	query := db.Model(&models.Faucet{})

	if network := c.Query("network"); network != "" {
		query = query.Where("network = ?", network)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	} else {
		query = query.Where("is_active = ?", true)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR token_symbol ILIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to count faucets", err)
		return
	}

	var faucets []models.Faucet
	if err := query.Order("view_count desc, name asc").
		Limit(limit).Offset(offset).Find(&faucets).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load faucets", err)
		return
	}

	favorites := make(map[uint]bool)
	if username != "" && len(faucets) > 0 {
		ids := make([]uint, 0, len(faucets))
		for _, f := range faucets {
			ids = append(ids, f.ID)
		}
		var favs []models.FaucetFavorite
		if err := db.Where("username = ? AND faucet_id IN ?", username, ids).
			Find(&favs).Error; err == nil {
			for _, fav := range favs {
				favorites[fav.FaucetID] = true
			}
		}
	}

	views := make([]faucetView, 0, len(faucets))
	for _, f := range faucets {
		views = append(views, faucetView{Faucet: f, IsFavorite: favorites[f.ID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"faucets": views,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetFaucet returns one faucet and bumps its view counter
func GetFaucet(c *gin.Context) {
	faucet, ok := loadFaucet(c)
	if !ok {
		return
	}

	db := database.GetDB()
	if err := db.Model(&faucet).
		Update("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		log.Printf("Warning: Failed to bump view count for faucet %d: %v", faucet.ID, err)
	}
	faucet.ViewCount++

	username := auth.GetUsernameFromContext(c)
	isFavorite := false
	if username != "" {
		var count int64
		db.Model(&models.FaucetFavorite{}).
			Where("username = ? AND faucet_id = ?", username, faucet.ID).Count(&count)
		isFavorite = count > 0
	}

	c.JSON(http.StatusOK, faucetView{Faucet: faucet, IsFavorite: isFavorite})
}

// CreateFaucet submits a new directory entry
func CreateFaucet(c *gin.Context) {
	username := auth.GetUsernameFromContext(c)

	var req models.CreateFaucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	faucet := models.Faucet{
		Name:         req.Name,
		Description:  req.Description,
		Network:      req.Network,
		TokenSymbol:  req.TokenSymbol,
		URL:          req.URL,
		LogoURL:      req.LogoURL,
		Tags:         toJSONArray(req.Tags),
		Requirements: toJSONArray(req.Requirements),
		CreatedBy:    username,
		IsActive:     true,
	}

	db := database.GetDB()
	if err := db.Create(&faucet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create faucet", err)
		return
	}

	logActivity(db, username, "submit_faucet", 0)

	c.JSON(http.StatusCreated, faucet)
}

// UpdateFaucet edits an entry; only the submitter may edit
func UpdateFaucet(c *gin.Context) {
	faucet, ok := loadFaucet(c)
	if !ok {
		return
	}

	username := auth.GetUsernameFromContext(c)
	if faucet.CreatedBy != username {
		handleError(c, http.StatusForbidden, "You did not submit this faucet",
			fmt.Errorf("user %s attempted to edit faucet %d submitted by %s", username, faucet.ID, faucet.CreatedBy))
		return
	}

	var req models.UpdateFaucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if req.Name != nil {
		faucet.Name = *req.Name
	}
	if req.Description != nil {
		faucet.Description = *req.Description
	}
	if req.Network != nil {
		faucet.Network = *req.Network
	}
	if req.TokenSymbol != nil {
		faucet.TokenSymbol = *req.TokenSymbol
	}
	if req.URL != nil {
		faucet.URL = *req.URL
	}
	if req.LogoURL != nil {
		faucet.LogoURL = *req.LogoURL
	}
	if req.Tags != nil {
		faucet.Tags = toJSONArray(req.Tags)
	}
	if req.Requirements != nil {
		faucet.Requirements = toJSONArray(req.Requirements)
	}
	if req.IsActive != nil {
		faucet.IsActive = *req.IsActive
	}

	db := database.GetDB()
	if err := db.Save(&faucet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update faucet", err)
		return
	}

	c.JSON(http.StatusOK, faucet)
}

// DeleteFaucet removes an entry; only the submitter may delete
func DeleteFaucet(c *gin.Context) {
	faucet, ok := loadFaucet(c)
	if !ok {
		return
	}

	username := auth.GetUsernameFromContext(c)
	if faucet.CreatedBy != username {
		handleError(c, http.StatusForbidden, "You did not submit this faucet",
			fmt.Errorf("user %s attempted to delete faucet %d submitted by %s", username, faucet.ID, faucet.CreatedBy))
		return
	}

	db := database.GetDB()
	if err := db.Delete(&faucet).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete faucet", err)
		return
	}

	// Favourites pointing at the deleted row are just noise now.
	db.Where("faucet_id = ?", faucet.ID).Delete(&models.FaucetFavorite{})

	c.JSON(http.StatusOK, gin.H{"message": "faucet deleted"})
}

// FavoriteFaucet marks a faucet as a favourite of the current user
func FavoriteFaucet(c *gin.Context) {
	faucet, ok := loadFaucet(c)
	if !ok {
		return
	}

	username := auth.GetUsernameFromContext(c)
	fav := models.FaucetFavorite{Username: username, FaucetID: faucet.ID}

	db := database.GetDB()
	if err := db.Create(&fav).Error; err != nil {
		// Favouriting twice is a no-op, not an error.
		var count int64
		db.Model(&models.FaucetFavorite{}).
			Where("username = ? AND faucet_id = ?", username, faucet.ID).Count(&count)
		if count == 0 {
			handleError(c, http.StatusInternalServerError, "Failed to favorite faucet", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "faucet favorited"})
}

// UnfavoriteFaucet removes a favourite
func UnfavoriteFaucet(c *gin.Context) {
	faucet, ok := loadFaucet(c)
	if !ok {
		return
	}

	username := auth.GetUsernameFromContext(c)
	db := database.GetDB()
	if err := db.Where("username = ? AND faucet_id = ?", username, faucet.ID).
		Delete(&models.FaucetFavorite{}).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to remove favorite", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "favorite removed"})
}
