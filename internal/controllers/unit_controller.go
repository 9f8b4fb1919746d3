package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sar_command/internal/config"
	"sar_command/internal/models"
)

var validUnitKinds = map[string]bool{
	"ground":  true,
	"k9":      true,
	"medical": true,
	"drone":   true,
}

// unitStatusTransitions encodes the allowed workflow:
// available -> assigned -> searching -> out_of_service, with returns to
// available from any state.
var unitStatusTransitions = map[string][]string{
	"available":      {"assigned", "out_of_service"},
	"assigned":       {"searching", "available", "out_of_service"},
	"searching":      {"available", "out_of_service"},
	"out_of_service": {"available"},
}

func unitTransitionAllowed(from, to string) bool {
	for _, next := range unitStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateUnit registers a field team for an incident.
func CreateUnit(c *gin.Context) {
	var input struct {
		CallSign    string `json:"call_sign" binding:"required"`
		Kind        string `json:"kind"`
		MemberCount int    `json:"member_count"`
		IncidentID  uint   `json:"incident_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateUnit: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if input.Kind == "" {
		input.Kind = "ground"
	}
	if !validUnitKinds[input.Kind] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit kind: " + input.Kind})
		return
	}

	unit := models.Unit{
		CallSign:    input.CallSign,
		Kind:        input.Kind,
		Status:      "available",
		MemberCount: input.MemberCount,
		IncidentID:  input.IncidentID,
	}
	if err := config.DB.Create(&unit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create unit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"unit": unit})
}

// ListUnits returns units, optionally filtered by incident.
func ListUnits(c *gin.Context) {
	query := config.DB.Order("call_sign")
	if raw := c.Query("incident_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident_id"})
			return
		}
		query = query.Where("incident_id = ?", id)
	}

	var units []models.Unit
	if err := query.Find(&units).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

// GetUnit returns a single unit.
func GetUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit ID"})
		return
	}

	var unit models.Unit
	if err := config.DB.First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit": unit})
}

// UpdateUnit applies partial updates; status changes must follow the
// workflow transitions.
func UpdateUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit ID"})
		return
	}

	var unit models.Unit
	if err := config.DB.First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		CallSign    *string `json:"call_sign"`
		Kind        *string `json:"kind"`
		Status      *string `json:"status"`
		MemberCount *int    `json:"member_count"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.CallSign != nil {
		unit.CallSign = *input.CallSign
	}
	if input.Kind != nil {
		if !validUnitKinds[*input.Kind] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit kind: " + *input.Kind})
			return
		}
		unit.Kind = *input.Kind
	}
	if input.MemberCount != nil {
		unit.MemberCount = *input.MemberCount
	}
	if input.Status != nil && *input.Status != unit.Status {
		if !unitTransitionAllowed(unit.Status, *input.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot move unit from '" + unit.Status + "' to '" + *input.Status + "'"})
			return
		}
		unit.Status = *input.Status
		// Leaving assignment clears the division link.
		if *input.Status == "available" || *input.Status == "out_of_service" {
			unit.DivisionID = nil
		}
	}

	if err := config.DB.Save(&unit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit": unit})
}

// DeleteUnit removes a unit and detaches it from any division.
func DeleteUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit ID"})
		return
	}

	var unit models.Unit
	if err := config.DB.First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	if err := tx.Model(&models.Division{}).Where("unit_id = ?", unit.ID).Update("unit_id", nil).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detach divisions: " + err.Error()})
		return
	}
	if err := tx.Delete(&unit).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete unit: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unit deleted successfully"})
}
