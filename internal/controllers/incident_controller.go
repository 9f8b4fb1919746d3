package controllers

import (
	"encoding/binary"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sar_command/internal/config"
	"sar_command/internal/models"
	"sar_command/internal/osm"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// IncidentResponse mirrors models.Incident but has SearchArea as a GeoJSON
// string for API output.
type IncidentResponse struct {
	ID           uint              `json:"ID"`
	CreatedAt    time.Time         `json:"CreatedAt"`
	UpdatedAt    time.Time         `json:"UpdatedAt"`
	Name         string            `json:"name"`
	IncidentType string            `json:"incident_type"`
	Status       string            `json:"status"`
	Lat          float64           `json:"lat"`
	Lng          float64           `json:"lng"`
	Address      string            `json:"address"`
	SearchArea   string            `json:"search_area"`
	Divisions    []models.Division `json:"divisions,omitempty"`
}

func toIncidentResponse(incident models.Incident) IncidentResponse {
	jsonGeom, _ := convertWKBToGeoJSON(incident.SearchArea)
	return IncidentResponse{
		ID:           incident.ID,
		CreatedAt:    incident.CreatedAt,
		UpdatedAt:    incident.UpdatedAt,
		Name:         incident.Name,
		IncidentType: incident.IncidentType,
		Status:       incident.Status,
		Lat:          incident.Lat,
		Lng:          incident.Lng,
		Address:      incident.Address,
		SearchArea:   jsonGeom,
		Divisions:    incident.Divisions,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	err := gjson.Unmarshal([]byte(raw), &g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateIncident opens a new incident. When the caller supplies an address
// but no coordinates the point of origin is geocoded via Nominatim;
// geocoding failures are non-fatal and leave the incident ungeocoded.
func CreateIncident(c *gin.Context) {
	var input struct {
		Name         string   `json:"name" binding:"required"`
		IncidentType string   `json:"incident_type"`
		Lat          *float64 `json:"lat"`
		Lng          *float64 `json:"lng"`
		Address      string   `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateIncident: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	incident := models.Incident{
		Name:         input.Name,
		IncidentType: input.IncidentType,
		Status:       "active",
		Address:      input.Address,
	}
	if input.Lat != nil && input.Lng != nil {
		incident.Lat = *input.Lat
		incident.Lng = *input.Lng
	} else if input.Address != "" {
		lat, lng, err := osm.Default().Geocode(c.Request.Context(), input.Address)
		if err != nil {
			logrus.WithError(err).WithField("address", input.Address).Warn("CreateIncident: geocoding failed, incident created without coordinates")
		} else {
			incident.Lat = lat
			incident.Lng = lng
		}
	}

	if err := config.DB.Create(&incident).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create incident failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"incident": toIncidentResponse(incident)})
}

// ListIncidents returns all incidents, newest first.
func ListIncidents(c *gin.Context) {
	var incidents []models.Incident
	config.DB.Order("created_at desc").Find(&incidents)

	var out []IncidentResponse
	for _, incident := range incidents {
		out = append(out, toIncidentResponse(incident))
	}
	c.JSON(http.StatusOK, gin.H{"incidents": out})
}

// GetIncident returns one incident with its divisions.
func GetIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := config.DB.Preload("Divisions").First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"incident": toIncidentResponse(incident)})
}

// UpdateIncident applies partial updates to an incident.
func UpdateIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		Name         *string  `json:"name"`
		IncidentType *string  `json:"incident_type"`
		Status       *string  `json:"status"`
		Lat          *float64 `json:"lat"`
		Lng          *float64 `json:"lng"`
		Address      *string  `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		incident.Name = *input.Name
	}
	if input.IncidentType != nil {
		incident.IncidentType = *input.IncidentType
	}
	if input.Status != nil {
		if *input.Status != "active" && *input.Status != "closed" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'active' or 'closed'"})
			return
		}
		incident.Status = *input.Status
	}
	if input.Lat != nil {
		incident.Lat = *input.Lat
	}
	if input.Lng != nil {
		incident.Lng = *input.Lng
	}
	if input.Address != nil {
		incident.Address = *input.Address
	}

	if err := config.DB.Save(&incident).Error; err != nil {
		logrus.WithError(err).Error("UpdateIncident: failed to save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incident": toIncidentResponse(incident)})
}

// DeleteIncident removes an incident and its divisions.
func DeleteIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
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

	if err := tx.Unscoped().Where("incident_id = ?", incident.ID).Delete(&models.Division{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete divisions: " + err.Error()})
		return
	}
	if err := tx.Delete(&incident).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete incident: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Incident deleted successfully"})
}

// NearbyHospitals lists hospitals around the incident's point of origin,
// closest first. The radius defaults to 10 km.
func NearbyHospitals(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}
	if incident.Lat == 0 && incident.Lng == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incident has no point of origin"})
		return
	}

	radius := 10000.0
	if raw := c.Query("radius_m"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			radius = v
		}
	}

	hospitals, err := osm.Default().FetchHospitals(c.Request.Context(), incident.Lat, incident.Lng, radius)
	if err != nil {
		logrus.WithError(err).Error("NearbyHospitals: hospital lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Hospital lookup failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"hospitals": hospitals})
}
