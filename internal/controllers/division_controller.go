package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sar_command/internal/config"
	"sar_command/internal/divisions"
	"sar_command/internal/models"
	"sar_command/internal/osm"
	"sar_command/internal/store"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
)

// DivisionResponse mirrors divisions.Division with the boundary as a
// GeoJSON string for API output.
type DivisionResponse struct {
	ID                     uint     `json:"ID,omitempty"`
	Code                   string   `json:"code"`
	Name                   string   `json:"name"`
	Geometry               string   `json:"geometry"`
	AreaM2                 float64  `json:"area_m2"`
	StructureCount         int      `json:"structure_count"`
	SearchableAreaM2       float64  `json:"searchable_area_m2"`
	BuildingTypes          []string `json:"building_types"`
	RoadAccess             string   `json:"road_access"`
	Priority               string   `json:"priority"`
	Status                 string   `json:"status"`
	SearchType             string   `json:"search_type"`
	EstimatedDurationHours float64  `json:"estimated_duration_hours"`
	UnitID                 *uint    `json:"unit_id,omitempty"`
}

func toDivisionResponse(d divisions.Division) DivisionResponse {
	var jsonGeom string
	if d.Polygon != nil {
		if b, err := gjson.Marshal(d.Polygon); err == nil {
			jsonGeom = string(b)
		}
	}
	return DivisionResponse{
		Code:                   d.Code,
		Name:                   d.Name,
		Geometry:               jsonGeom,
		AreaM2:                 d.AreaM2,
		StructureCount:         d.StructureCount,
		SearchableAreaM2:       d.SearchableAreaM2,
		BuildingTypes:          d.BuildingTypeSummary,
		RoadAccess:             d.RoadAccessSummary,
		Priority:               d.Priority,
		Status:                 d.Status,
		SearchType:             d.SearchType,
		EstimatedDurationHours: d.EstimatedDurationHours,
	}
}

func toStoredDivisionResponse(row models.Division) DivisionResponse {
	jsonGeom, _ := convertWKBToGeoJSON(row.Geometry)
	return DivisionResponse{
		ID:                     row.ID,
		Code:                   row.Code,
		Name:                   row.Name,
		Geometry:               jsonGeom,
		AreaM2:                 row.AreaM2,
		StructureCount:         row.StructureCount,
		SearchableAreaM2:       row.SearchableAreaM2,
		BuildingTypes:          row.BuildingTypes,
		RoadAccess:             row.RoadAccess,
		Priority:               row.Priority,
		Status:                 row.Status,
		SearchType:             row.SearchType,
		EstimatedDurationHours: row.EstimatedDurationHours,
		UnitID:                 row.UnitID,
	}
}

// newGenerator wires the engine against the shared OSM client and the
// gorm-backed store.
func newGenerator() *divisions.Generator {
	return divisions.NewGenerator(osm.Default(), store.NewDivisionStore(config.DB), config.EngineConfig())
}

// parseSearchAreaRing decodes a GeoJSON polygon string into its outer ring.
func parseSearchAreaRing(raw string) ([]geom.Coord, error) {
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok || poly.NumLinearRings() == 0 {
		return nil, errors.New("search_area must be a GeoJSON Polygon")
	}
	return poly.Coords()[0], nil
}

type generateInput struct {
	SearchArea   string   `json:"search_area" binding:"required"` // GeoJSON Polygon
	TargetAreaM2 float64  `json:"target_area_m2"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// incidentPoint resolves the point of origin: explicit coordinates in the
// request win, otherwise the incident's stored point is used when present.
func incidentPoint(input generateInput, incident *models.Incident) geom.Coord {
	if input.Lat != nil && input.Lng != nil {
		return geom.Coord{*input.Lng, *input.Lat}
	}
	if incident != nil && (incident.Lat != 0 || incident.Lng != 0) {
		return geom.Coord{incident.Lng, incident.Lat}
	}
	return nil
}

// PreviewDivisions partitions a search area without persisting anything.
func PreviewDivisions(c *gin.Context) {
	var input generateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	ring, err := parseSearchAreaRing(input.SearchArea)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search area: " + err.Error()})
		return
	}

	divs, err := newGenerator().GeneratePreview(c.Request.Context(), ring, input.TargetAreaM2, incidentPoint(input, nil))
	if err != nil {
		if errors.Is(err, divisions.ErrInvalidSearchArea) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("PreviewDivisions: generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]DivisionResponse, 0, len(divs))
	for _, d := range divs {
		out = append(out, toDivisionResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"divisions": out})
}

// GenerateDivisions generates divisions for an incident and replaces its
// stored set. The submitted search area is saved on the incident.
func GenerateDivisions(c *gin.Context) {
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

	var input generateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	ring, err := parseSearchAreaRing(input.SearchArea)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search area: " + err.Error()})
		return
	}

	divs, err := newGenerator().GenerateAndSave(c.Request.Context(), incident.ID, ring, input.TargetAreaM2, incidentPoint(input, &incident))
	if err != nil {
		if errors.Is(err, divisions.ErrInvalidSearchArea) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).WithField("incident_id", incident.ID).Error("GenerateDivisions: generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Record the boundary the divisions were generated against.
	if wkbArea, err := parseAndConvertGeometry(input.SearchArea); err == nil {
		incident.SearchArea = wkbArea
		if err := config.DB.Save(&incident).Error; err != nil {
			logrus.WithError(err).Warn("GenerateDivisions: failed to save search area on incident")
		}
	}

	out := make([]DivisionResponse, 0, len(divs))
	for _, d := range divs {
		out = append(out, toDivisionResponse(d))
	}
	c.JSON(http.StatusCreated, gin.H{"divisions": out})
}

// ListDivisions returns the stored divisions for an incident.
func ListDivisions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var rows []models.Division
	if err := config.DB.Where("incident_id = ?", id).Order("code").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]DivisionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStoredDivisionResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"divisions": out})
}

var validDivisionStatuses = map[string]bool{
	"unassigned":  true,
	"assigned":    true,
	"in_progress": true,
	"searched":    true,
	"cleared":     true,
}

// UpdateDivisionStatus moves a division through its search workflow and
// broadcasts the change on the incident's live feed.
func UpdateDivisionStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid division ID"})
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validDivisionStatuses[input.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid division status: " + input.Status})
		return
	}

	var division models.Division
	if err := config.DB.First(&division, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Division not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	division.Status = input.Status
	if err := config.DB.Save(&division).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	divisionFeed.PublishStatus(division.IncidentID, map[string]interface{}{
		"incident_id": float64(division.IncidentID),
		"division_id": division.ID,
		"code":        division.Code,
		"status":      division.Status,
		"unit_id":     division.UnitID,
	})

	c.JSON(http.StatusOK, gin.H{"division": toStoredDivisionResponse(division)})
}

// AssignUnit attaches a unit to a division and marks both assigned.
func AssignUnit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid division ID"})
		return
	}

	var input struct {
		UnitID uint `json:"unit_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var division models.Division
	if err := config.DB.First(&division, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Division not found"})
		return
	}
	var unit models.Unit
	if err := config.DB.First(&unit, input.UnitID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return
	}
	if unit.Status == "out_of_service" {
		c.JSON(http.StatusConflict, gin.H{"error": "Unit is out of service"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	division.UnitID = &unit.ID
	if division.Status == "unassigned" {
		division.Status = "assigned"
	}
	if err := tx.Save(&division).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign division: " + err.Error()})
		return
	}

	unit.Status = "assigned"
	unit.DivisionID = &division.ID
	unit.IncidentID = division.IncidentID
	if err := tx.Save(&unit).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update unit: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	divisionFeed.PublishStatus(division.IncidentID, map[string]interface{}{
		"incident_id": float64(division.IncidentID),
		"division_id": division.ID,
		"code":        division.Code,
		"status":      division.Status,
		"unit_id":     division.UnitID,
	})

	c.JSON(http.StatusOK, gin.H{"division": toStoredDivisionResponse(division), "unit": unit})
}
