package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Division is one contiguous sub-area of an incident's search boundary,
// assigned to a single team.
type Division struct {
	gorm.Model

	IncidentID uint   `json:"incident_id" gorm:"index"`
	Code       string `json:"code"` // "A", "B", ..., "AA"
	Name       string `json:"name"`

	// Boundary stored in PostGIS as a POLYGON (SRID 4326), WKB encoded.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	AreaM2                 float64        `json:"area_m2"`
	StructureCount         int            `json:"structure_count"`
	SearchableAreaM2       float64        `json:"searchable_area_m2"`
	BuildingTypes          pq.StringArray `gorm:"type:text[]" json:"building_types"`
	RoadAccess             string         `json:"road_access"`
	Priority               string         `json:"priority"` // "high", "medium", "low"
	Status                 string         `json:"status" gorm:"default:unassigned"`
	SearchType             string         `json:"search_type"` // "walkable_structure_search", "primary"
	EstimatedDurationHours float64        `json:"estimated_duration_hours"`

	UnitID *uint `json:"unit_id"`
}
