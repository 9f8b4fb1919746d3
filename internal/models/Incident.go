package models

import (
	"gorm.io/gorm"
)

// Incident is a search-and-rescue operation anchored at a point of origin.
// Divisions are generated against its search area.
type Incident struct {
	gorm.Model

	Name         string  `json:"name" binding:"required"`
	IncidentType string  `json:"incident_type"` // free text: "missing_person", "earthquake", ...
	Status       string  `json:"status" gorm:"default:active"` // "active", "closed"
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Address      string  `json:"address"`

	// Search area boundary stored in PostGIS as a POLYGON (SRID 4326), WKB encoded.
	SearchArea []byte `gorm:"type:bytea" json:"-"`

	// Associations
	Divisions []Division `gorm:"foreignKey:IncidentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"divisions,omitempty"`
	Units     []Unit     `gorm:"foreignKey:IncidentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"units,omitempty"`
}
