// Package store persists generated divisions through gorm/Postgres, with
// geometry encoded as WKB in bytea columns.
package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"gorm.io/gorm"

	"sar_command/internal/divisions"
	"sar_command/internal/models"
)

// DivisionStore implements divisions.Store on a gorm handle.
type DivisionStore struct {
	db *gorm.DB
}

func NewDivisionStore(db *gorm.DB) *DivisionStore {
	return &DivisionStore{db: db}
}

// ReplaceDivisions deletes every stored division for the incident and bulk
// inserts the new set in one transaction. A crash between the two leaves
// the incident with zero divisions, which callers treat as "needs
// regeneration".
func (s *DivisionStore) ReplaceDivisions(ctx context.Context, incidentID uint, divs []divisions.Division) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("incident_id = ?", incidentID).Delete(&models.Division{}).Error; err != nil {
			return fmt.Errorf("delete existing divisions: %w", err)
		}
		if len(divs) == 0 {
			return nil
		}
		rows := make([]models.Division, 0, len(divs))
		for _, d := range divs {
			row, err := ToModel(incidentID, d)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert divisions: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"incident_id": incidentID,
			"divisions":   len(rows),
		}).Info("replaced stored divisions")
		return nil
	})
}

// LoadDivisions returns the stored divisions for an incident, code order.
func (s *DivisionStore) LoadDivisions(ctx context.Context, incidentID uint) ([]divisions.Division, error) {
	var rows []models.Division
	if err := s.db.WithContext(ctx).Where("incident_id = ?", incidentID).Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]divisions.Division, 0, len(rows))
	for _, row := range rows {
		d, err := FromModel(row)
		if err != nil {
			logrus.WithError(err).WithField("division_id", row.ID).Warn("skipping division with undecodable geometry")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// DeleteDivisions removes every division for the incident.
func (s *DivisionStore) DeleteDivisions(ctx context.Context, incidentID uint) error {
	return s.db.WithContext(ctx).Unscoped().Where("incident_id = ?", incidentID).Delete(&models.Division{}).Error
}

// ToModel converts an engine division into its database row.
func ToModel(incidentID uint, d divisions.Division) (models.Division, error) {
	geometry, err := EncodePolygon(d.Polygon)
	if err != nil {
		return models.Division{}, fmt.Errorf("encode division %s geometry: %w", d.Code, err)
	}
	return models.Division{
		IncidentID:             incidentID,
		Code:                   d.Code,
		Name:                   d.Name,
		Geometry:               geometry,
		AreaM2:                 d.AreaM2,
		StructureCount:         d.StructureCount,
		SearchableAreaM2:       d.SearchableAreaM2,
		BuildingTypes:          d.BuildingTypeSummary,
		RoadAccess:             d.RoadAccessSummary,
		Priority:               d.Priority,
		Status:                 d.Status,
		SearchType:             d.SearchType,
		EstimatedDurationHours: d.EstimatedDurationHours,
	}, nil
}

// FromModel converts a database row back into an engine division.
func FromModel(row models.Division) (divisions.Division, error) {
	poly, err := DecodePolygon(row.Geometry)
	if err != nil {
		return divisions.Division{}, err
	}
	return divisions.Division{
		Code:                   row.Code,
		Name:                   row.Name,
		Polygon:                poly,
		AreaM2:                 row.AreaM2,
		StructureCount:         row.StructureCount,
		SearchableAreaM2:       row.SearchableAreaM2,
		BuildingTypeSummary:    row.BuildingTypes,
		RoadAccessSummary:      row.RoadAccess,
		Priority:               row.Priority,
		Status:                 row.Status,
		SearchType:             row.SearchType,
		EstimatedDurationHours: row.EstimatedDurationHours,
	}, nil
}

// EncodePolygon marshals a polygon to WKB bytes.
func EncodePolygon(p *geom.Polygon) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return wkb.Marshal(p, binary.LittleEndian)
}

// DecodePolygon unmarshals WKB bytes back into a polygon.
func DecodePolygon(raw []byte) (*geom.Polygon, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("expected polygon geometry, got %T", g)
	}
	return poly, nil
}
