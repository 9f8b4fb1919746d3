package models

import (
	"gorm.io/gorm"
)

// Unit is a field team available to an incident. Status moves through
// "available" -> "assigned" -> "searching" -> "out_of_service".
type Unit struct {
	gorm.Model

	CallSign    string `json:"call_sign" binding:"required"`
	Kind        string `json:"kind"` // "ground", "k9", "medical", "drone"
	Status      string `json:"status" gorm:"default:available"`
	MemberCount int    `json:"member_count"`

	IncidentID uint  `json:"incident_id" gorm:"index"`
	DivisionID *uint `json:"division_id"`
}
