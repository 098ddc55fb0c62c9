package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	UnitStatusAvailable   = "available"
	UnitStatusReserved    = "reserved"
	UnitStatusOccupied    = "occupied"
	UnitStatusMaintenance = "maintenance"
)

type Unit struct {
	gorm.Model
	PropertyID  uint       `json:"propertyID" gorm:"index;uniqueIndex:idx_property_unit_number"`
	UnitNumber  string     `json:"unitNumber" gorm:"uniqueIndex:idx_property_unit_number"`
	Floor       int        `json:"floor"`
	SizeSqm     float64    `json:"sizeSqm"`
	MonthlyRent int64      `json:"monthlyRent"` // whole KES, M-Pesa carries no subunit
	Deposit     int64      `json:"deposit"`
	Status      string     `json:"status" gorm:"type:varchar(20);default:'available';index"` // available, reserved, occupied, maintenance
	TenantID    *uint      `json:"tenantID"`
	BookingID   *uint      `json:"bookingID"` // booking currently holding the unit
	MoveInDate  *time.Time `json:"moveInDate"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}
