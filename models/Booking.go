package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BookingStatusPending     = "pending"
	BookingStatusApproved    = "approved"
	BookingStatusRejected    = "rejected"
	BookingStatusDepositPaid = "deposit_paid"
	BookingStatusActive      = "active"
	BookingStatusTerminated  = "terminated"
	BookingStatusCompleted   = "completed"
	BookingStatusCancelled   = "cancelled"
)

// VacateNotice is a tenant's notice of intent to leave, recorded on the
// booking without changing its status.
type VacateNotice struct {
	Submitted    bool       `json:"submitted"`
	NoticeDate   *time.Time `json:"noticeDate"`
	IntendedDate *time.Time `json:"intendedDate"`
	Reason       string     `json:"reason"`
	Approved     bool       `json:"approved"`
}

// Renewal is a landlord's renewal offer awaiting tenant acceptance.
type Renewal struct {
	Offered  bool  `json:"offered"`
	NewRent  int64 `json:"newRent"`
	Accepted bool  `json:"accepted"`
}

type Booking struct {
	gorm.Model
	BookingNumber   string         `json:"bookingNumber" gorm:"size:20;uniqueIndex"`
	PropertyID      uint           `json:"propertyID" gorm:"index"`
	UnitID          uint           `json:"unitID" gorm:"index"`
	TenantID        uint           `json:"tenantID" gorm:"index"`
	StartDate       time.Time      `json:"startDate"`
	EndDate         time.Time      `json:"endDate"`
	MonthlyRent     int64          `json:"monthlyRent"`
	AmenityFees     datatypes.JSON `json:"amenityFees"`     // map of fee name -> whole KES
	TotalMonthlyFee int64          `json:"totalMonthlyFee"` // rent + non-zero amenity fees
	Status          string         `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, approved, rejected, deposit_paid, active, terminated, completed, cancelled

	VacateNotice VacateNotice `json:"vacateNotice" gorm:"embedded;embeddedPrefix:vacate_"`
	Renewal      Renewal      `json:"renewal" gorm:"embedded;embeddedPrefix:renewal_"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Unit     *Unit     `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

// TerminalStatus reports whether the booking can no longer transition.
func (b *Booking) TerminalStatus() bool {
	switch b.Status {
	case BookingStatusRejected, BookingStatusTerminated, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// AmenityFeeMap decodes the AmenityFees JSON column. A nil or empty column
// decodes to an empty map.
func (b *Booking) AmenityFeeMap() map[string]int64 {
	fees := map[string]int64{}
	if b.AmenityFees != nil {
		json.Unmarshal(b.AmenityFees, &fees)
	}
	return fees
}
