package services

import (
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"

	"gorm.io/gorm"
)

// UnitLedger is the single source of truth for unit occupancy. Every status
// transition is a conditional UPDATE keyed on the expected current status, so
// two racing callers cannot both win the same unit. All callers go through
// these methods; handlers never assign Unit.Status directly.
type UnitLedger struct {
	db *gorm.DB
}

func NewUnitLedger(db *gorm.DB) *UnitLedger {
	return &UnitLedger{db: db}
}

// Reserve moves an available unit to reserved and records the holding
// booking. Returns ErrUnitUnavailable if the unit is in any other status.
func (l *UnitLedger) Reserve(unitID, bookingID uint) error {
	res := l.db.Model(&models.Unit{}).
		Where("id = ? AND status = ?", unitID, models.UnitStatusAvailable).
		Updates(map[string]interface{}{
			"status":     models.UnitStatusReserved,
			"booking_id": bookingID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnitUnavailable
	}
	return l.recountAvailable(unitID)
}

// Activate moves a reserved unit to occupied, recording the tenant and the
// move-in date.
func (l *UnitLedger) Activate(unitID, tenantID uint) error {
	now := time.Now()
	res := l.db.Model(&models.Unit{}).
		Where("id = ? AND status = ?", unitID, models.UnitStatusReserved).
		Updates(map[string]interface{}{
			"status":       models.UnitStatusOccupied,
			"tenant_id":    tenantID,
			"move_in_date": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return l.transitionError(unitID, "activate")
	}
	return l.recountAvailable(unitID)
}

// Release returns a reserved or occupied unit to available and clears its
// occupant. Releasing an already-available unit is a no-op.
func (l *UnitLedger) Release(unitID uint) error {
	res := l.db.Model(&models.Unit{}).
		Where("id = ? AND status IN ?", unitID, []string{models.UnitStatusReserved, models.UnitStatusOccupied}).
		Updates(map[string]interface{}{
			"status":       models.UnitStatusAvailable,
			"tenant_id":    nil,
			"booking_id":   nil,
			"move_in_date": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var unit models.Unit
		if err := l.db.Select("status").First(&unit, unitID).Error; err != nil {
			return err
		}
		if unit.Status == models.UnitStatusAvailable {
			return nil // idempotent
		}
		return &InvalidTransitionError{Entity: "unit", From: unit.Status, Action: "release"}
	}
	return l.recountAvailable(unitID)
}

// StartMaintenance takes an available unit out of circulation.
func (l *UnitLedger) StartMaintenance(unitID uint) error {
	res := l.db.Model(&models.Unit{}).
		Where("id = ? AND status = ?", unitID, models.UnitStatusAvailable).
		Update("status", models.UnitStatusMaintenance)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return l.transitionError(unitID, "start maintenance on")
	}
	return l.recountAvailable(unitID)
}

// EndMaintenance returns a unit from maintenance to available.
func (l *UnitLedger) EndMaintenance(unitID uint) error {
	res := l.db.Model(&models.Unit{}).
		Where("id = ? AND status = ?", unitID, models.UnitStatusMaintenance).
		Update("status", models.UnitStatusAvailable)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return l.transitionError(unitID, "end maintenance on")
	}
	return l.recountAvailable(unitID)
}

func (l *UnitLedger) transitionError(unitID uint, action string) error {
	var unit models.Unit
	if err := l.db.Select("status").First(&unit, unitID).Error; err != nil {
		return err
	}
	return &InvalidTransitionError{Entity: "unit", From: unit.Status, Action: action}
}

// recountAvailable refreshes the parent property's availableUnits counter
// after a ledger transition.
func (l *UnitLedger) recountAvailable(unitID uint) error {
	var unit models.Unit
	if err := l.db.Select("property_id").First(&unit, unitID).Error; err != nil {
		return err
	}
	var available int64
	if err := l.db.Model(&models.Unit{}).
		Where("property_id = ? AND status = ?", unit.PropertyID, models.UnitStatusAvailable).
		Count(&available).Error; err != nil {
		return err
	}
	return l.db.Model(&models.Property{}).
		Where("id = ?", unit.PropertyID).
		Update("available_units", available).Error
}
