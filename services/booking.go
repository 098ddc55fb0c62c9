package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// bookingTransitions maps a lifecycle action to its sole allowed source
// status and the resulting status. Cancel is handled separately because it
// applies from any non-terminal status.
var bookingTransitions = map[string][2]string{
	"approve":     {models.BookingStatusPending, models.BookingStatusApproved},
	"reject":      {models.BookingStatusPending, models.BookingStatusRejected},
	"pay deposit": {models.BookingStatusApproved, models.BookingStatusDepositPaid},
	"move in":     {models.BookingStatusDepositPaid, models.BookingStatusActive},
	"complete":    {models.BookingStatusActive, models.BookingStatusCompleted},
	"terminate":   {models.BookingStatusActive, models.BookingStatusTerminated},
}

var nonTerminalStatuses = []string{
	models.BookingStatusPending,
	models.BookingStatusApproved,
	models.BookingStatusDepositPaid,
	models.BookingStatusActive,
}

// BookingService drives a booking from creation through approval, occupancy
// and termination, keeping the unit ledger consistent on every transition.
type BookingService struct {
	db       *gorm.DB
	notifier NotificationDispatcher
}

func NewBookingService(db *gorm.DB, notifier NotificationDispatcher) *BookingService {
	if notifier == nil {
		notifier = LogDispatcher{}
	}
	return &BookingService{db: db, notifier: notifier}
}

type CreateBookingInput struct {
	TenantID    uint
	PropertyID  uint
	UnitID      uint
	StartDate   time.Time
	EndDate     time.Time
	AmenityFees map[string]int64
}

// Create reserves the unit and inserts the booking in one transaction, then
// schedules the deposit charge. A race between two create calls on the same
// unit resolves in the ledger: exactly one reservation wins, the loser's
// transaction rolls back whole.
func (s *BookingService) Create(input CreateBookingInput) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var unit models.Unit
		if err := tx.First(&unit, input.UnitID).Error; err != nil {
			return err
		}
		if unit.PropertyID != input.PropertyID {
			return &ValidationError{Field: "unitID", Reason: "unit does not belong to property"}
		}
		if !input.EndDate.IsZero() && !input.EndDate.After(input.StartDate) {
			return &ValidationError{Field: "endDate", Reason: "lease end must be after start"}
		}

		total := unit.MonthlyRent
		for _, fee := range input.AmenityFees {
			if fee > 0 {
				total += fee
			}
		}
		feesJSON, _ := json.Marshal(input.AmenityFees)

		b := models.Booking{
			PropertyID:      input.PropertyID,
			UnitID:          input.UnitID,
			TenantID:        input.TenantID,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
			MonthlyRent:     unit.MonthlyRent,
			AmenityFees:     datatypes.JSON(feesJSON),
			TotalMonthlyFee: total,
			Status:          models.BookingStatusPending,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		b.BookingNumber = fmt.Sprintf("BKG-%06d", b.ID)
		if err := tx.Model(&b).Update("booking_number", b.BookingNumber).Error; err != nil {
			return err
		}

		if err := NewUnitLedger(tx).Reserve(unit.ID, b.ID); err != nil {
			return err
		}

		// Deposit falls due at booking creation.
		if unit.Deposit > 0 {
			if _, err := createPayment(tx, &b, models.PaymentTypeDeposit, unit.Deposit, input.StartDate); err != nil {
				return err
			}
		}

		booking = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Get loads a booking with its unit.
func (s *BookingService) Get(bookingID uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.Preload("Unit").First(&b, bookingID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Approve moves a pending booking to approved.
func (s *BookingService) Approve(bookingID uint) (*models.Booking, error) {
	b, err := s.transition(bookingID, "approve")
	if err != nil {
		return nil, err
	}
	s.notifier.Send(b.TenantID, TemplateBookingApproved, map[string]string{"bookingNumber": b.BookingNumber})
	return b, nil
}

// Reject moves a pending booking to rejected and releases its unit.
func (s *BookingService) Reject(bookingID uint) (*models.Booking, error) {
	b, err := s.transition(bookingID, "reject")
	if err != nil {
		return nil, err
	}
	s.notifier.Send(b.TenantID, TemplateBookingRejected, map[string]string{"bookingNumber": b.BookingNumber})
	return b, nil
}

// MarkDepositPaid is the reconciliation side effect of a completed deposit
// payment: approved -> deposit_paid.
func (s *BookingService) MarkDepositPaid(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, "pay deposit")
}

// MoveIn activates occupancy: deposit_paid -> active, unit -> occupied.
func (s *BookingService) MoveIn(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, "move in")
}

// Complete closes out an active booking after vacate inspection and releases
// the unit.
func (s *BookingService) Complete(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, "complete")
}

// Terminate ends an active booking early and releases the unit.
func (s *BookingService) Terminate(bookingID uint) (*models.Booking, error) {
	return s.transition(bookingID, "terminate")
}

// Cancel moves any non-terminal booking to cancelled and releases its unit.
func (s *BookingService) Cancel(bookingID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN ?", bookingID, nonTerminalStatuses).
			Update("status", models.BookingStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: "cancel"}
		}
		if err := NewUnitLedger(tx).Release(b.UnitID); err != nil {
			return err
		}
		b.Status = models.BookingStatusCancelled
		booking = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// SubmitVacateNotice records a tenant's notice of intent to vacate. Valid
// only while the booking is active; the status itself does not change.
func (s *BookingService) SubmitVacateNotice(bookingID uint, intendedDate time.Time, reason string) (*models.Booking, error) {
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, models.BookingStatusActive).
			Updates(map[string]interface{}{
				"vacate_submitted":     true,
				"vacate_notice_date":   now,
				"vacate_intended_date": intendedDate,
				"vacate_reason":        reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: "submit vacate notice for"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b, err := s.Get(bookingID)
	if err == nil {
		s.notifier.Send(b.TenantID, TemplateVacateNotice, map[string]string{"bookingNumber": b.BookingNumber})
	}
	return b, err
}

// OfferRenewal records a renewal offer on an active booking, awaiting tenant
// acceptance. The booking status does not change.
func (s *BookingService) OfferRenewal(bookingID uint, newRent int64) (*models.Booking, error) {
	if newRent <= 0 {
		return nil, &ValidationError{Field: "newRent", Reason: "must be positive"}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, models.BookingStatusActive).
			Updates(map[string]interface{}{
				"renewal_offered":  true,
				"renewal_new_rent": newRent,
				"renewal_accepted": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: "offer renewal for"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b, err := s.Get(bookingID)
	if err == nil {
		s.notifier.Send(b.TenantID, TemplateRenewalOffer, map[string]string{"bookingNumber": b.BookingNumber})
	}
	return b, err
}

// AcceptRenewal applies an outstanding renewal offer: the new rent becomes
// the booking's monthly rent and the total fee is recomputed.
func (s *BookingService) AcceptRenewal(bookingID uint) (*models.Booking, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		if b.Status != models.BookingStatusActive || !b.Renewal.Offered {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: "accept renewal for"}
		}
		total := b.Renewal.NewRent
		for _, fee := range b.AmenityFeeMap() {
			if fee > 0 {
				total += fee
			}
		}
		return tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND renewal_offered = ?", bookingID, models.BookingStatusActive, true).
			Updates(map[string]interface{}{
				"renewal_accepted":  true,
				"monthly_rent":      b.Renewal.NewRent,
				"total_monthly_fee": total,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(bookingID)
}

// Delete removes a booking. A booking still holding its unit (anything
// non-terminal) releases it first, mirroring the termination path.
func (s *BookingService) Delete(bookingID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		if !b.TerminalStatus() {
			if err := NewUnitLedger(tx).Release(b.UnitID); err != nil {
				return err
			}
		}
		return tx.Delete(&b).Error
	})
}

// transition applies one single-source lifecycle action atomically. Unknown
// source status or a lost conditional update rejects with
// InvalidTransitionError and mutates nothing.
func (s *BookingService) transition(bookingID uint, action string) (*models.Booking, error) {
	rule, ok := bookingTransitions[action]
	if !ok {
		return nil, errors.New("unknown booking action: " + action)
	}
	from, to := rule[0], rule[1]

	var booking *models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: action}
		}

		ledger := NewUnitLedger(tx)
		switch to {
		case models.BookingStatusRejected, models.BookingStatusTerminated, models.BookingStatusCompleted:
			if err := ledger.Release(b.UnitID); err != nil {
				return err
			}
		case models.BookingStatusActive:
			if err := ledger.Activate(b.UnitID, b.TenantID); err != nil {
				return err
			}
		}

		b.Status = to
		booking = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}
