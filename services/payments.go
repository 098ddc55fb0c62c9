package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// Late fee is 5% of the amount with a 500 KES floor.
	lateFeePercent = 5
	lateFeeFloor   = 500

	// M-Pesa STK push bounds, whole KES.
	minCollectionAmount = 1
	maxCollectionAmount = 150000

	// DefaultCollectionWindow is how long an initiated collection may sit
	// without a callback before it is eligible to expire.
	DefaultCollectionWindow = 15 * time.Minute
)

var collectableStatuses = []string{models.PaymentStatusPending, models.PaymentStatusProcessing}

// PaymentService owns the payment lifecycle: scheduling charges, initiating
// mobile-money collection through the injected gateway, and reconciling
// asynchronous confirmations. Completion happens only here, never from a
// client-supplied status.
type PaymentService struct {
	db       *gorm.DB
	gateway  PaymentGateway
	notifier NotificationDispatcher
	window   time.Duration
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, notifier NotificationDispatcher, window time.Duration) *PaymentService {
	if notifier == nil {
		notifier = LogDispatcher{}
	}
	if window <= 0 {
		window = DefaultCollectionWindow
	}
	return &PaymentService{db: db, gateway: gateway, notifier: notifier, window: window}
}

func validPaymentType(t string) bool {
	switch t {
	case models.PaymentTypeRent, models.PaymentTypeDeposit, models.PaymentTypeAmenity,
		models.PaymentTypeLateFee, models.PaymentTypeMaintenance, models.PaymentTypeOther:
		return true
	}
	return false
}

// createPayment inserts a pending payment for a booking inside the caller's
// transaction and assigns its sequential number.
func createPayment(tx *gorm.DB, booking *models.Booking, paymentType string, amount int64, dueDate time.Time) (*models.Payment, error) {
	if !validPaymentType(paymentType) {
		return nil, &ValidationError{Field: "paymentType", Reason: "unknown type " + paymentType}
	}
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	p := models.Payment{
		BookingID:   booking.ID,
		TenantID:    booking.TenantID,
		PropertyID:  booking.PropertyID,
		Amount:      amount,
		PaymentType: paymentType,
		DueDate:     dueDate,
		Status:      models.PaymentStatusPending,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}
	p.PaymentNumber = fmt.Sprintf("PAY-%06d", p.ID)
	if err := tx.Model(&p).Update("payment_number", p.PaymentNumber).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Schedule creates a pending charge against a booking.
func (s *PaymentService) Schedule(bookingID uint, paymentType string, amount int64, dueDate time.Time) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		p, err := createPayment(tx, &b, paymentType, amount, dueDate)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ScheduleNextRent creates the coming month's rent charge for an active
// booking, due on the first of next month.
func (s *PaymentService) ScheduleNextRent(bookingID uint) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, bookingID).Error; err != nil {
			return err
		}
		if b.Status != models.BookingStatusActive {
			return &InvalidTransitionError{Entity: "booking", From: b.Status, Action: "schedule rent for"}
		}
		now := time.Now()
		due := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		p, err := createPayment(tx, &b, models.PaymentTypeRent, b.TotalMonthlyFee, due)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// EvaluateLateness derives the late fields from (amount, dueDate, asOf,
// paidDate). It never touches the amount and never runs after payment: once
// paidDate is set the frozen values stand. Pure; the caller decides whether
// the result is persisted.
func EvaluateLateness(p *models.Payment, asOf time.Time) {
	if p.PaidDate != nil {
		return
	}
	if !asOf.After(p.DueDate) {
		p.IsLate = false
		p.LateDays = 0
		p.LateFee = 0
		return
	}
	days := int((asOf.Sub(p.DueDate) + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	fee := (p.Amount*lateFeePercent + 99) / 100
	if fee < lateFeeFloor {
		fee = lateFeeFloor
	}
	p.IsLate = true
	p.LateDays = days
	p.LateFee = fee
}

// Get loads a payment with lateness evaluated as of now. Late fields of an
// unpaid payment are derived on every read, never served stale.
func (s *PaymentService) Get(paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	EvaluateLateness(&p, time.Now())
	return &p, nil
}

// ListByBooking returns a booking's payments, lateness freshly evaluated.
func (s *PaymentService) ListByBooking(bookingID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("booking_id = ?", bookingID).Order("due_date").Find(&payments).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range payments {
		EvaluateLateness(&payments[i], now)
	}
	return payments, nil
}

// InitiateCollection asks the gateway to charge the tenant's phone and
// stores the correlation ids. The payment is not marked paid here; that is
// reconciliation's job. A gateway failure leaves the payment untouched.
func (s *PaymentService) InitiateCollection(paymentID uint, phoneNumber string) (*models.Payment, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !utils.ValidatePhoneNumber(phoneNumber) {
		return nil, &ValidationError{Field: "phoneNumber", Reason: "must match 254XXXXXXXXX or 0XXXXXXXXX"}
	}

	var p models.Payment
	if err := s.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusProcessing {
		return nil, &InvalidTransitionError{Entity: "payment", From: p.Status, Action: "collect"}
	}

	// Late fees are charged as their own late_fee payments, so only the
	// record's own amount is collected here.
	if p.Amount < minCollectionAmount || p.Amount > maxCollectionAmount {
		return nil, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%d outside [%d, %d]", p.Amount, minCollectionAmount, maxCollectionAmount)}
	}

	msisdn := utils.FormatPhoneNumber(phoneNumber)
	req, err := s.gateway.RequestCollection(msisdn, p.Amount, p.PaymentNumber, p.PaymentType+" payment")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", p.ID, collectableStatuses).
		Updates(map[string]interface{}{
			"status":                  models.PaymentStatusProcessing,
			"phone_number":            msisdn,
			"merchant_request_id":     req.MerchantRequestID,
			"checkout_request_id":     req.CheckoutRequestID,
			"collection_initiated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return s.Get(p.ID)
}

// Reconcile applies one asynchronous gateway confirmation. Every event is
// persisted as a PaymentEvent; events that match no payment are logged as
// orphans and acknowledged so the gateway stops retrying. Reconciling an
// already-completed payment is a no-op: the conditional update keyed on the
// current status guarantees one receipt number no matter how many duplicate
// callbacks arrive.
func (s *PaymentService) Reconcile(ev GatewayCallback) (*models.Payment, error) {
	raw, _ := json.Marshal(ev)
	event := models.PaymentEvent{
		CheckoutRequestID: ev.CheckoutRequestID,
		MerchantRequestID: ev.MerchantRequestID,
		TransactionID:     ev.TransactionID,
		ReceiptNumber:     ev.ReceiptNumber,
		PhoneNumber:       ev.PhoneNumber,
		Amount:            ev.Amount,
		ResultCode:        ev.ResultCode,
		ResultDesc:        ev.ResultDesc,
		Raw:               datatypes.JSON(raw),
	}

	var p models.Payment
	if err := s.db.Where("checkout_request_id = ?", ev.CheckoutRequestID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			event.Orphan = true
			s.db.Create(&event)
			log.Printf("orphan reconciliation event, checkout_request_id=%s receipt=%s", ev.CheckoutRequestID, ev.ReceiptNumber)
			return nil, nil
		}
		return nil, err
	}
	s.db.Create(&event)

	// Short-TTL dedup lock damps callback bursts. Correctness does not
	// depend on it; the conditional update below is the real guarantee.
	if storage.Redis != nil {
		ok, err := storage.Redis.SetNX(context.Background(), "reconcile:"+ev.CheckoutRequestID, 1, 30*time.Second).Result()
		if err == nil && !ok {
			return s.Get(p.ID)
		}
	}

	if ev.ResultCode != 0 {
		s.db.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", p.ID, collectableStatuses).
			Update("status", models.PaymentStatusFailed)
		s.notifier.Send(p.TenantID, TemplatePaymentFailed, map[string]string{
			"paymentNumber": p.PaymentNumber,
			"reason":        ev.ResultDesc,
		})
		return s.Get(p.ID)
	}

	return s.complete(&p, ev.ReceiptNumber)
}

// complete transitions a collectable payment to completed, freezing the late
// fields at their last-evaluated values and assigning exactly one receipt
// number. Lost conditional updates mean another caller already completed the
// payment; the side effects are then skipped.
func (s *PaymentService) complete(p *models.Payment, receiptNumber string) (*models.Payment, error) {
	now := time.Now()
	EvaluateLateness(p, now)
	if receiptNumber == "" {
		receiptNumber = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	}

	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", p.ID, collectableStatuses).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCompleted,
			"paid_date":      now,
			"receipt_number": receiptNumber,
			"is_late":        p.IsLate,
			"late_days":      p.LateDays,
			"late_fee":       p.LateFee,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Already completed (or administratively closed). Idempotent no-op.
		return s.Get(p.ID)
	}

	if p.PaymentType == models.PaymentTypeDeposit {
		if _, err := NewBookingService(s.db, s.notifier).MarkDepositPaid(p.BookingID); err != nil {
			// The booking may have moved on already; completion stands.
			log.Printf("deposit completion for payment %d did not advance booking %d: %v", p.ID, p.BookingID, err)
		}
	}
	s.notifier.Send(p.TenantID, TemplatePaymentCompleted, map[string]string{
		"paymentNumber": p.PaymentNumber,
		"receipt":       receiptNumber,
	})
	return s.Get(p.ID)
}

// VerifyStatus polls the gateway for a payment still awaiting its callback
// and applies the same transition rule as Reconcile. A payment past the
// collection window expires instead of being queried.
func (s *PaymentService) VerifyStatus(paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	if p.Status == models.PaymentStatusCompleted {
		return &p, nil
	}
	if p.CheckoutRequestID == "" || (p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusProcessing) {
		return nil, &InvalidTransitionError{Entity: "payment", From: p.Status, Action: "verify"}
	}
	if p.CollectionInitiatedAt != nil && time.Since(*p.CollectionInitiatedAt) > s.window {
		return s.Expire(paymentID)
	}

	st, err := s.gateway.QueryStatus(p.CheckoutRequestID)
	if err != nil {
		return nil, err
	}
	if st.ResultCode == 0 {
		return s.complete(&p, "")
	}
	s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", p.ID, collectableStatuses).
		Update("status", models.PaymentStatusFailed)
	return s.Get(p.ID)
}

// Expire closes a collection that never received its callback within the
// window, so stale pending charges do not linger indefinitely.
func (s *PaymentService) Expire(paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusProcessing {
		return nil, &InvalidTransitionError{Entity: "payment", From: p.Status, Action: "expire"}
	}
	if p.CollectionInitiatedAt == nil || time.Since(*p.CollectionInitiatedAt) <= s.window {
		return nil, &ValidationError{Field: "payment", Reason: "collection window still open"}
	}
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ? AND collection_initiated_at <= ?", p.ID, collectableStatuses, time.Now().Add(-s.window)).
		Update("status", models.PaymentStatusExpired)
	if res.Error != nil {
		return nil, res.Error
	}
	return s.Get(paymentID)
}

// Cancel administratively closes a charge that should never be collected.
// Payments are never deleted.
func (s *PaymentService) Cancel(paymentID uint) (*models.Payment, error) {
	return s.adminClose(paymentID, collectableStatuses, models.PaymentStatusCancelled, "cancel")
}

// Refund marks a completed payment refunded. The receipt and frozen late
// fields are left intact for the audit trail.
func (s *PaymentService) Refund(paymentID uint) (*models.Payment, error) {
	return s.adminClose(paymentID, []string{models.PaymentStatusCompleted}, models.PaymentStatusRefunded, "refund")
}

func (s *PaymentService) adminClose(paymentID uint, fromStatuses []string, to, action string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, fromStatuses).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &InvalidTransitionError{Entity: "payment", From: p.Status, Action: action}
	}
	return s.Get(paymentID)
}
