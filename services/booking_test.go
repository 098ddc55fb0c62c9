package services

import (
	"errors"
	"testing"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
)

func TestCreateBookingReservesUnitAndSchedulesDeposit(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)

	booking, err := svc.Create(CreateBookingInput{
		TenantID:    7,
		PropertyID:  unit.PropertyID,
		UnitID:      unit.ID,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AmenityFees: map[string]int64{"water": 1500, "garbage": 500, "parking": 0},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if booking.Status != models.BookingStatusPending {
		t.Fatalf("expected pending, got %s", booking.Status)
	}
	if booking.BookingNumber == "" {
		t.Fatal("expected a booking number")
	}
	// Rent plus non-zero amenity fees only.
	if booking.TotalMonthlyFee != 27000 {
		t.Fatalf("expected total monthly fee 27000, got %d", booking.TotalMonthlyFee)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusReserved {
		t.Fatalf("expected unit reserved, got %s", got)
	}

	var deposit models.Payment
	if err := db.Where("booking_id = ? AND payment_type = ?", booking.ID, models.PaymentTypeDeposit).First(&deposit).Error; err != nil {
		t.Fatalf("expected deposit payment scheduled: %v", err)
	}
	if deposit.Amount != 25000 || deposit.Status != models.PaymentStatusPending {
		t.Fatalf("unexpected deposit payment %+v", deposit)
	}
}

func TestCreateBookingOnHeldUnitFailsWhole(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)

	createTestBooking(t, db, svc, unit)

	_, err := svc.Create(CreateBookingInput{
		TenantID:   8,
		PropertyID: unit.PropertyID,
		UnitID:     unit.ID,
		StartDate:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrUnitUnavailable) {
		t.Fatalf("expected ErrUnitUnavailable, got %v", err)
	}

	// The losing attempt must leave no partial rows behind.
	var bookings int64
	db.Model(&models.Booking{}).Count(&bookings)
	if bookings != 1 {
		t.Fatalf("expected 1 booking, got %d", bookings)
	}
	var payments int64
	db.Model(&models.Payment{}).Count(&payments)
	if payments != 1 {
		t.Fatalf("expected 1 payment, got %d", payments)
	}
}

func TestBookingLifecycleWalk(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	if _, err := svc.Approve(booking.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.MarkDepositPaid(booking.ID); err != nil {
		t.Fatalf("mark deposit paid: %v", err)
	}
	if _, err := svc.MoveIn(booking.ID); err != nil {
		t.Fatalf("move in: %v", err)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusOccupied {
		t.Fatalf("expected occupied after move-in, got %s", got)
	}

	if _, err := svc.Complete(booking.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusAvailable {
		t.Fatalf("expected available after completion, got %s", got)
	}
}

func TestInvalidTransitionLeavesBookingUnchanged(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	var before models.Booking
	db.First(&before, booking.ID)

	// pending cannot move in, complete or terminate
	for _, op := range []func(uint) (*models.Booking, error){svc.MoveIn, svc.Complete, svc.Terminate} {
		var invalid *InvalidTransitionError
		if _, err := op(booking.ID); !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
	}

	var after models.Booking
	db.First(&after, booking.ID)
	if after.Status != before.Status || after.UpdatedAt != before.UpdatedAt {
		t.Fatalf("booking mutated by rejected transition: before=%+v after=%+v", before, after)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusReserved {
		t.Fatalf("unit mutated by rejected transition: %s", got)
	}
}

func TestRejectReleasesUnit(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	if _, err := svc.Reject(booking.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusAvailable {
		t.Fatalf("expected available after reject, got %s", got)
	}

	// Terminal: nothing further applies.
	var invalid *InvalidTransitionError
	if _, err := svc.Approve(booking.ID); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError on approve after reject, got %v", err)
	}
}

func TestCancelFromAnyNonTerminalReleasesUnit(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	if _, err := svc.Approve(booking.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Cancel(booking.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusAvailable {
		t.Fatalf("expected available after cancel, got %s", got)
	}

	var invalid *InvalidTransitionError
	if _, err := svc.Cancel(booking.ID); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError on double cancel, got %v", err)
	}
}

func TestVacateNoticeOnlyFromActive(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	intended := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	var invalid *InvalidTransitionError
	if _, err := svc.SubmitVacateNotice(booking.ID, intended, "relocating"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError while pending, got %v", err)
	}

	svc.Approve(booking.ID)
	svc.MarkDepositPaid(booking.ID)
	svc.MoveIn(booking.ID)

	updated, err := svc.SubmitVacateNotice(booking.ID, intended, "relocating")
	if err != nil {
		t.Fatalf("submit vacate notice: %v", err)
	}
	if !updated.VacateNotice.Submitted || updated.VacateNotice.IntendedDate == nil {
		t.Fatalf("vacate notice not recorded: %+v", updated.VacateNotice)
	}
	// Status itself is untouched by the notice.
	if updated.Status != models.BookingStatusActive {
		t.Fatalf("expected still active, got %s", updated.Status)
	}
}

func TestRenewalOfferAndAccept(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	svc.Approve(booking.ID)
	svc.MarkDepositPaid(booking.ID)
	svc.MoveIn(booking.ID)

	offered, err := svc.OfferRenewal(booking.ID, 28000)
	if err != nil {
		t.Fatalf("offer renewal: %v", err)
	}
	if !offered.Renewal.Offered || offered.Renewal.NewRent != 28000 {
		t.Fatalf("renewal offer not recorded: %+v", offered.Renewal)
	}
	if offered.MonthlyRent != 25000 {
		t.Fatalf("rent must not change before acceptance, got %d", offered.MonthlyRent)
	}

	accepted, err := svc.AcceptRenewal(booking.ID)
	if err != nil {
		t.Fatalf("accept renewal: %v", err)
	}
	if accepted.MonthlyRent != 28000 || accepted.TotalMonthlyFee != 28000 {
		t.Fatalf("expected rent 28000 after acceptance, got rent=%d total=%d", accepted.MonthlyRent, accepted.TotalMonthlyFee)
	}
}

func TestDeleteActiveBookingReleasesUnit(t *testing.T) {
	db := newTestDB(t)
	_, unit := seedUnit(t, db, 25000, 25000)
	svc := NewBookingService(db, nil)
	booking := createTestBooking(t, db, svc, unit)

	svc.Approve(booking.ID)
	svc.MarkDepositPaid(booking.ID)
	svc.MoveIn(booking.ID)

	if err := svc.Delete(booking.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := unitStatus(t, db, unit.ID); got != models.UnitStatusAvailable {
		t.Fatalf("expected available after delete, got %s", got)
	}
}
