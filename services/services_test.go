package services

import (
	"testing"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Single connection so every caller sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Property{},
		&models.Unit{},
		&models.Booking{},
		&models.Payment{},
		&models.PaymentEvent{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUnit(t *testing.T, db *gorm.DB, rent, deposit int64) (*models.Property, *models.Unit) {
	t.Helper()
	property := models.Property{Name: "Test Court", City: "Nairobi", TotalUnits: 1, AvailableUnits: 1}
	if err := db.Create(&property).Error; err != nil {
		t.Fatalf("seed property: %v", err)
	}
	unit := models.Unit{
		PropertyID:  property.ID,
		UnitNumber:  "A1",
		MonthlyRent: rent,
		Deposit:     deposit,
		Status:      models.UnitStatusAvailable,
	}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return &property, &unit
}

func unitStatus(t *testing.T, db *gorm.DB, unitID uint) string {
	t.Helper()
	var unit models.Unit
	if err := db.First(&unit, unitID).Error; err != nil {
		t.Fatalf("load unit: %v", err)
	}
	return unit.Status
}

func createTestBooking(t *testing.T, db *gorm.DB, svc *BookingService, unit *models.Unit) *models.Booking {
	t.Helper()
	booking, err := svc.Create(CreateBookingInput{
		TenantID:   7,
		PropertyID: unit.PropertyID,
		UnitID:     unit.ID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking
}
