package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/services"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"

	"github.com/kataras/iris/v12"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// buildCallbackApp wires a minimal Iris app with the gateway callback route
// over an in-memory database.
func buildCallbackApp(t *testing.T) (*iris.Application, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Property{}, &models.Unit{}, &models.Booking{}, &models.Payment{}, &models.PaymentEvent{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	storage.DB = db

	gateway := services.NewSandboxGateway()
	Setup(
		services.NewBookingService(db, nil),
		services.NewPaymentService(db, gateway, nil, 0),
		services.NewUnitLedger(db),
	)

	app := iris.New()
	app.Post("/api/payments/callback", PaymentCallback)
	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app, db
}

func seedProcessingPayment(t *testing.T, db *gorm.DB, checkoutID string) *models.Payment {
	t.Helper()
	now := time.Now()
	p := models.Payment{
		PaymentNumber:         "PAY-000001",
		BookingID:             1,
		TenantID:              7,
		Amount:                2000,
		PaymentType:           models.PaymentTypeRent,
		DueDate:               now.AddDate(0, 0, 7),
		Status:                models.PaymentStatusProcessing,
		PhoneNumber:           "254712345678",
		MerchantRequestID:     "29115-34620561-1",
		CheckoutRequestID:     checkoutID,
		CollectionInitiatedAt: &now,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return &p
}

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 2000},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

func postCallback(t *testing.T, app *iris.Application, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestCallbackCompletesPayment(t *testing.T) {
	app, db := buildCallbackApp(t)
	payment := seedProcessingPayment(t, db, "ws_CO_191220191020363925")

	resp := postCallback(t, app, successCallback)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ResultCode != 0 {
		t.Fatalf("expected ack ResultCode 0, got %d", ack.ResultCode)
	}

	var p models.Payment
	db.First(&p, payment.ID)
	if p.Status != models.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}
	if p.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("expected receipt NLJ7RT61SV, got %q", p.ReceiptNumber)
	}
}

func TestDuplicateCallbackKeepsOneReceipt(t *testing.T) {
	app, db := buildCallbackApp(t)
	payment := seedProcessingPayment(t, db, "ws_CO_191220191020363925")

	postCallback(t, app, successCallback)
	dup := strings.Replace(successCallback, "NLJ7RT61SV", "DUPLICATE99", 1)
	resp := postCallback(t, app, dup)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", resp.Code)
	}

	var p models.Payment
	db.First(&p, payment.ID)
	if p.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("duplicate callback rewrote receipt: %q", p.ReceiptNumber)
	}
	var events int64
	db.Model(&models.PaymentEvent{}).Count(&events)
	if events != 2 {
		t.Fatalf("expected both events recorded, got %d", events)
	}
}

func TestOrphanCallbackIsAcknowledged(t *testing.T) {
	app, db := buildCallbackApp(t)

	resp := postCallback(t, app, successCallback)
	if resp.Code != http.StatusOK {
		t.Fatalf("orphan callback must be acknowledged, got %d", resp.Code)
	}
	var ack struct {
		ResultCode int `json:"ResultCode"`
	}
	json.Unmarshal(resp.Body.Bytes(), &ack)
	if ack.ResultCode != 0 {
		t.Fatalf("expected ack ResultCode 0, got %d", ack.ResultCode)
	}

	var event models.PaymentEvent
	if err := db.Where("orphan = ?", true).First(&event).Error; err != nil {
		t.Fatalf("orphan event not recorded: %v", err)
	}
}

func TestFailureCallbackMarksPaymentFailed(t *testing.T) {
	app, db := buildCallbackApp(t)
	payment := seedProcessingPayment(t, db, "ws_CO_191220191020363925")

	failure := `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 1032,
      "ResultDesc": "Request cancelled by user."
    }
  }
}`
	resp := postCallback(t, app, failure)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var p models.Payment
	db.First(&p, payment.ID)
	if p.Status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", p.Status)
	}
}
