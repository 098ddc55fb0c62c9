package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusExpired    = "expired"
)

const (
	PaymentTypeRent        = "rent"
	PaymentTypeDeposit     = "deposit"
	PaymentTypeAmenity     = "amenity"
	PaymentTypeLateFee     = "late_fee"
	PaymentTypeMaintenance = "maintenance"
	PaymentTypeOther       = "other"
)

type Payment struct {
	gorm.Model
	PaymentNumber string     `json:"paymentNumber" gorm:"size:20;uniqueIndex"`
	BookingID     uint       `json:"bookingID" gorm:"index"`
	TenantID      uint       `json:"tenantID" gorm:"index"`
	PropertyID    uint       `json:"propertyID" gorm:"index"`
	Amount        int64      `json:"amount"` // whole KES
	PaymentType   string     `json:"paymentType" gorm:"type:varchar(20);index"` // rent, deposit, amenity, late_fee, maintenance, other
	DueDate       time.Time  `json:"dueDate"`
	PaidDate      *time.Time `json:"paidDate"`
	Status        string     `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, processing, completed, failed, refunded, cancelled, expired

	// Late-fee fields are derived until PaidDate is set, then frozen.
	IsLate   bool  `json:"isLate"`
	LateDays int   `json:"lateDays"`
	LateFee  int64 `json:"lateFee"`

	// Gateway correlation, set by collection initiation and reconciliation.
	PhoneNumber           string     `json:"phoneNumber" gorm:"size:15"`
	MerchantRequestID     string     `json:"merchantRequestID" gorm:"size:64"`
	CheckoutRequestID     string     `json:"checkoutRequestID" gorm:"size:64;index"`
	ReceiptNumber         string     `json:"receiptNumber" gorm:"size:32"`
	CollectionInitiatedAt *time.Time `json:"collectionInitiatedAt"`

	Booking *Booking `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
}
