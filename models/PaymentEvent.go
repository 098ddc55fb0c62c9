package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentEvent records every gateway callback as received, including events
// that match no payment (orphans). The raw payload is kept so duplicate or
// reused checkout-request ids can be disambiguated after the fact.
type PaymentEvent struct {
	gorm.Model
	CheckoutRequestID string         `json:"checkoutRequestID" gorm:"size:64;index"`
	MerchantRequestID string         `json:"merchantRequestID" gorm:"size:64"`
	TransactionID     string         `json:"transactionID" gorm:"size:64"`
	ReceiptNumber     string         `json:"receiptNumber" gorm:"size:32"`
	PhoneNumber       string         `json:"phoneNumber" gorm:"size:15"`
	Amount            int64          `json:"amount"`
	ResultCode        int            `json:"resultCode"`
	ResultDesc        string         `json:"resultDesc"`
	Orphan            bool           `json:"orphan" gorm:"index"`
	Raw               datatypes.JSON `json:"raw"`
}
