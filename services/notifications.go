package services

import (
	"log"
)

// NotificationDispatcher is the collaborator boundary for tenant/landlord
// messaging. Dispatch is fire-and-forget; lifecycle operations never fail
// because a notification could not be sent.
type NotificationDispatcher interface {
	Send(userID uint, templateKey string, payload map[string]string)
}

// LogDispatcher writes notifications to the process log. It stands in until
// the platform's push/SMS dispatcher is wired up.
type LogDispatcher struct{}

func (LogDispatcher) Send(userID uint, templateKey string, payload map[string]string) {
	log.Printf("notify user %d template=%s payload=%v", userID, templateKey, payload)
}

const (
	TemplateBookingApproved  = "booking_approved"
	TemplateBookingRejected  = "booking_rejected"
	TemplatePaymentCompleted = "payment_completed"
	TemplatePaymentFailed    = "payment_failed"
	TemplateVacateNotice     = "vacate_notice_submitted"
	TemplateRenewalOffer     = "renewal_offer"
)
