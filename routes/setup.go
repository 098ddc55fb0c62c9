package routes

import (
	"errors"
	"net/http"

	"github.com/Geezkick/Manyani-Rental-System-sub000/services"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

var (
	bookingSvc *services.BookingService
	paymentSvc *services.PaymentService
	ledgerSvc  *services.UnitLedger
)

// Setup injects the service instances the handlers use. Called once from
// main after storage is initialized.
func Setup(bookings *services.BookingService, payments *services.PaymentService, ledger *services.UnitLedger) {
	bookingSvc = bookings
	paymentSvc = payments
	ledgerSvc = ledger
}

// handleServiceError maps the domain error taxonomy onto the JSON envelope.
func handleServiceError(ctx iris.Context, err error) {
	var invalid *services.InvalidTransitionError
	var validation *services.ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, services.ErrUnitUnavailable):
		utils.JSONError(ctx, http.StatusConflict, "unit_unavailable", err.Error())
	case errors.Is(err, services.ErrGatewayUnavailable):
		// Retryable: the payment is untouched.
		utils.JSONError(ctx, http.StatusBadGateway, "gateway_unavailable", err.Error())
	case errors.As(err, &invalid):
		utils.JSONError(ctx, http.StatusConflict, "invalid_transition", err.Error())
	case errors.As(err, &validation):
		utils.JSONError(ctx, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
	}
}
