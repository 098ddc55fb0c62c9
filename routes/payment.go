package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/services"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/kataras/iris/v12"
)

type SchedulePaymentRequest struct {
	BookingID   uint   `json:"bookingID" validate:"required"`
	PaymentType string `json:"paymentType" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,min=1"`
	DueDate     string `json:"dueDate" validate:"required"`
}

// POST /api/payments
func SchedulePayment(ctx iris.Context) {
	var request SchedulePaymentRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	dueDate, err := time.Parse("2006-01-02", request.DueDate)
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_payload", "dueDate must be YYYY-MM-DD")
		return
	}
	payment, err := paymentSvc.Schedule(request.BookingID, request.PaymentType, request.Amount, dueDate)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	utils.JSONData(ctx, payment)
}

// POST /api/bookings/{id}/rent-payment
func ScheduleNextRent(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	payment, err := paymentSvc.ScheduleNextRent(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	utils.JSONData(ctx, payment)
}

// GET /api/payments/{id}
func GetPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	payment, err := paymentSvc.Get(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, payment)
}

// GET /api/payments?booking_id=
func ListPayments(ctx iris.Context) {
	if bookingID := ctx.URLParamIntDefault("booking_id", 0); bookingID > 0 {
		payments, err := paymentSvc.ListByBooking(uint(bookingID))
		if err != nil {
			handleServiceError(ctx, err)
			return
		}
		utils.JSONData(ctx, payments)
		return
	}

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	q := storage.DB.Model(&models.Payment{})
	if status := ctx.URLParamDefault("status", ""); status != "" {
		q = q.Where("status = ?", status)
	}
	if tenantID := ctx.URLParamDefault("tenant_id", ""); tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}

	var total int64
	q.Count(&total)

	var items []models.Payment
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Order("due_date DESC").Find(&items).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	now := time.Now()
	for i := range items {
		services.EvaluateLateness(&items[i], now)
	}
	utils.JSONPage(ctx, items, page, perPage, total)
}

type CollectPaymentRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// POST /api/payments/{id}/collect
func CollectPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var request CollectPaymentRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	payment, err := paymentSvc.InitiateCollection(id, request.PhoneNumber)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, payment)
}

// POST /api/payments/{id}/verify
func VerifyPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	payment, err := paymentSvc.VerifyStatus(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, payment)
}

// POST /api/payments/{id}/expire
func ExpirePayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := paymentSvc.Get(id)
	payment, err := paymentSvc.Expire(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "payment.expire", "payment", id, before, payment)
	utils.JSONData(ctx, payment)
}

// POST /api/payments/{id}/cancel
func CancelPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := paymentSvc.Get(id)
	payment, err := paymentSvc.Cancel(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "payment.cancel", "payment", id, before, payment)
	utils.JSONData(ctx, payment)
}

// POST /api/payments/{id}/refund
func RefundPayment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := paymentSvc.Get(id)
	payment, err := paymentSvc.Refund(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "payment.refund", "payment", id, before, payment)
	utils.JSONData(ctx, payment)
}

// stkCallbackBody is the payload Daraja posts to the callback URL.
type stkCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// POST /api/payments/callback — consumed by the gateway, not by clients.
// Always acknowledged with ResultCode 0 so the gateway does not retry;
// orphan events are logged server-side, never surfaced here.
func PaymentCallback(ctx iris.Context) {
	var body stkCallbackBody
	if err := ctx.ReadJSON(&body); err != nil {
		// Even an unparsable body gets an ack; there is nothing to retry into.
		ctx.JSON(iris.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	cb := body.Body.StkCallback
	ev := services.GatewayCallback{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				ev.Amount = int64(v)
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				ev.ReceiptNumber = v
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				ev.PhoneNumber = fmt.Sprintf("%.0f", v)
			case string:
				ev.PhoneNumber = v
			}
		case "TransactionDate":
			if v, ok := item.Value.(float64); ok {
				ev.TransactionID = fmt.Sprintf("%.0f", v)
			}
		}
	}

	if _, err := paymentSvc.Reconcile(ev); err != nil {
		// Storage-level failure: let the gateway retry.
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "reconciliation failed")
		return
	}
	ctx.JSON(iris.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}
