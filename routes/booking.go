package routes

import (
	"net/http"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/services"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/kataras/iris/v12"
)

type CreateBookingRequest struct {
	PropertyID  uint             `json:"propertyID" validate:"required"`
	UnitID      uint             `json:"unitID" validate:"required"`
	StartDate   string           `json:"startDate" validate:"required"`
	EndDate     string           `json:"endDate"`
	AmenityFees map[string]int64 `json:"amenityFees"`
}

// POST /api/bookings
func CreateBooking(ctx iris.Context) {
	tenantID, ok := ctx.Values().Get("userID").(uint)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request CreateBookingRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	startDate, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_payload", "startDate must be YYYY-MM-DD")
		return
	}
	var endDate time.Time
	if request.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", request.EndDate)
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "invalid_payload", "endDate must be YYYY-MM-DD")
			return
		}
	}

	booking, err := bookingSvc.Create(services.CreateBookingInput{
		TenantID:    tenantID,
		PropertyID:  request.PropertyID,
		UnitID:      request.UnitID,
		StartDate:   startDate,
		EndDate:     endDate,
		AmenityFees: request.AmenityFees,
	})
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	utils.JSONData(ctx, booking)
}

// GET /api/bookings/{id}
func GetBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	booking, err := bookingSvc.Get(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, booking)
}

// GET /api/bookings
func ListBookings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	q := storage.DB.Model(&models.Booking{})
	if status := ctx.URLParamDefault("status", ""); status != "" {
		q = q.Where("status = ?", status)
	}
	if tenantID := ctx.URLParamDefault("tenant_id", ""); tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if propertyID := ctx.URLParamDefault("property_id", ""); propertyID != "" {
		q = q.Where("property_id = ?", propertyID)
	}

	var total int64
	q.Count(&total)

	var items []models.Booking
	if err := q.Preload("Unit").Offset((page - 1) * perPage).Limit(perPage).Order("created_at DESC").Find(&items).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	utils.JSONPage(ctx, items, page, perPage, total)
}

func bookingTransitionHandler(apply func(uint) (*models.Booking, error)) iris.Handler {
	return func(ctx iris.Context) {
		id, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
			return
		}
		booking, err := apply(id)
		if err != nil {
			handleServiceError(ctx, err)
			return
		}
		utils.JSONData(ctx, booking)
	}
}

// POST /api/bookings/{id}/approve
func ApproveBooking(ctx iris.Context) { bookingTransitionHandler(bookingSvc.Approve)(ctx) }

// POST /api/bookings/{id}/reject
func RejectBooking(ctx iris.Context) { bookingTransitionHandler(bookingSvc.Reject)(ctx) }

// POST /api/bookings/{id}/move-in
func MoveInBooking(ctx iris.Context) { bookingTransitionHandler(bookingSvc.MoveIn)(ctx) }

// POST /api/bookings/{id}/complete
func CompleteBooking(ctx iris.Context) { bookingTransitionHandler(bookingSvc.Complete)(ctx) }

// POST /api/bookings/{id}/terminate { reason }
func TerminateBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := bookingSvc.Get(id)
	booking, err := bookingSvc.Terminate(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "booking.terminate", "booking", id, before, booking)
	utils.JSONData(ctx, booking)
}

// POST /api/bookings/{id}/cancel { reason }
func CancelBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := bookingSvc.Get(id)
	booking, err := bookingSvc.Cancel(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "booking.cancel", "booking", id, before, booking)
	utils.JSONData(ctx, booking)
}

type VacateNoticeRequest struct {
	IntendedDate string `json:"intendedDate" validate:"required"`
	Reason       string `json:"reason"`
}

// POST /api/bookings/{id}/vacate-notice
func SubmitVacateNotice(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var request VacateNoticeRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	intended, err := time.Parse("2006-01-02", request.IntendedDate)
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_payload", "intendedDate must be YYYY-MM-DD")
		return
	}
	booking, err := bookingSvc.SubmitVacateNotice(id, intended, request.Reason)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, booking)
}

type RenewalOfferRequest struct {
	NewRent int64 `json:"newRent" validate:"required,min=1"`
}

// POST /api/bookings/{id}/renewal
func OfferRenewal(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var request RenewalOfferRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	booking, err := bookingSvc.OfferRenewal(id, request.NewRent)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.JSONData(ctx, booking)
}

// POST /api/bookings/{id}/renewal/accept
func AcceptRenewal(ctx iris.Context) { bookingTransitionHandler(bookingSvc.AcceptRenewal)(ctx) }

// DELETE /api/bookings/{id}
func DeleteBooking(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	before, _ := bookingSvc.Get(id)
	if err := bookingSvc.Delete(id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "booking.delete", "booking", id, before, nil)
	ctx.StatusCode(iris.StatusNoContent)
}
