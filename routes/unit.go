package routes

import (
	"net/http"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/kataras/iris/v12"
)

// GET /api/units/{id}
func GetUnit(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var unit models.Unit
	if err := storage.DB.Preload("Property").First(&unit, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "unit not found")
		return
	}
	utils.JSONData(ctx, unit)
}

// GET /api/properties/{id}/units
func ListPropertyUnits(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	q := storage.DB.Where("property_id = ?", id)
	if status := ctx.URLParamDefault("status", ""); status != "" {
		q = q.Where("status = ?", status)
	}
	var units []models.Unit
	if err := q.Order("unit_number").Find(&units).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	utils.JSONData(ctx, units)
}

// POST /api/units/{id}/maintenance
func StartUnitMaintenance(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := ledgerSvc.StartMaintenance(id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "unit.maintenance.start", "unit", id, nil, nil)
	var unit models.Unit
	storage.DB.First(&unit, id)
	utils.JSONData(ctx, unit)
}

// POST /api/units/{id}/maintenance/end
func EndUnitMaintenance(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := ledgerSvc.EndMaintenance(id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Audit(ctx, "unit.maintenance.end", "unit", id, nil, nil)
	var unit models.Unit
	storage.DB.First(&unit, id)
	utils.JSONData(ctx, unit)
}

// POST /api/units/{id}/release — admin escape hatch when a booking record
// was removed out-of-band and the unit is stuck holding it.
func ReleaseUnit(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var before models.Unit
	storage.DB.First(&before, id)
	if err := ledgerSvc.Release(id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	var unit models.Unit
	storage.DB.First(&unit, id)
	utils.Audit(ctx, "unit.release", "unit", id, before, unit)
	utils.JSONData(ctx, unit)
}
