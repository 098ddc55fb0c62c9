package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// HandleValidationErrors maps a ReadJSON failure to the JSON error envelope.
// Validator tag failures get a per-field breakdown, anything else is treated
// as a malformed payload.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]iris.Map, 0, len(errs))
		for _, fe := range errs {
			fields = append(fields, iris.Map{
				"field": fe.Field(),
				"tag":   fe.Tag(),
				"param": fe.Param(),
			})
		}
		ctx.StatusCode(iris.StatusUnprocessableEntity)
		ctx.JSON(iris.Map{"error": "validation_error", "message": "invalid request payload", "fields": fields})
		return
	}
	JSONError(ctx, iris.StatusBadRequest, "invalid_payload", "could not parse request body")
}
