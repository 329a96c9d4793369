package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/domain/order"
)

// SetupValidator configures the binding validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// fulfillment_status accepts the storefront fulfillment lifecycle values
		_ = v.RegisterValidation("fulfillment_status", validFulfillmentStatus)
	}
}

func validFulfillmentStatus(fl validator.FieldLevel) bool {
	return order.ValidFulfillmentStatus(order.FulfillmentStatus(fl.Field().String()))
}
