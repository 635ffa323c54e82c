package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	luhncheck "github.com/nkiryanov/ledgerbank/internal/service/validate"
)

func configureValidator(v *validator.Validate) {
	_ = v.RegisterValidation("luhn", validateLuhn)
	v.RegisterTagNameFunc(useJSONTagNames)

	// Let numeric tags (gt, gte, lte) work with money
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateLuhn(fl validator.FieldLevel) bool {
	return luhncheck.Luhn(fl.Field().String()) == nil
}

func decimalValue(v reflect.Value) any {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}
