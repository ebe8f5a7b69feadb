package course

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	futureDateTag  = "futuredate"
	futureDateText = "date cannot be in the past"
)

// InitValidators registers course validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(futureDateTag, futureDateValidation)
	core.RegisterCustomTranslation(validate, translator, futureDateTag, futureDateText)
}

// futureDateValidation rejects dates before the start of today (UTC);
// a due date of "today" is still valid.
func futureDateValidation(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return !date.UTC().Before(today)
}
