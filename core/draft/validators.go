package draft

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	draftTypeTag  = "drafttype"
	draftTypeText = "draft type must be one of: auto, manual"
)

// InitValidators registers the draft validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(draftTypeTag, draftTypeValidation)
	core.RegisterCustomTranslation(validate, translator, draftTypeTag, draftTypeText)
}

func draftTypeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}
