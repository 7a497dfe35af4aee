package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/ar"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	// validation texts; {0} is the field, {1} the tag param
	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "هذا الحقل مطلوب"

	emailTag  = "email"
	emailText = "يجب أن يكون {0} بريداً إلكترونياً صالحاً"

	minTag  = "min"
	minText = "يجب أن يحتوي {0} على {1} أحرف على الأقل"

	maxTag  = "max"
	maxText = "يجب ألا يتجاوز {0} {1} حرفاً"

	numericTag  = "numeric"
	numericText = "يجب أن يحتوي {0} على أرقام فقط"

	alphanumTag  = "alphanum"
	alphanumText = "يجب أن يحتوي {0} على أحرف وأرقام فقط"

	oneofTag  = "oneof"
	oneofText = "يجب أن تكون قيمة {0} واحدة من: {1}"
)

// NewTranslator returns the Arabic translator used for validation and response messages.
func NewTranslator() ut.Translator {
	arabic := ar.New()
	uni := ut.New(arabic, arabic)
	translator, _ := uni.GetTranslator("ar")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, emailTag, emailText, true)
	RegisterCustomTranslation(validate, translator, minTag, minText, true)
	RegisterCustomTranslation(validate, translator, maxTag, maxText, true)
	RegisterCustomTranslation(validate, translator, numericTag, numericText, true)
	RegisterCustomTranslation(validate, translator, alphanumTag, alphanumText, true)
	RegisterCustomTranslation(validate, translator, oneofTag, oneofText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

// TranslateFields flattens validation errors into field errors using translator.
func TranslateFields(errs validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return flds
}
