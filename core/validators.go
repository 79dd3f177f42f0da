package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	placeholderKeyTag   = "placeholder_key"
	placeholderKeyText  = "only letters, digits and underscores are allowed"
	placeholderKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	hexColorOrEmptyTag   = "hexcolor_or_empty"
	hexColorOrEmptyText  = "must be a hex color such as #1a2b3c"
	hexColorOrEmptyRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(placeholderKeyTag, placeholderKeyValidation)
	RegisterCustomTranslation(validate, translator, placeholderKeyTag, placeholderKeyText)

	_ = validate.RegisterValidation(hexColorOrEmptyTag, hexColorOrEmptyValidation)
	RegisterCustomTranslation(validate, translator, hexColorOrEmptyTag, hexColorOrEmptyText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
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
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// placeholderKeyValidation only allows keys usable inside a {{key}} token.
func placeholderKeyValidation(fl validator.FieldLevel) bool {
	return placeholderKeyRegex.MatchString(fl.Field().String())
}

func hexColorOrEmptyValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || hexColorOrEmptyRegex.MatchString(s)
}
