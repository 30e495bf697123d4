package form

import (
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// RequiredMessage is the default message of Required.
const RequiredMessage = "Este campo é obrigatório"

// Validator checks value and returns a message, or "" when it is valid.
// values holds every field so cross-field rules can look at siblings.
type Validator func(value any, values Values) string

var validate = validator.New()

func runValidators(validators []Validator, value any, values Values) string {
	for _, v := range validators {
		if v == nil {
			continue
		}
		if msg := v(value, values); msg != "" {
			return msg
		}
	}
	return ""
}

// Required rejects nil and the empty string.
func Required(msg string) Validator {
	if msg == "" {
		msg = RequiredMessage
	}
	return func(value any, _ Values) string {
		if isMissing(value) {
			return msg
		}
		return ""
	}
}

// MinLength rejects values whose text is shorter than n characters.
func MinLength(n int, msg string) Validator {
	return func(value any, _ Values) string {
		if utf8.RuneCountInString(text(value)) < n {
			return msg
		}
		return ""
	}
}

// Matches rejects values whose text does not match re.
func Matches(re *regexp.Regexp, msg string) Validator {
	return func(value any, _ Values) string {
		if !re.MatchString(text(value)) {
			return msg
		}
		return ""
	}
}

// Tag checks value against a go-playground/validator tag such as "email" or
// "oneof=seller customer".
func Tag(tag, msg string) Validator {
	return func(value any, _ Values) string {
		if value == nil {
			value = ""
		}
		if err := validate.Var(value, tag); err != nil {
			return msg
		}
		return ""
	}
}

// Equals rejects values different from the value of field other.
func Equals(other, msg string) Validator {
	return func(value any, values Values) string {
		if !reflect.DeepEqual(value, values[other]) {
			return msg
		}
		return ""
	}
}

// Func adapts a plain predicate.
func Func(ok func(value any) bool, msg string) Validator {
	return func(value any, _ Values) string {
		if !ok(value) {
			return msg
		}
		return ""
	}
}

func isMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
