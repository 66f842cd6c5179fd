package validator

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "checkops/internal/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags. A failure is returned as a
// validation error whose Fields are the json paths of the offending fields,
// in declaration order, without duplicates.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.KindValidation, "Invalid request", err)
	}

	fields := make([]string, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	var missing, invalid []string
	for _, fe := range verrs {
		name := fieldPath(fe.Namespace())
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
		if isMissing(fe) {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}

	switch {
	case len(invalid) == 0:
		return apperrors.Validation("", fields...)
	case len(missing) == 0:
		return apperrors.Validation("Invalid fields: "+strings.Join(fields, ", "), fields...)
	}
	e := apperrors.Validation("Missing required fields: "+strings.Join(missing, ", ")+
		"; invalid fields: "+strings.Join(invalid, ", "), fields...)
	e.Missing = missing
	return e
}

// isMissing treats a failed required tag, or a failed min on an empty
// slice, as an absent field.
func isMissing(fe validator.FieldError) bool {
	switch fe.Tag() {
	case "required":
		return true
	case "min":
		v := reflect.ValueOf(fe.Value())
		return (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0
	}
	return false
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func IsEmail(email string) bool {
	return instance().Var(email, "required,email") == nil
}
