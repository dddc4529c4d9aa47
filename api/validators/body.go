package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()
	usZip    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("uszip", func(fl validator.FieldLevel) bool {
		return usZip.MatchString(fl.Field().String())
	})
	return v
}

// DecodeJSONBody decodes a strict JSON body and runs struct validation.
func DecodeJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, true)
}

// DecodeJSONBodyLenient ignores unknown keys. Partial updates use it so
// fields a host may not edit are dropped instead of rejected.
func DecodeJSONBodyLenient(r *http.Request, dest any) error {
	return decode(r, dest, false)
}

// Validate runs struct validation on an already decoded value.
func Validate(value any) error {
	if err := validate.Struct(value); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func decode(r *http.Request, dest any, strict bool) error {
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	return Validate(dest)
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		fields := make([]string, 0, len(errs))
		for _, fieldErr := range errs {
			name := fieldErr.Namespace()
			if idx := strings.Index(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			if _, seen := details[name]; !seen {
				fields = append(fields, name)
			}
			details[name] = validationMessage(fieldErr)
		}
		sort.Strings(fields)
		msg := "validation failed"
		if len(fields) > 0 {
			msg = fmt.Sprintf("%s %s", fields[0], details[fields[0]])
		}
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "uszip":
		return "must be a valid ZIP code"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "alpha":
		return "must contain only letters"
	}
	return "is invalid"
}
