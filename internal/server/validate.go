package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/franklin/internal/calendar"
)

// validate checks request bodies. Field names in messages follow the json tags.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("daykey", validateDayKey); err != nil {
		panic(fmt.Sprintf("register daykey validation: %v", err))
	}
}

// validateDayKey accepts "DD/MM" keys.
func validateDayKey(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDayKey(fl.Field().String())
	return err == nil
}

// validateRequest runs struct validation and turns the first failure into a 400.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest(err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return badRequest(fmt.Sprintf("%s is required", fieldLabel(fe.Field())))
	case "daykey":
		return badRequest(fmt.Sprintf("%s must be a DD/MM date", fe.Field()))
	case "oneof":
		return badRequest(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "min":
		return badRequest(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	default:
		return badRequest(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

func fieldLabel(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
