package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/guiapractica/cuentas/internal/core/domain"
)

// formValidator wraps go-playground/validator and translates failures into
// the user-facing messages shown next to each form.
type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	// maxbytes bounds the encoded length, unlike max which counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return &formValidator{v: v}
}

// all reports every failed field, in declaration order.
func (fv *formValidator) all(i any) error {
	return fv.check(i, 0)
}

// first reports only the first failed field.
func (fv *formValidator) first(i any) error {
	return fv.check(i, 1)
}

func (fv *formValidator) check(i any, limit int) error {
	err := fv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &domain.ValidationError{}
	seen := make(map[string]bool, len(ve))
	for _, fe := range ve {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out.Fields = append(out.Fields, domain.FieldError{Field: fe.Field(), Msg: fieldMessage(fe)})
		if limit > 0 && len(out.Fields) == limit {
			break
		}
	}
	return out
}

// fieldMessage converts a single validator.FieldError into the message shown to the user.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "nombre":
		return "El nombre no puede ir vacio"
	case "email":
		return "Eso no parece un email"
	case "repetir_password":
		return "Los passwords no son iguales"
	case "password":
		if fe.Tag() == "required" {
			return "El password es obligatorio"
		}
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "min":
		return fmt.Sprintf("El %s debe de ser al menos %s caracteres", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("El %s no puede exceder %s caracteres", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("El campo %s no es valido (%s)", fe.Field(), fe.Tag())
	}
}
