// Package validation checks operator input before anything reaches the
// network.  Failures are returned as Errors, keyed by form field.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/raffle-console/internal/model"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	validate = newValidator()
)

// Errors maps a form field to its message.  The key "contact" holds the
// phone-or-email rule, "seats" the empty-selection rule.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CustomerForm is the buyer input of a sale.
type CustomerForm struct {
	Names     string `json:"names" validate:"required,min=3"`
	LastNames string `json:"last_names"`
	Phone     string `json:"phone" validate:"omitempty,number,min=7,max=15"`
	Email     string `json:"email" validate:"omitempty,basic_email"`
	Address   string `json:"address" validate:"omitempty,min=3"`
}

// Trimmed returns a copy with surrounding whitespace removed.
func (f CustomerForm) Trimmed() CustomerForm {
	return CustomerForm{
		Names:     strings.TrimSpace(f.Names),
		LastNames: strings.TrimSpace(f.LastNames),
		Phone:     strings.TrimSpace(f.Phone),
		Email:     strings.TrimSpace(f.Email),
		Address:   strings.TrimSpace(f.Address),
	}
}

// Customer converts a validated form into the wire customer.
func (f CustomerForm) Customer() model.Customer {
	t := f.Trimmed()
	return model.Customer{
		Names:     t.Names,
		LastNames: t.LastNames,
		Phone:     t.Phone,
		Email:     t.Email,
		Address:   t.Address,
	}
}

// ValidateCustomer checks the trimmed form.  It returns nil or Errors.
func ValidateCustomer(f CustomerForm) error {
	t := f.Trimmed()
	err := validate.Struct(&t)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := Errors{}
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

// ValidateSelection rejects an empty seat list.
func ValidateSelection(seats []int) error {
	if len(seats) == 0 {
		return Errors{"seats": "select at least one seat"}
	}
	return nil
}

// Merge combines several validation results into one Errors, or nil.
// Non-validation errors are returned as-is.
func Merge(errs ...error) error {
	out := Errors{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		ve, ok := err.(Errors)
		if !ok {
			return err
		}
		for k, v := range ve {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(CustomerForm)
		if f.Phone == "" && f.Email == "" {
			sl.ReportError(f.Phone, "contact", "Contact", "contact_required", "")
		}
	}, CustomerForm{})
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Field() == "phone" {
			return "phone must have between 7 and 15 digits"
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return "phone must have between 7 and 15 digits"
	case "number":
		return "phone must contain digits only"
	case "basic_email":
		return "email is not a valid address"
	case "contact_required":
		return "at least one contact is required: phone or email"
	}
	return fe.Field() + " is invalid"
}
