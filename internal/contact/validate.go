package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

var phonePattern = regexp.MustCompile(`^1?[0-9]{10}$`)

var displayNames = map[string]string{
	"first_name":   "First Name",
	"last_name":    "Last Name",
	"phone_number": "Phone Number",
	"email":        "Email",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims surrounding whitespace from every data field.
func Normalize(c schema.Contact) schema.Contact {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// Validate checks the data fields of c and returns a *ValidationError describing
// every failing field.
func Validate(c schema.Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	name := displayNames[fe.Field()]
	switch fe.Tag() {
	case "required":
		return "The " + name + " field is required."
	case "phone10":
		return "Please enter a valid 10-digit telephone number."
	case "email":
		return "The " + name + " field is not a valid e-mail address."
	default:
		return "The " + name + " field is invalid."
	}
}
