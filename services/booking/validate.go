package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"rentflow/models"

	"github.com/go-playground/validator/v10"
)

var contactValidate = newContactValidator()

// newContactValidator builds the validator used for step-2 contact fields,
// reporting field names by their json tag so errors map onto the form.
func newContactValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateContact checks the contact/address fields and returns field-scoped
// errors suitable for rendering next to the inputs.
func ValidateContact(contact *models.ContactDetails) *ValidationErrors {
	if contact == nil {
		return &ValidationErrors{
			Step:   models.StepContact,
			Fields: []ValidationError{{Field: "contact", Message: "contact details are required"}},
		}
	}

	err := contactValidate.Struct(contact)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return &ValidationErrors{
			Step:   models.StepContact,
			Fields: []ValidationError{{Field: "contact", Message: err.Error()}},
		}
	}

	fields := make([]ValidationError, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, ValidationError{Field: fe.Field(), Message: contactFieldMessage(fe)})
	}
	return &ValidationErrors{Step: models.StepContact, Fields: fields}
}

func contactFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "please enter a valid email address"
	case "e164":
		return "please enter a phone number in international format"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "invalid value"
	}
}

// ValidateTimeSlot checks the step-1 delivery slot against the offered
// options. With no options configured the slot is not collected.
func ValidateTimeSlot(slot string, offered []string) *ValidationErrors {
	if len(offered) == 0 {
		return nil
	}
	if slot == "" {
		return &ValidationErrors{
			Step:   models.StepDates,
			Fields: []ValidationError{{Field: "timeSlot", Message: "please choose a delivery time slot"}},
		}
	}
	for _, o := range offered {
		if slot == o {
			return nil
		}
	}
	return &ValidationErrors{
		Step:   models.StepDates,
		Fields: []ValidationError{{Field: "timeSlot", Message: "the selected time slot is not offered"}},
	}
}

// ValidateDates checks the step-1 range against the minimum rental duration.
func ValidateDates(rng models.DateRange, minRentalDays int) *ValidationErrors {
	if !rng.IsComplete() {
		return &ValidationErrors{
			Step:   models.StepDates,
			Fields: []ValidationError{{Field: "dates", Message: "please select a start and end date"}},
		}
	}
	if !rng.IsValid(minRentalDays) {
		return &ValidationErrors{
			Step: models.StepDates,
			Fields: []ValidationError{{
				Field:   "dates",
				Message: fmt.Sprintf("the minimum rental period is %d day(s)", minRentalDays),
			}},
		}
	}
	return nil
}
