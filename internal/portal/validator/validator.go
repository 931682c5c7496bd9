package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"yogaportal/pkg/locale"
	"yogaportal/pkg/logger"
	"yogaportal/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors for an AppError payload.
func (v ValidationErrors) Details() map[string]any {
	out := make(map[string]any, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

type PortalValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPortalValidator(log *logger.Logger) *PortalValidator {
	v := validator.New()

	if err := v.RegisterValidation("location_id", validateLocationID); err != nil {
		log.Fatal("Failed to register 'location_id' validator", "error", err)
	}

	log.Debug("Portal validator initialized")

	return &PortalValidator{
		validate: v,
		logger:   log,
	}
}

func validateLocationID(fl validator.FieldLevel) bool {
	_, ok := locale.Find(fl.Field().String())
	return ok
}

func (v *PortalValidator) ValidateCartItem(item *model.CartItem) error {
	return v.check(v.validate.Struct(item))
}

// ValidateQuantity checks a line quantity reached by merging or updating.
func (v *PortalValidator) ValidateQuantity(quantity int) error {
	if err := v.check(v.validate.Var(quantity, fmt.Sprintf("gte=1,lte=%d", model.MaxCartQuantity))); err != nil {
		return relabel(err, "Quantity")
	}
	return nil
}

func (v *PortalValidator) ValidateFilters(f *model.SearchFilters) error {
	if err := v.check(v.validate.Struct(f)); err != nil {
		return err
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateTo < f.DateFrom {
		return ValidationErrors{{Field: "DateTo", Message: "date_to must not be before date_from"}}
	}
	return nil
}

func (v *PortalValidator) ValidateClassQuery(q *model.ClassQuery) error {
	if err := v.check(v.validate.Var(q.Location, "omitempty,location_id")); err != nil {
		return relabel(err, "Location")
	}
	if err := v.check(v.validate.Struct(q)); err != nil {
		return err
	}
	return v.ValidateFilters(&q.Filters)
}

func (v *PortalValidator) ValidateEventQuery(q *model.EventQuery) error {
	if err := v.check(v.validate.Var(q.Location, "omitempty,location_id")); err != nil {
		return relabel(err, "Location")
	}
	return v.check(v.validate.Struct(q))
}

func (v *PortalValidator) ValidateBooking(req *model.BookingRequest) error {
	return v.check(v.validate.Struct(req))
}

func (v *PortalValidator) ValidatePrivateLesson(req *model.PrivateLessonRequest) error {
	if err := v.check(v.validate.Struct(req)); err != nil {
		return err
	}
	if req.Location != "" {
		if _, ok := locale.Find(req.Location); !ok {
			return ValidationErrors{{Field: "Location", Message: fmt.Sprintf("Location must be one of: %s", strings.Join(locale.IDs(), " "))}}
		}
	}
	return nil
}

func (v *PortalValidator) ValidateProfileUpdate(update *model.ProfileUpdate) error {
	if err := v.check(v.validate.Struct(update)); err != nil {
		return err
	}
	if update.Preferences != nil {
		return v.check(v.validate.Struct(update.Preferences))
	}
	return nil
}

func (v *PortalValidator) ValidatePreferences(p *model.GuestPreferences) error {
	return v.check(v.validate.Struct(p))
}

func (v *PortalValidator) check(err error) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return v.translateValidationErrors(validationErrs)
	}
	return err
}

// relabel names the field for errors raised by validate.Var, which has none.
func relabel(err error, field string) error {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for i := range verrs {
		verrs[i].Field = field
		if strings.HasPrefix(verrs[i].Message, "must") {
			verrs[i].Message = field + " " + verrs[i].Message
		}
	}
	return verrs
}

func (v *PortalValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
		case "lte":
			message = fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
		case "gtefield":
			message = fmt.Sprintf("%s must not be less than %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match the format %s", err.Field(), err.Param())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "location_id":
			message = fmt.Sprintf("must be one of: %s", strings.Join(locale.IDs(), " "))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
