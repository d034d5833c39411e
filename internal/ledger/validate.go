package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateRequest(req models.CreateBookingRequest) error {
	if err := validate.Struct(req); err != nil {
		return describe(err)
	}
	// the tags do not look behind the destination pointer
	if req.DestinationLocationID != nil && *req.DestinationLocationID == uuid.Nil {
		return fmt.Errorf("%w: destinationLocationId must not be the nil id", ErrInvalidBooking)
	}
	return nil
}

// describe turns the first field error into an ErrInvalidBooking message
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		if fe.Field() == "durationMinutes" {
			return fmt.Errorf("%w: durationMinutes must be between 1 and %d", ErrInvalidBooking, models.MaxBookingDurationMinutes)
		}
		return fmt.Errorf("%w: %s is required", ErrInvalidBooking, fe.Field())
	case "min", "max":
		return fmt.Errorf("%w: %s must be between 1 and %d", ErrInvalidBooking, fe.Field(), models.MaxBookingDurationMinutes)
	}
	return fmt.Errorf("%w: %s failed %s", ErrInvalidBooking, fe.Field(), fe.Tag())
}
