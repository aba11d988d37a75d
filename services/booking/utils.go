package booking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/utils"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// validateBookingInput checks the request and returns the rental length in days.
func validateBookingInput(input models.BookingInput) (int, error) {
	if strings.TrimSpace(input.VehicleID) == "" {
		return 0, utils.NewValidationError("missing_vehicle", "vehicleId is required")
	}
	if input.Price < 0 {
		return 0, utils.NewValidationError("invalid_price", "price must be non-negative")
	}

	pickup, err := parseStop("pickup", input.Pickup)
	if err != nil {
		return 0, err
	}
	dropoff, err := parseStop("dropoff", input.Dropoff)
	if err != nil {
		return 0, err
	}
	if dropoff.Before(pickup) {
		return 0, utils.NewValidationError("invalid_dates", "dropoff must not be before pickup")
	}

	days := rentalDays(pickup, dropoff)
	if input.Price > 0 && int64(days) > math.MaxInt64/input.Price {
		return 0, utils.NewValidationError("invalid_price", "total price overflows")
	}
	return days, nil
}

func parseStop(name string, s models.Stop) (time.Time, error) {
	if strings.TrimSpace(s.Location) == "" {
		return time.Time{}, utils.NewValidationError("missing_location", name+".location is required")
	}
	if s.Date == "" {
		return time.Time{}, utils.NewValidationError("missing_date", name+".date is required")
	}
	day, err := time.Parse(dateLayout, s.Date)
	if err != nil {
		return time.Time{}, utils.NewValidationError("invalid_date", fmt.Sprintf("%s.date must be YYYY-MM-DD", name))
	}
	if s.Time == "" {
		return day, nil
	}
	clock, err := time.Parse(timeLayout, s.Time)
	if err != nil {
		return time.Time{}, utils.NewValidationError("invalid_time", fmt.Sprintf("%s.time must be HH:MM", name))
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// rentalDays counts calendar days between pickup and dropoff, minimum one.
func rentalDays(pickup, dropoff time.Time) int {
	start := time.Date(pickup.Year(), pickup.Month(), pickup.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(dropoff.Year(), dropoff.Month(), dropoff.Day(), 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func newInvoiceNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", at.Format("20060102"), suffix)
}

// storeError converts repository errors into the service taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.NewNotFoundError("booking not found")
	case errors.Is(err, repository.ErrConflict):
		return utils.NewInvalidStateError("concurrent_update", "booking was modified concurrently, reload and retry")
	default:
		return utils.NewPersistenceError(op+" failed", err)
	}
}
