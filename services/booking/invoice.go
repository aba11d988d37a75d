package booking

import (
	"fmt"
	"time"

	"rentwheels/models"
)

// buildInvoice prices the rental as one line of rentalDays × daily rate.
func buildInvoice(b *models.Booking, at time.Time) *models.Invoice {
	description := fmt.Sprintf("Vehicle %s rental, %s to %s (%d day", b.VehicleID, b.Pickup.Date, b.Dropoff.Date, b.RentalDays)
	if b.RentalDays != 1 {
		description += "s"
	}
	description += ")"

	return &models.Invoice{
		InvoiceNumber: b.InvoiceNumber,
		BookingID:     b.ID,
		CustomerID:    b.CustomerID,
		OwnerID:       b.OwnerID,
		Lines: []models.InvoiceLine{{
			Description: description,
			Quantity:    b.RentalDays,
			UnitPrice:   b.PricePerDay,
			Amount:      b.TotalPrice,
		}},
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		IssuedAt:   at,
	}
}
