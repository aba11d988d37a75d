package models

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingApproved  = "approved"
	BookingRejected  = "rejected"
	BookingPaid      = "paid"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Stop is one end of a rental: where and when the vehicle changes hands.
type Stop struct {
	Date     string `bson:"date" json:"date"` // YYYY-MM-DD
	Time     string `bson:"time" json:"time"` // HH:MM
	Location string `bson:"location" json:"location"`
}

// Booking is a reservation of a vehicle for a date range.
type Booking struct {
	ID              string    `bson:"id" json:"id"`
	CustomerID      string    `bson:"customer_id" json:"customerId"`
	VehicleID       string    `bson:"vehicle_id" json:"vehicleId"`
	OwnerID         string    `bson:"owner_id" json:"ownerId"`
	Pickup          Stop      `bson:"pickup" json:"pickup"`
	Dropoff         Stop      `bson:"dropoff" json:"dropoff"`
	RentalDays      int       `bson:"rental_days" json:"rentalDays"`
	PricePerDay     int64     `bson:"price_per_day" json:"pricePerDay"`
	TotalPrice      int64     `bson:"total_price" json:"totalPrice"`
	Currency        string    `bson:"currency" json:"currency"`
	Status          string    `bson:"status" json:"status"`
	PaymentStatus   string    `bson:"payment_status" json:"paymentStatus"`
	PaymentMethod   string    `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	InvoiceNumber   string    `bson:"invoice_number" json:"invoiceNumber"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	StatusUpdatedBy string    `bson:"status_updated_by,omitempty" json:"statusUpdatedBy,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether no further transition is allowed.
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingRejected, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// BookingTransition is a compare-and-set status change. The From fields are
// the expected current values; an empty FromPaymentStatus matches any value
// except the ones listed in NotPaymentStatus.
type BookingTransition struct {
	FromStatus        string
	FromPaymentStatus string
	NotPaymentStatus  string
	ToStatus          string
	ToPaymentStatus   string
	PaymentMethod     string
	ActorID           string
	At                time.Time
}
