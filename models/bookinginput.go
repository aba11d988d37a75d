package models

// BookingInput is the strict body of a booking request.
type BookingInput struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	Pickup    Stop   `json:"pickup" binding:"required"`
	Dropoff   Stop   `json:"dropoff" binding:"required"`
	// Price is the daily rate in the deployment currency.
	Price int64  `json:"price" binding:"gte=0"`
	Notes string `json:"notes,omitempty" binding:"max=500"`
}

// TransitionInput carries the optional reason for approve/reject/cancel.
type TransitionInput struct {
	Reason string `json:"reason,omitempty" binding:"max=500"`
}
