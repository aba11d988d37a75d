package models

import "time"

// InvoiceLine is a single charge on an invoice.
type InvoiceLine struct {
	Description string `bson:"description" json:"description"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	UnitPrice   int64  `bson:"unit_price" json:"unitPrice"`
	Amount      int64  `bson:"amount" json:"amount"`
}

// Invoice is generated once per booking at creation time and never amended.
type Invoice struct {
	InvoiceNumber string        `bson:"invoice_number" json:"invoiceNumber"`
	BookingID     string        `bson:"booking_id" json:"bookingId"`
	CustomerID    string        `bson:"customer_id" json:"customerId"`
	OwnerID       string        `bson:"owner_id" json:"ownerId"`
	Lines         []InvoiceLine `bson:"lines" json:"lines"`
	TotalPrice    int64         `bson:"total_price" json:"totalPrice"`
	Currency      string        `bson:"currency" json:"currency"`
	IssuedAt      time.Time     `bson:"issued_at" json:"issuedAt"`
}
