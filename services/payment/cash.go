package payment

import (
	"context"
	"fmt"

	"rentwheels/models"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"go.uber.org/zap"
)

// ConfirmCash marks a cash-settled booking paid once the owner has received
// the money. The booking must be approved and hold a completed cash record.
func (o *Orchestrator) ConfirmCash(ctx context.Context, bookingID string, actor *identity.Identity) (*models.Booking, error) {
	if actor == nil {
		return nil, utils.NewAuthError("unauthenticated", "caller identity is required")
	}
	b, err := o.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UID != b.OwnerID {
		return nil, utils.NewForbiddenError("only the vehicle owner can confirm a cash payment")
	}

	records, err := o.payments.ListRecordsByBooking(ctx, b.ID)
	if err != nil {
		return nil, utils.NewPersistenceError("could not load payment records", err)
	}
	cash := findRecord(records, func(r models.PaymentRecord) bool {
		return r.Method == models.MethodCash && r.Status == models.PaymentCompleted
	})
	if cash == nil {
		return nil, utils.NewInvalidStateError("no_cash_payment", "booking has no recorded cash payment")
	}
	if b.PaymentStatus == models.PaymentStatusPaid {
		return b, nil
	}
	if b.Status != models.BookingApproved {
		return nil, utils.NewInvalidStateError("not_approved",
			fmt.Sprintf("approve the booking before confirming cash; it is %s", b.Status))
	}

	paid, err := o.payer.MarkPaid(ctx, b.ID, models.MethodCash)
	if err != nil {
		return nil, err
	}
	o.logger.Info("payment: cash confirmed",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", cash.ID),
		zap.String("actor", actor.UID))
	if o.notifier != nil {
		o.send(ctx, b.CustomerID, "Cash payment confirmed",
			fmt.Sprintf("The owner confirmed your cash payment of %d %s for booking %s.", cash.Amount, cash.Currency, b.ID),
			map[string]string{"bookingId": b.ID, "paymentId": cash.ID, "status": models.PaymentStatusPaid})
	}
	return paid, nil
}
