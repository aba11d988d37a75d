package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/utils"

	"go.uber.org/zap"
)

// Verify reconciles a redirect payment with the aggregator. Only the caller
// that moves the record to completed marks the booking paid.
func (o *Orchestrator) Verify(ctx context.Context, reference string) (*VerificationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, utils.NewValidationError("missing_reference", "providerReference is required")
	}

	record, err := o.resolve(ctx, reference)
	if err != nil {
		return nil, err
	}
	result := &VerificationResult{
		BookingID: record.BookingID,
		Reference: reference,
		Amount:    record.Amount,
		Status:    models.PaymentCompleted,
	}
	if record.Status == models.PaymentCompleted {
		// A repeat call finishes a MarkPaid that failed after completion.
		if err := o.ensurePaid(ctx, record); err != nil {
			return nil, err
		}
		o.dropReference(ctx, reference)
		return result, nil
	}
	if record.Status != models.PaymentInitialized {
		return nil, utils.NewInvalidStateError("not_verifiable", fmt.Sprintf("payment is %s", record.Status))
	}
	if o.redirect == nil {
		return nil, utils.NewValidationError("method_unavailable", "redirect payments are not enabled")
	}

	cctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	vr, err := o.redirect.Verify(cctx, reference)
	if err != nil {
		err = providerError(cctx, err)
	}
	cancel()
	if err != nil {
		return nil, err
	}
	if !vr.Success {
		return nil, utils.NewProviderError("payment_not_successful",
			fmt.Sprintf("payment is %s at the provider", vr.Status), true, nil)
	}
	if vr.Amount != record.Amount {
		o.logger.Error("payment: verified amount differs from record",
			zap.String("reference", reference),
			zap.Int64("expected", record.Amount),
			zap.Int64("got", vr.Amount))
		return nil, utils.NewProviderError("amount_mismatch", "paid amount does not match the booking total", true, nil)
	}

	won, err := o.payments.CompleteRecord(ctx, record.ID, o.now())
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, utils.NewInvalidStateError("already_settled", "booking already has a completed payment")
	}
	if err != nil {
		return nil, utils.NewPersistenceError("could not complete payment record", err)
	}
	if !won {
		if err := o.ensurePaid(ctx, record); err != nil {
			return nil, err
		}
		return result, nil
	}

	if _, err := o.payer.MarkPaid(ctx, record.BookingID, record.Method); err != nil {
		o.logger.Error("payment: booking not marked paid after verification",
			zap.String("bookingId", record.BookingID),
			zap.String("reference", reference),
			zap.Error(err))
		return nil, err
	}
	o.dropReference(ctx, reference)

	o.logger.Info("payment: verified",
		zap.String("bookingId", record.BookingID),
		zap.String("reference", reference))
	if o.notifier != nil {
		o.send(ctx, record.CustomerID, "Payment received",
			fmt.Sprintf("We received %d %s for booking %s.", record.Amount, record.Currency, record.BookingID),
			map[string]string{"bookingId": record.BookingID, "paymentId": record.ID, "reference": reference, "status": models.PaymentCompleted})
	}
	return result, nil
}

// resolve finds the record behind a reference. Live reservations are checked
// first; once one has expired the record alone is authoritative.
func (o *Orchestrator) resolve(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	ref, err := o.payments.GetReference(ctx, reference)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NewPersistenceError("could not load payment reference", err)
	}

	record, rerr := o.payments.GetRecordByReference(ctx, reference)
	switch {
	case errors.Is(rerr, repository.ErrNotFound) && ref != nil:
		return nil, utils.NewPersistenceError("payment reference has no record", rerr)
	case errors.Is(rerr, repository.ErrNotFound):
		return nil, utils.NewValidationError("unknown_reference", "payment reference is unknown")
	case rerr != nil:
		return nil, utils.NewPersistenceError("could not load payment record", rerr)
	}
	if ref != nil && ref.PaymentID != record.ID {
		return nil, utils.NewPersistenceError("payment reference points at another record", nil)
	}
	return record, nil
}

// ensurePaid marks the booking of a completed non-cash record paid when an
// earlier MarkPaid did not get through.
func (o *Orchestrator) ensurePaid(ctx context.Context, record *models.PaymentRecord) error {
	if record.Method == models.MethodCash {
		return nil
	}
	b, err := o.loadBooking(ctx, record.BookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}
	if _, err := o.payer.MarkPaid(ctx, record.BookingID, record.Method); err != nil {
		o.logger.Error("payment: booking still not marked paid",
			zap.String("bookingId", record.BookingID),
			zap.String("paymentId", record.ID),
			zap.Error(err))
		return err
	}
	return nil
}

func (o *Orchestrator) dropReference(ctx context.Context, reference string) {
	if err := o.payments.DeleteReference(ctx, reference); err != nil {
		o.logger.Warn("payment: reference cleanup failed", zap.String("reference", reference), zap.Error(err))
	}
}
