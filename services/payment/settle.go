package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"
	"rentwheels/services/notification"
	"rentwheels/services/payment/providers"
	"rentwheels/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// settlementNamespace seeds the name-based UUIDs used as payment ids.
var settlementNamespace = uuid.MustParse("6f1c2b9e-3d4a-5b7c-8e9f-0a1b2c3d4e5f")

// settleLockSlack is added to the provider timeout for the settlement lock TTL.
const settleLockSlack = 30 * time.Second

// Settle collects payment for a booking over the requested rail. Settlements
// of one booking are serialized, and a retry with the same details reuses the
// same idempotency key until the provider gives a definite failure.
func (o *Orchestrator) Settle(ctx context.Context, in SettleInput) (*SettlementResult, error) {
	if in.CustomerID == "" {
		return nil, utils.NewAuthError("unauthenticated", "customer identity is required")
	}
	if in.Amount <= 0 {
		return nil, utils.NewValidationError("invalid_amount", "amount must be positive")
	}
	if !models.IsSupportedMethod(in.Method) {
		return nil, utils.NewValidationError("unsupported_method", fmt.Sprintf("unsupported payment method %q", in.Method))
	}
	details, err := models.ParseMethodDetails(in.Method, in.Details)
	if err != nil {
		return nil, utils.NewValidationError("invalid_method_details", err.Error())
	}

	b, err := o.loadBooking(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != in.CustomerID {
		return nil, utils.NewForbiddenError("only the booking customer can pay for it")
	}

	unlock, acquired, err := o.locker.TryLock(ctx, settleLockKey(b.ID), o.opts.ProviderTimeout+settleLockSlack)
	if err != nil {
		return nil, utils.NewPersistenceError("could not lock booking for settlement", err)
	}
	if !acquired {
		return nil, utils.NewInvalidStateError("settlement_in_progress", "another payment for this booking is in progress")
	}
	defer unlock()

	// Re-read under the lock; a settlement may have finished meanwhile.
	if b, err = o.loadBooking(ctx, in.BookingID); err != nil {
		return nil, err
	}
	records, err := o.payments.ListRecordsByBooking(ctx, b.ID)
	if err != nil {
		return nil, utils.NewPersistenceError("could not load payment records", err)
	}
	if err := checkPayable(b, in); err != nil {
		return nil, err
	}
	if done := findRecord(records, func(r models.PaymentRecord) bool { return r.Status == models.PaymentCompleted }); done != nil {
		if done.Method == models.MethodCash {
			return nil, utils.NewInvalidStateError("already_settled", "booking already has a completed payment")
		}
		return o.repairPaid(ctx, b, done)
	}
	if err := checkRailState(b, in.Method); err != nil {
		return nil, err
	}

	rail, ok := o.rails[in.Method]
	if !ok {
		return nil, utils.NewValidationError("method_unavailable", fmt.Sprintf("%s payments are not enabled", in.Method))
	}

	failed, err := o.payments.FailedAttempts(ctx, b.ID)
	if err != nil {
		return nil, utils.NewPersistenceError("could not load payment attempts", err)
	}
	paymentID := settlementKey(b.ID, in.Method, in.Amount, details, failed)
	if prior := findRecord(records, func(r models.PaymentRecord) bool { return r.ID == paymentID }); prior != nil {
		// Same attempt already reached the provider; hand back its link.
		return recordResult(prior, b.PaymentStatus), nil
	}

	charge, err := o.charge(ctx, rail, providers.ChargeRequest{
		BookingID:      b.ID,
		CustomerID:     in.CustomerID,
		Amount:         in.Amount,
		Currency:       b.Currency,
		IdempotencyKey: paymentID,
		Details:        details,
	})
	if err != nil {
		o.logger.Warn("payment: charge failed",
			zap.String("bookingId", b.ID),
			zap.String("method", in.Method),
			zap.String("paymentId", paymentID),
			zap.Error(err))
		o.noteFailure(ctx, b.ID, err)
		return nil, err
	}

	now := o.now()
	record := &models.PaymentRecord{
		ID:                paymentID,
		BookingID:         b.ID,
		CustomerID:        in.CustomerID,
		Amount:            in.Amount,
		Currency:          b.Currency,
		Method:            in.Method,
		Provider:          charge.Provider,
		ProviderReference: charge.Reference,
		Status:            models.PaymentInitialized,
		AuthorizationURL:  charge.AuthorizationURL,
		CreatedAt:         now,
	}
	if charge.Status == providers.StatusCompleted {
		record.Status = models.PaymentCompleted
		record.CompletedAt = &now
	}

	if err := o.payments.CreateRecord(ctx, record); err != nil {
		return o.handleRecordConflict(ctx, b, record, err)
	}

	if record.Status == models.PaymentInitialized {
		ref := &models.PaymentReference{
			Reference:  charge.Reference,
			BookingID:  b.ID,
			CustomerID: in.CustomerID,
			PaymentID:  record.ID,
			Amount:     in.Amount,
			ExpiresAt:  now.Add(o.opts.ReferenceTTL),
			CreatedAt:  now,
		}
		if err := o.payments.CreateReference(ctx, ref); err != nil {
			// Verify falls back to the record, so this is not fatal.
			o.logger.Warn("payment: reference not stored", zap.String("reference", charge.Reference), zap.Error(err))
		}
	}

	result := recordResult(record, b.PaymentStatus)
	if record.Status == models.PaymentCompleted && in.Method != models.MethodCash {
		paid, err := o.payer.MarkPaid(ctx, b.ID, in.Method)
		if err != nil {
			// The next Settle or Verify for this booking retries MarkPaid.
			o.logger.Error("payment: booking not marked paid after completed charge",
				zap.String("bookingId", b.ID),
				zap.String("paymentId", record.ID),
				zap.Error(err))
			return nil, err
		}
		result.PaymentStatus = paid.PaymentStatus
	}

	o.logger.Info("payment: settled",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", record.ID),
		zap.String("method", in.Method),
		zap.String("status", record.Status))
	o.notifySettlement(ctx, b, record)
	return result, nil
}

func (o *Orchestrator) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := o.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NewNotFoundError("booking not found")
	}
	if err != nil {
		return nil, utils.NewPersistenceError("could not load booking", err)
	}
	return b, nil
}

func checkPayable(b *models.Booking, in SettleInput) error {
	if in.Amount != b.TotalPrice {
		return utils.NewValidationError("amount_mismatch",
			fmt.Sprintf("amount %d does not match booking total %d", in.Amount, b.TotalPrice))
	}
	if b.IsTerminal() || b.PaymentStatus == models.PaymentStatusPaid {
		return utils.NewInvalidStateError("not_payable", fmt.Sprintf("booking is %s and cannot be paid", b.Status))
	}
	return nil
}

// checkRailState allows cash before approval; every other rail needs an
// approved booking.
func checkRailState(b *models.Booking, method string) error {
	if method == models.MethodCash {
		if b.Status != models.BookingPending && b.Status != models.BookingApproved {
			return utils.NewInvalidStateError("not_payable", fmt.Sprintf("booking is %s and cannot be paid", b.Status))
		}
		return nil
	}
	if b.Status != models.BookingApproved {
		return utils.NewInvalidStateError("not_approved", "booking must be approved before paying")
	}
	return nil
}

// repairPaid finishes a settlement whose charge completed but whose booking
// was never marked paid.
func (o *Orchestrator) repairPaid(ctx context.Context, b *models.Booking, done *models.PaymentRecord) (*SettlementResult, error) {
	paid, err := o.payer.MarkPaid(ctx, b.ID, done.Method)
	if err != nil {
		return nil, err
	}
	o.logger.Warn("payment: booking marked paid from an earlier completed charge",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", done.ID))
	return recordResult(done, paid.PaymentStatus), nil
}

// handleRecordConflict deals with a record insert that failed after the
// provider answered.
func (o *Orchestrator) handleRecordConflict(ctx context.Context, b *models.Booking, record *models.PaymentRecord, err error) (*SettlementResult, error) {
	if !errors.Is(err, repository.ErrDuplicate) {
		o.logger.Error("payment: record not stored after provider success",
			zap.String("bookingId", b.ID),
			zap.String("paymentId", record.ID),
			zap.String("reference", record.ProviderReference),
			zap.Error(err))
		return nil, utils.NewPersistenceError("could not store payment record", err)
	}

	records, lerr := o.payments.ListRecordsByBooking(ctx, b.ID)
	if lerr != nil {
		return nil, utils.NewPersistenceError("could not load payment records", lerr)
	}
	// The provider deduplicated on the key, so this is the same charge.
	if same := findRecord(records, func(r models.PaymentRecord) bool { return r.ID == record.ID }); same != nil {
		if same.Status == models.PaymentCompleted && same.Method != models.MethodCash {
			return o.repairPaid(ctx, b, same)
		}
		return recordResult(same, b.PaymentStatus), nil
	}
	o.logger.Error("payment: charge taken but another settlement completed first",
		zap.String("bookingId", b.ID),
		zap.String("paymentId", record.ID),
		zap.String("reference", record.ProviderReference))
	return nil, utils.NewInvalidStateError("already_settled", "booking already has a completed payment")
}

// noteFailure counts a definite provider answer so the next attempt gets a
// fresh idempotency key. Timeouts, transport errors and pending answers keep
// the key for the retry.
func (o *Orchestrator) noteFailure(ctx context.Context, bookingID string, cause error) {
	var perr *providers.Error
	if !errors.As(cause, &perr) || perr.Ambiguous {
		return
	}
	if err := o.payments.AddFailedAttempt(ctx, bookingID); err != nil {
		o.logger.Warn("payment: failed attempt not counted", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

func settleLockKey(bookingID string) string {
	return "payment:settle:" + bookingID
}

// settlementKey is stable for a booking, rail, amount and payer details. The
// attempt counter moves on after each definite failure.
func settlementKey(bookingID, method string, amount int64, details models.MethodDetails, attempt int) string {
	payer, _ := json.Marshal(details)
	name := fmt.Sprintf("%s|%s|%d|%s|%d", bookingID, method, amount, payer, attempt)
	return uuid.NewSHA1(settlementNamespace, []byte(name)).String()
}

func findRecord(records []models.PaymentRecord, match func(models.PaymentRecord) bool) *models.PaymentRecord {
	for i := range records {
		if match(records[i]) {
			return &records[i]
		}
	}
	return nil
}

func recordResult(r *models.PaymentRecord, paymentStatus string) *SettlementResult {
	return &SettlementResult{
		TransactionID:    r.ID,
		Reference:        r.ProviderReference,
		Status:           r.Status,
		AuthorizationURL: r.AuthorizationURL,
		PaymentStatus:    paymentStatus,
	}
}

// charge calls the rail under the provider timeout and maps its failures.
func (o *Orchestrator) charge(ctx context.Context, rail providers.Provider, req providers.ChargeRequest) (*providers.ChargeResult, error) {
	cctx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	res, err := rail.Charge(cctx, req)
	if err != nil {
		return nil, providerError(cctx, err)
	}
	return res, nil
}

func providerError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e := utils.NewProviderError("provider_timeout", "payment provider did not answer in time; the payment may still complete", false, err)
		e.Ambiguous = true
		return e
	}
	var perr *providers.Error
	if errors.As(err, &perr) {
		e := utils.NewProviderError(perr.Code, perr.Message, perr.Declined, err)
		e.Ambiguous = perr.Ambiguous
		return e
	}
	return utils.NewProviderError("provider_unavailable", "payment provider is unavailable", false, err)
}

func (o *Orchestrator) notifySettlement(ctx context.Context, b *models.Booking, record *models.PaymentRecord) {
	if o.notifier == nil {
		return
	}
	title := "Payment received"
	message := fmt.Sprintf("We received %d %s for booking %s.", record.Amount, record.Currency, b.ID)
	switch {
	case record.Method == models.MethodCash:
		title = "Cash payment recorded"
		message = fmt.Sprintf("Your cash payment of %d %s for booking %s was recorded. Hand it to the owner at pickup.", record.Amount, record.Currency, b.ID)
	case record.Status == models.PaymentInitialized:
		title = "Complete your payment"
		message = fmt.Sprintf("Finish paying %d %s for booking %s on the payment page.", record.Amount, record.Currency, b.ID)
	}
	data := map[string]string{
		"bookingId": b.ID,
		"paymentId": record.ID,
		"reference": record.ProviderReference,
		"status":    record.Status,
	}
	if record.AuthorizationURL != "" {
		data["authorizationUrl"] = record.AuthorizationURL
	}
	o.send(ctx, b.CustomerID, title, message, data)
}

func (o *Orchestrator) send(ctx context.Context, userID, title, message string, data map[string]string) {
	_, err := o.notifier.Notify(ctx, notification.Message{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    models.NotificationPaymentUpdate,
		Data:    data,
	})
	if err != nil {
		o.logger.Warn("payment: notification failed", zap.String("userId", userID), zap.Error(err))
	}
}
