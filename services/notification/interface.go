package notification

import (
	"context"
	"time"

	directoryRepo "rentwheels/database/repository/directory"
	notificationRepo "rentwheels/database/repository/notification"
	"rentwheels/models"
	"rentwheels/services/identity"

	"go.uber.org/zap"
)

// Retry sweep bounds.
const (
	DefaultRetryLimit = 50
	MaxRetryLimit     = 500
)

// Result states of a single send.
const (
	ResultSent      = "sent"
	ResultFailed    = "failed"
	ResultExhausted = "exhausted"
	ResultNoop      = "noop"
	ResultSkipped   = "skipped"
)

// Message is what callers hand to Notify.
type Message struct {
	// UserID empty means broadcast.
	UserID   string
	Title    string
	Message  string
	Type     string
	Data     map[string]string
	Channels []string
}

// SendOptions controls SendByID.
type SendOptions struct {
	Force    bool
	Channels []string

	// onlyUnprocessed is set by the retry sweep so a notification that was
	// delivered by someone else in the meantime is left alone.
	onlyUnprocessed bool
}

// SendResult reports what one SendByID call did.
type SendResult struct {
	NotificationID string                     `json:"notificationId"`
	Status         string                     `json:"status"`
	Reason         string                     `json:"reason,omitempty"`
	Deliveries     map[string]models.Delivery `json:"deliveries,omitempty"`
	Processed      bool                       `json:"processed"`
	Attempts       int                        `json:"attempts"`
}

// RetryItem is one entry of a retry sweep.
type RetryItem struct {
	NotificationID string      `json:"notificationId"`
	Result         *SendResult `json:"result,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// RetryResult summarises a retry sweep.
type RetryResult struct {
	Count   int         `json:"count"`
	Results []RetryItem `json:"results"`
}

// NotificationService is the dispatcher surface used by handlers, workers and
// the other services.
type NotificationService interface {
	Notify(ctx context.Context, msg Message) (*models.Notification, error)
	SendByID(ctx context.Context, id string, opts SendOptions) (*SendResult, error)
	RetryFailed(ctx context.Context, limit int) (*RetryResult, error)
	MarkRead(ctx context.Context, id string, actor *identity.Identity) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

// Enqueuer hands a stored notification to the background worker.
type Enqueuer interface {
	EnqueueSend(ctx context.Context, notificationID string) error
}

// Dispatcher implements NotificationService.
type Dispatcher struct {
	repo        notificationRepo.NotificationRepository
	contacts    directoryRepo.ContactDirectory
	channels    map[string]Channel
	locker      Locker
	enqueuer    Enqueuer
	maxAttempts int
	lockTTL     time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDispatcher wires the dispatcher. enqueuer may be nil, in which case new
// notifications wait for the retry sweep.
func NewDispatcher(
	repo notificationRepo.NotificationRepository,
	contacts directoryRepo.ContactDirectory,
	channels []Channel,
	locker Locker,
	enqueuer Enqueuer,
	maxAttempts int,
	logger *zap.Logger,
) *Dispatcher {
	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Dispatcher{
		repo:        repo,
		contacts:    contacts,
		channels:    byName,
		locker:      locker,
		enqueuer:    enqueuer,
		maxAttempts: maxAttempts,
		lockTTL:     time.Minute,
		logger:      logger,
		now:         time.Now,
	}
}

// SetEnqueuer attaches the background queue after construction; the worker
// and the dispatcher depend on each other.
func (d *Dispatcher) SetEnqueuer(e Enqueuer) {
	d.enqueuer = e
}
