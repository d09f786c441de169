package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gwhitt/roundbook/internal/metrics"
	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/gwhitt/roundbook/internal/util"
	"github.com/jmoiron/sqlx"
)

const PaymentNoticeTopic = "notices.payment"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNoTemplate       = errors.New("no payment notice template configured")
	ErrNoPhone          = errors.New("customer has no phone number")
)

// Service persists a rendered notice and its outbox event atomically.
// The outbox relay publishes to Kafka; the notifier worker takes it from
// there, so enqueueing succeeds or fails as one unit and delivery is
// decoupled.
type Service struct {
	db            *sqlx.DB
	accounts      repository.AccountsRepository
	customers     repository.CustomersRepository
	templates     repository.TemplatesRepository
	notifications repository.NotificationsRepository
	outbox        repository.OutboxRepository
}

func New(
	db *sqlx.DB,
	accounts repository.AccountsRepository,
	customers repository.CustomersRepository,
	templates repository.TemplatesRepository,
	notifications repository.NotificationsRepository,
	outbox repository.OutboxRepository,
) *Service {
	return &Service{
		db:            db,
		accounts:      accounts,
		customers:     customers,
		templates:     templates,
		notifications: notifications,
		outbox:        outbox,
	}
}

// EnqueuePaymentNotice renders the account's payment template for one
// customer and queues it: a `notifications` row and an `outbox` row in a
// single transaction. Returns the generated notification ID.
func (s *Service) EnqueuePaymentNotice(ctx context.Context, accountID, customerID int64) (string, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if acct == nil {
		return "", ErrAccountNotFound
	}
	if acct.PayTemplateID == nil {
		return "", ErrNoTemplate
	}

	cust, err := s.customers.GetByID(ctx, accountID, customerID)
	if err != nil {
		return "", fmt.Errorf("get customer: %w", err)
	}
	if cust == nil {
		return "", ErrCustomerNotFound
	}

	phone := util.NormalizePhone(cust.Phone)
	if phone == "" {
		return "", ErrNoPhone
	}

	tmpl, err := s.templates.GetByID(ctx, accountID, *acct.PayTemplateID)
	if err != nil {
		return "", fmt.Errorf("get template: %w", err)
	}
	if tmpl == nil {
		return "", ErrNoTemplate
	}

	id := util.New()
	notice := model.Notice{Phone: phone, Text: Render(acct, cust, tmpl)}

	env := model.Envelope{
		ID:         id,
		AccountID:  accountID,
		CustomerID: customerID,
		Notice:     notice,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	n := model.Notification{
		ID:         id,
		AccountID:  accountID,
		CustomerID: customerID,
		Phone:      notice.Phone,
		Text:       notice.Text,
		Status:     model.NoticeQueued,
	}
	if err := s.notifications.InsertQueued(ctx, tx, n); err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}

	if err := s.outbox.Insert(ctx, tx, "notification", id, PaymentNoticeTopic, payload); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	metrics.NoticesTotal.WithLabelValues(model.NoticeQueued.String()).Inc()

	return id, nil
}
