package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gwhitt/roundbook/internal/kafka"
	"github.com/gwhitt/roundbook/internal/messenger"
	"github.com/gwhitt/roundbook/internal/metrics"
	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Notifier:
// - fetches notice envelopes from Kafka,
// - dispatches them via messenger providers,
// - batches notification status updates (MySQL) and history appends
//   (ClickHouse).
type Notifier struct {
	// Dependencies
	DB            *sqlx.DB
	Consumer      *kafka.Consumer
	Notifications repository.NotificationsRepository
	History       repository.HistoryRepository
	Dispatch      *messenger.Dispatcher

	// Behavior
	Workers   int           // number of goroutines processing envelopes
	BatchSize int           // max buffered updates per flush (items)
	BatchWait time.Duration // max time to wait before flush
}

// NewNotifier builds a worker with sane defaults.
func NewNotifier(
	db *sqlx.DB,
	consumer *kafka.Consumer,
	notificationsRepo repository.NotificationsRepository,
	historyRepo repository.HistoryRepository,
	dispatch *messenger.Dispatcher,
) *Notifier {
	return &Notifier{
		DB:            db,
		Consumer:      consumer,
		Notifications: notificationsRepo,
		History:       historyRepo,
		Dispatch:      dispatch,
		Workers:       4,
		BatchSize:     50,
		BatchWait:     2 * time.Second,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *Notifier) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 4
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 50
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 2 * time.Second
	}

	// Channel for worker results → batch writer
	updates := make(chan updateItem, w.BatchSize*2)
	defer close(updates)

	// Start batch writer
	go w.runBatchWriter(ctx, updates)

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[notifier] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	// Start processors
	for i := 0; i < w.Workers; i++ {
		go w.runProcessor(ctx, msgCh, updates)
	}

	// Block until shutdown
	<-ctx.Done()
	return nil
}

type updateItem struct {
	id         string
	customerID int64
	phone      string
	status     model.NotificationStatus // sent | failed
}

// runProcessor parses envelopes, dispatches, emits updates, commits Kafka.
func (w *Notifier) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- updateItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

func (w *Notifier) processOne(ctx context.Context, m kafka.Message, out chan<- updateItem) {
	// Parse envelope: { id, account_id, customer_id, notice:{phone,text} }
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
		_ = w.Consumer.Commit(ctx, m) // poison → commit, skip
		if err != nil {
			log.Printf("[notifier] bad envelope json: %v", err)
		} else {
			log.Printf("[notifier] envelope missing id")
		}
		return
	}

	status := model.NoticeSent
	if err := w.Dispatch.Send(ctx, env.Notice); err != nil {
		log.Printf("[notifier] dispatch %s err: %v", env.ID, err)
		status = model.NoticeFailed
	}
	metrics.NoticesTotal.WithLabelValues(status.String()).Inc()

	out <- updateItem{
		id:         env.ID,
		customerID: env.CustomerID,
		phone:      env.Notice.Phone,
		status:     status,
	}

	// Always commit (at-least-once; status updates are idempotent)
	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[notifier] commit err: %v", err)
	}
}

// runBatchWriter does size/time-based flush: one MySQL TX for the status
// updates, then a best-effort ClickHouse history batch.
func (w *Notifier) runBatchWriter(ctx context.Context, in <-chan updateItem) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var sent, failed []updateItem

	reset := func() {
		sent = sent[:0]
		failed = failed[:0]
	}

	flush := func() {
		if len(sent) == 0 && len(failed) == 0 {
			return
		}

		sentIDs := make([]string, 0, len(sent))
		for _, it := range sent {
			sentIDs = append(sentIDs, it.id)
		}
		failedIDs := make([]string, 0, len(failed))
		for _, it := range failed {
			failedIDs = append(failedIDs, it.id)
		}

		tx, err := w.DB.BeginTxx(ctx, nil)
		if err != nil {
			log.Printf("[notifier] begin tx err: %v", err)
			reset()
			return
		}
		defer func() { _ = tx.Rollback() }()

		if len(sentIDs) > 0 {
			if err := w.Notifications.BatchUpdateStatus(ctx, tx, sentIDs, model.NoticeSent); err != nil {
				log.Printf("[notifier] batch update sent err: %v", err)
				return
			}
		}
		if len(failedIDs) > 0 {
			if err := w.Notifications.BatchUpdateStatus(ctx, tx, failedIDs, model.NoticeFailed); err != nil {
				log.Printf("[notifier] batch update failed err: %v", err)
				return
			}
		}

		if err := tx.Commit(); err != nil {
			log.Printf("[notifier] tx commit err: %v", err)
			return
		}

		// History is informational; a failed append never blocks status.
		entries := make([]model.HistoryEntry, 0, len(sent)+len(failed))
		for _, it := range sent {
			entries = append(entries, model.HistoryEntry{
				CustomerID: it.customerID,
				Message:    "Payment notice sent to " + it.phone,
			})
		}
		for _, it := range failed {
			entries = append(entries, model.HistoryEntry{
				CustomerID: it.customerID,
				Message:    "Payment notice to " + it.phone + " failed",
			})
		}
		if err := w.History.AppendBatch(ctx, entries); err != nil {
			log.Printf("[notifier] history batch err: %v", err)
		}

		log.Printf("[notifier] flushed: sent=%d failed=%d", len(sentIDs), len(failedIDs))

		reset()
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case u, ok := <-in:
			if !ok {
				flush()
				return
			}
			if u.status == model.NoticeSent {
				sent = append(sent, u)
			} else if u.status == model.NoticeFailed {
				failed = append(failed, u)
			}

			if len(sent)+len(failed) >= w.BatchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}
