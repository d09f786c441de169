package workload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gwhitt/roundbook/internal/metrics"
	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/gwhitt/roundbook/internal/schedule"
	"github.com/gwhitt/roundbook/internal/util"
	"go.uber.org/zap"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrEmptyDate        = errors.New("target date is required")
)

// Service runs the scheduling engine against the stores. The engine
// itself (package schedule) stays pure; everything stateful happens
// here, one logical account at a time, with no cross-record
// transactions: partial failures are reported, not rolled back, and a
// later reconcile pass straightens the ledger out.
type Service struct {
	accounts  repository.AccountsRepository
	customers repository.CustomersRepository
	routes    repository.RoutesRepository
	pricing   repository.PricingCatalog
	history   repository.HistoryRepository
	log       *zap.Logger
}

func New(
	accounts repository.AccountsRepository,
	customers repository.CustomersRepository,
	routes repository.RoutesRepository,
	pricing repository.PricingCatalog,
	history repository.HistoryRepository,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		accounts:  accounts,
		customers: customers,
		routes:    routes,
		pricing:   pricing,
		history:   history,
		log:       log,
	}
}

// MonthDay is one calendar day carrying work.
type MonthDay struct {
	Day  int `json:"day"`
	Jobs int `json:"jobs"`
}

// MonthView answers which days of a month have due jobs.
func (s *Service) MonthView(ctx context.Context, accountID int64, year int, month time.Month) ([]MonthDay, error) {
	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	idx := schedule.NewMonthIndex(year, month, dueEntries(customers))
	days := idx.WorkDays()
	out := make([]MonthDay, 0, len(days))
	for _, d := range days {
		out = append(out, MonthDay{Day: d, Jobs: idx.JobCount(d)})
	}
	return out, nil
}

// DayView is one day's due customers in route order.
type DayView struct {
	Date      schedule.Date
	Customers []model.Customer
	Income    int64 // pence, sum of due prices
}

// DayView composes the ordered job list for one day. It runs the
// opportunistic reconcile pass first: live customers missing from the
// ledger are appended and, when anything was appended, the ledger is
// written back. A failed write-back degrades to the in-memory route;
// the next pass picks it up.
func (s *Service) DayView(ctx context.Context, accountID int64, date schedule.Date) (*DayView, error) {
	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	route, err := s.reconciledRoute(ctx, accountID, customers)
	if err != nil {
		return nil, err
	}

	idx := schedule.NewMonthIndex(date.Year, date.Month, dueEntries(customers))
	due := idx.DueOn(date.Day)
	ordered := schedule.ComposeDay(due, route)

	byID := make(map[int64]model.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	view := &DayView{Date: date, Customers: make([]model.Customer, 0, len(ordered))}
	for _, id := range ordered {
		c, ok := byID[id]
		if !ok {
			continue
		}
		view.Customers = append(view.Customers, c)
		view.Income += c.Price
	}
	return view, nil
}

// reconciledRoute reads the ledger, appends missing live ids, and writes
// back only when something was appended.
func (s *Service) reconciledRoute(ctx context.Context, accountID int64, customers []model.Customer) (schedule.Route, error) {
	raw, err := s.routes.Read(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read route ledger: %w", err)
	}

	live := make([]int64, len(customers))
	for i, c := range customers {
		live[i] = c.ID
	}

	route, changed := schedule.Reconcile(schedule.ParseRoute(raw), live)
	if changed {
		if werr := s.routes.Write(ctx, accountID, route.Encode()); werr != nil {
			s.log.Warn("route reconcile write-back failed",
				zap.Int64("account_id", accountID), zap.Error(werr))
		}
	}
	return route, nil
}

// Reorder moves the item at from to position to within one day's
// sequence, then splices the reordered day back into the global ledger
// at its anchor position. Out-of-range indices return
// schedule.ErrBadIndex before anything is written.
func (s *Service) Reorder(ctx context.Context, accountID int64, date schedule.Date, from, to int) error {
	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list customers: %w", err)
	}

	raw, err := s.routes.Read(ctx, accountID)
	if err != nil {
		return fmt.Errorf("read route ledger: %w", err)
	}
	route := schedule.ParseRoute(raw)

	idx := schedule.NewMonthIndex(date.Year, date.Month, dueEntries(customers))
	daySeq := schedule.ComposeDay(idx.DueOn(date.Day), route)

	reordered, err := daySeq.Move(from, to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	next := schedule.Splice(route, daySeq, reordered)
	if err := s.routes.Write(ctx, accountID, next.Encode()); err != nil {
		return fmt.Errorf("write route ledger: %w", err)
	}
	return nil
}

// CompleteResult reports the state after a completion.
type CompleteResult struct {
	NextDue         schedule.Date
	Outstanding     int64
	NoticeAvailable bool // a payment notice template is configured
}

// Complete marks a job done, attributed to the day being viewed. The
// next occurrence is viewed + recurrence weeks regardless of the old due
// date; an unpaid completion adds the current price to the balance.
// The history append is best-effort, and so is the follow-up price
// reconciliation against the catalog: the primary date/balance write is
// the one that must succeed.
func (s *Service) Complete(ctx context.Context, accountID, customerID int64, viewed schedule.Date, paid bool) (*CompleteResult, error) {
	if viewed.IsZero() {
		return nil, ErrEmptyDate
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	cust, err := s.customers.GetByID(ctx, accountID, customerID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if cust == nil {
		return nil, ErrCustomerNotFound
	}

	next := viewed.AddWeeks(cust.Weeks)
	outstanding := cust.Outstanding

	upd := repository.CustomerUpdate{NextDue: &next}
	if !paid {
		outstanding += cust.Price
		upd.Outstanding = &outstanding
	}
	if err := s.customers.Update(ctx, accountID, customerID, upd); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	outcome := "paid"
	if !paid {
		outcome = "unpaid"
	}
	metrics.JobsCompletedTotal.WithLabelValues(outcome).Inc()

	service := cust.NextService
	if service == "" {
		service = acct.DefaultService
	}
	var line string
	if paid {
		line = fmt.Sprintf("%s completed on %s, paid £%s", service, viewed, util.Pounds(cust.Price))
	} else {
		line = fmt.Sprintf("%s completed on %s, not paid, £%s now owed", service, viewed, util.Pounds(outstanding))
	}
	if herr := s.history.Append(ctx, customerID, line); herr != nil {
		s.log.Warn("history append failed",
			zap.Int64("customer_id", customerID), zap.Error(herr))
	}

	s.reconcilePrice(ctx, acct, customerID)

	return &CompleteResult{
		NextDue:         next,
		Outstanding:     outstanding,
		NoticeAvailable: acct.PayTemplateID != nil,
	}, nil
}

// reconcilePrice re-reads the canonical price for the account's default
// service and, when the catalog has an entry, overwrites the customer's
// price and next-service label. Independent edits elsewhere can leave
// the customer row stale; completion is the point where it is trued up.
func (s *Service) reconcilePrice(ctx context.Context, acct *model.Account, customerID int64) {
	price, found, err := s.pricing.Lookup(ctx, customerID, acct.DefaultService)
	if err != nil {
		s.log.Warn("pricing lookup failed",
			zap.Int64("customer_id", customerID), zap.Error(err))
		return
	}
	if !found {
		return
	}
	upd := repository.CustomerUpdate{Price: &price, NextService: &acct.DefaultService}
	if err := s.customers.Update(ctx, acct.ID, customerID, upd); err != nil {
		s.log.Warn("price reconcile write failed",
			zap.Int64("customer_id", customerID), zap.Error(err))
	}
}

// BatchFailure is one failed write within a bulk move.
type BatchFailure struct {
	CustomerID int64
	Err        error
}

// BatchResult itemizes a bulk move so callers can retry failures
// deterministically instead of guessing from an all-or-nothing signal.
type BatchResult struct {
	Moved   []int64
	Skipped []int64 // no due date set
	Failed  []BatchFailure
}

func (b *BatchResult) OK() bool { return len(b.Failed) == 0 }

// BulkMove applies newDate to the selected customers, or to the whole
// day's due set when ids is empty. Customers without a due date are
// skipped. Writes are independent and dispatched concurrently; a
// failure neither blocks nor undoes the others.
func (s *Service) BulkMove(ctx context.Context, accountID int64, day schedule.Date, ids []int64, newDate schedule.Date) (*BatchResult, error) {
	if newDate.IsZero() {
		return nil, ErrEmptyDate
	}

	customers, err := s.customers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	byID := make(map[int64]model.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	res := &BatchResult{}
	var targets []model.Customer
	if len(ids) == 0 {
		idx := schedule.NewMonthIndex(day.Year, day.Month, dueEntries(customers))
		for _, id := range idx.DueOn(day.Day) {
			targets = append(targets, byID[id])
		}
	} else {
		for _, id := range ids {
			c, ok := byID[id]
			if !ok {
				res.Failed = append(res.Failed, BatchFailure{CustomerID: id, Err: ErrCustomerNotFound})
				continue
			}
			targets = append(targets, c)
		}
	}

	type outcome struct {
		id  int64
		err error
	}
	results := make(chan outcome, len(targets))
	var wg sync.WaitGroup

	for _, c := range targets {
		if !c.NextDue.Valid {
			res.Skipped = append(res.Skipped, c.ID)
			continue
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			err := s.customers.Update(ctx, accountID, id, repository.CustomerUpdate{NextDue: &newDate})
			results <- outcome{id: id, err: err}
		}(c.ID)
	}
	wg.Wait()
	close(results)

	for o := range results {
		if o.err != nil {
			res.Failed = append(res.Failed, BatchFailure{CustomerID: o.id, Err: o.err})
			continue
		}
		res.Moved = append(res.Moved, o.id)
	}

	sort.Slice(res.Moved, func(i, j int) bool { return res.Moved[i] < res.Moved[j] })
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i] < res.Skipped[j] })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].CustomerID < res.Failed[j].CustomerID })
	return res, nil
}

func dueEntries(customers []model.Customer) []schedule.DueEntry {
	entries := make([]schedule.DueEntry, 0, len(customers))
	for _, c := range customers {
		if !c.NextDue.Valid {
			continue
		}
		entries = append(entries, schedule.DueEntry{ID: c.ID, Due: c.NextDue.Date})
	}
	return entries
}
