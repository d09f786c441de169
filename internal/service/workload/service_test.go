package workload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gwhitt/roundbook/internal/model"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/gwhitt/roundbook/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAccounts struct {
	acct *model.Account
}

func (f *fakeAccounts) GetByAPIKey(ctx context.Context, key string) (*model.Account, error) {
	return f.acct, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	if f.acct != nil && f.acct.ID == id {
		return f.acct, nil
	}
	return nil, nil
}

type fakeCustomers struct {
	mu      sync.Mutex
	items   map[int64]*model.Customer
	failIDs map[int64]error // Update fails for these ids
	updates int
}

func newFakeCustomers(cs ...*model.Customer) *fakeCustomers {
	f := &fakeCustomers{items: map[int64]*model.Customer{}, failIDs: map[int64]error{}}
	for _, c := range cs {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCustomers) ListByAccount(ctx context.Context, accountID int64) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Customer, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.items[id])
	}
	return out, nil
}

func (f *fakeCustomers) GetByID(ctx context.Context, accountID, id int64) (*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) Update(ctx context.Context, accountID, id int64, upd repository.CustomerUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	c, ok := f.items[id]
	if !ok {
		return errors.New("no such customer")
	}
	f.updates++
	if upd.NextDue != nil {
		c.NextDue = schedule.NullDate{Date: *upd.NextDue, Valid: true}
	}
	if upd.Outstanding != nil {
		c.Outstanding = *upd.Outstanding
	}
	if upd.Price != nil {
		c.Price = *upd.Price
	}
	if upd.NextService != nil {
		c.NextService = *upd.NextService
	}
	return nil
}

type fakeRoutes struct {
	seq      string
	writes   []string
	writeErr error
}

func (f *fakeRoutes) Read(ctx context.Context, accountID int64) (string, error) {
	return f.seq, nil
}

func (f *fakeRoutes) Write(ctx context.Context, accountID int64, sequence string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.seq = sequence
	f.writes = append(f.writes, sequence)
	return nil
}

type fakePricing struct {
	prices map[string]int64 // "customerID/service" -> price
	err    error
}

func (f *fakePricing) Lookup(ctx context.Context, customerID int64, service string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	p, ok := f.prices[fmt.Sprintf("%d/%s", customerID, service)]
	return p, ok, nil
}

type fakeHistory struct {
	mu        sync.Mutex
	entries   []model.HistoryEntry
	appendErr error
}

func (f *fakeHistory) Append(ctx context.Context, customerID int64, message string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, model.HistoryEntry{CustomerID: customerID, Message: message})
	return nil
}

func (f *fakeHistory) AppendBatch(ctx context.Context, entries []model.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeHistory) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.HistoryEntry, error) {
	return nil, nil
}

// ---- helpers ----

func d(y int, m time.Month, day int) schedule.Date {
	return schedule.Date{Year: y, Month: m, Day: day}
}

func due(dt schedule.Date) schedule.NullDate {
	return schedule.NullDate{Date: dt, Valid: true}
}

func testAccount() *model.Account {
	return &model.Account{ID: 1, Name: "Shine Right", DefaultService: "Window Cleaning"}
}

func newService(acct *model.Account, custs *fakeCustomers, routes *fakeRoutes, pricing *fakePricing, hist *fakeHistory) *Service {
	if pricing == nil {
		pricing = &fakePricing{}
	}
	if hist == nil {
		hist = &fakeHistory{}
	}
	return New(&fakeAccounts{acct: acct}, custs, routes, pricing, hist, nil)
}

// ---- completion ----

func TestCompleteSetsNextDueFromViewedDay(t *testing.T) {
	// Old due date is deliberately different from the viewed day; the
	// next occurrence keys off the viewed day alone.
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 4, Price: 1500,
		NextDue: due(d(2026, time.September, 10)),
	})
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	viewed := d(2026, time.September, 14)
	res, err := svc.Complete(context.Background(), 1, 7, viewed, true)
	require.NoError(t, err)

	assert.Equal(t, d(2026, time.October, 12), res.NextDue)
	assert.Equal(t, due(d(2026, time.October, 12)), custs.items[7].NextDue)
}

func TestCompletePaidLeavesBalance(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 2, Price: 1500, Outstanding: 500,
		NextDue: due(d(2026, time.September, 14)),
	})
	hist := &fakeHistory{}
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, hist)

	res, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), true)
	require.NoError(t, err)

	assert.Equal(t, int64(500), res.Outstanding)
	assert.Equal(t, int64(500), custs.items[7].Outstanding)
	require.Len(t, hist.entries, 1)
	assert.Contains(t, hist.entries[0].Message, "paid £15.00")
}

func TestCompleteUnpaidAddsPriceToBalance(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 2, Price: 1500, Outstanding: 500,
		NextDue: due(d(2026, time.September, 14)),
	})
	hist := &fakeHistory{}
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, hist)

	res, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), false)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), res.Outstanding)
	assert.Equal(t, int64(2000), custs.items[7].Outstanding)
	require.Len(t, hist.entries, 1)
	assert.Contains(t, hist.entries[0].Message, "£20.00 now owed")
}

func TestCompleteZeroWeeksRecursSameDay(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 0, Price: 100,
		NextDue: due(d(2026, time.September, 14)),
	})
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	res, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), true)
	require.NoError(t, err)
	assert.Equal(t, d(2026, time.September, 14), res.NextDue)
}

func TestCompleteReconcilesPriceFromCatalog(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 2, Price: 1200, NextService: "Gutter Clear",
		NextDue: due(d(2026, time.September, 14)),
	})
	pricing := &fakePricing{prices: map[string]int64{"7/Window Cleaning": 1800}}
	svc := newService(testAccount(), custs, &fakeRoutes{}, pricing, nil)

	_, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), true)
	require.NoError(t, err)

	assert.Equal(t, int64(1800), custs.items[7].Price)
	assert.Equal(t, "Window Cleaning", custs.items[7].NextService)
}

func TestCompleteNoCatalogEntryKeepsPrice(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 2, Price: 1200, NextService: "Gutter Clear",
		NextDue: due(d(2026, time.September, 14)),
	})
	svc := newService(testAccount(), custs, &fakeRoutes{}, &fakePricing{}, nil)

	_, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), true)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), custs.items[7].Price)
	assert.Equal(t, "Gutter Clear", custs.items[7].NextService)
}

func TestCompleteSurvivesHistoryFailure(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 1, Price: 1000,
		NextDue: due(d(2026, time.September, 14)),
	})
	hist := &fakeHistory{appendErr: errors.New("clickhouse down")}
	pricing := &fakePricing{prices: map[string]int64{"7/Window Cleaning": 1100}}
	svc := newService(testAccount(), custs, &fakeRoutes{}, pricing, hist)

	res, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), false)
	require.NoError(t, err)

	// Date/balance update and price reconciliation both went through.
	assert.Equal(t, d(2026, time.September, 21), res.NextDue)
	assert.Equal(t, int64(1000), res.Outstanding)
	assert.Equal(t, int64(1100), custs.items[7].Price)
}

func TestCompleteReportsNoticeAvailability(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{
		ID: 7, AccountID: 1, Weeks: 1, Price: 1000,
		NextDue: due(d(2026, time.September, 14)),
	})
	tmplID := int64(3)
	acct := testAccount()
	acct.PayTemplateID = &tmplID
	svc := newService(acct, custs, &fakeRoutes{}, nil, nil)

	res, err := svc.Complete(context.Background(), 1, 7, d(2026, time.September, 14), false)
	require.NoError(t, err)
	assert.True(t, res.NoticeAvailable)
}

func TestCompleteValidation(t *testing.T) {
	custs := newFakeCustomers(&model.Customer{ID: 7, AccountID: 1})
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	_, err := svc.Complete(context.Background(), 1, 7, schedule.Date{}, true)
	assert.ErrorIs(t, err, ErrEmptyDate)

	_, err = svc.Complete(context.Background(), 1, 999, d(2026, time.September, 14), true)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

// ---- reorder ----

func TestReorderSplicesIntoGlobalLedger(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 5, AccountID: 1, NextDue: due(d(2026, time.September, 20))},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 7, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(d(2026, time.September, 21))},
		&model.Customer{ID: 9, AccountID: 1, NextDue: due(d(2026, time.September, 22))},
	)
	routes := &fakeRoutes{seq: "5,2,7,1,9"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	// Day sequence is [2,7]; swapping them yields [7,2] spliced at the
	// anchor (index of 2 in the original ledger).
	err := svc.Reorder(context.Background(), 1, day, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "5,7,2,1,9", routes.seq)
}

func TestReorderRejectsBadIndices(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 7, AccountID: 1, NextDue: due(day)},
	)
	routes := &fakeRoutes{seq: "2,7"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	err := svc.Reorder(context.Background(), 1, day, 0, 5)
	assert.ErrorIs(t, err, schedule.ErrBadIndex)
	// Nothing written on a rejected drop.
	assert.Empty(t, routes.writes)
}

func TestReorderSameIndexWritesNothing(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 7, AccountID: 1, NextDue: due(day)},
	)
	routes := &fakeRoutes{seq: "2,7"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	require.NoError(t, svc.Reorder(context.Background(), 1, day, 1, 1))
	assert.Empty(t, routes.writes)
}

func TestReorderNewCustomerRidesAlong(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 7, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 8, AccountID: 1, NextDue: due(day)}, // not in ledger
		&model.Customer{ID: 5, AccountID: 1, NextDue: due(d(2026, time.September, 20))},
	)
	routes := &fakeRoutes{seq: "5,2,7"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	// Day sequence composes to [2,7,8]; move 8 to the front.
	err := svc.Reorder(context.Background(), 1, day, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "5,8,2,7", routes.seq)
}

// ---- day view ----

func TestDayViewOrdersByLedger(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, Price: 1000, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, Price: 2000, NextDue: due(day)},
		&model.Customer{ID: 4, AccountID: 1, Price: 500, NextDue: due(day)},
		&model.Customer{ID: 3, AccountID: 1, Price: 700, NextDue: due(d(2026, time.September, 20))},
	)
	routes := &fakeRoutes{seq: "3,1,2,4"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	view, err := svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)

	got := make([]int64, len(view.Customers))
	for i, c := range view.Customers {
		got[i] = c.ID
	}
	assert.Equal(t, []int64{1, 2, 4}, got)
	assert.Equal(t, int64(3500), view.Income)
}

func TestDayViewAppendsUnlistedDueCustomers(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 4, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 3, AccountID: 1, NextDue: due(d(2026, time.September, 20))},
	)
	// 4 is missing from the ledger; reconcile appends it, compose keeps
	// it after the listed ids.
	routes := &fakeRoutes{seq: "3,1,2"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	view, err := svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)

	got := make([]int64, len(view.Customers))
	for i, c := range view.Customers {
		got[i] = c.ID
	}
	assert.Equal(t, []int64{1, 2, 4}, got)
	assert.Equal(t, "3,1,2,4", routes.seq)
}

func TestDayViewReconcileIsIdempotent(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
	)
	routes := &fakeRoutes{seq: ""}
	svc := newService(testAccount(), custs, routes, nil, nil)

	_, err := svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)
	first := routes.seq
	assert.Equal(t, "1,2", first)

	_, err = svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, first, routes.seq)
	// Write-back happened only once: the second pass found nothing missing.
	assert.Len(t, routes.writes, 1)
}

func TestDayViewKeepsLedgerOrphans(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
	)
	// 99 is a deleted customer; it stays in the ledger and is skipped
	// in the view.
	routes := &fakeRoutes{seq: "99,2"}
	svc := newService(testAccount(), custs, routes, nil, nil)

	view, err := svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)
	require.Len(t, view.Customers, 1)
	assert.Equal(t, int64(2), view.Customers[0].ID)
	assert.Equal(t, "99,2", routes.seq)
}

func TestDayViewSurvivesReconcileWriteFailure(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
	)
	routes := &fakeRoutes{seq: "", writeErr: errors.New("db down")}
	svc := newService(testAccount(), custs, routes, nil, nil)

	view, err := svc.DayView(context.Background(), 1, day)
	require.NoError(t, err)
	require.Len(t, view.Customers, 1)
}

// ---- month view ----

func TestMonthView(t *testing.T) {
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(d(2026, time.September, 3))},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(d(2026, time.September, 3))},
		&model.Customer{ID: 3, AccountID: 1, NextDue: due(d(2026, time.September, 21))},
		&model.Customer{ID: 4, AccountID: 1, NextDue: due(d(2026, time.October, 3))},
		&model.Customer{ID: 5, AccountID: 1}, // never scheduled
	)
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	days, err := svc.MonthView(context.Background(), 1, 2026, time.September)
	require.NoError(t, err)
	assert.Equal(t, []MonthDay{{Day: 3, Jobs: 2}, {Day: 21, Jobs: 1}}, days)
}

// ---- bulk move ----

func TestBulkMoveSkipsCustomersWithoutDueDate(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 3, AccountID: 1}, // no due date
	)
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	target := d(2026, time.September, 16)
	res, err := svc.BulkMove(context.Background(), 1, day, []int64{1, 2, 3}, target)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, res.Moved)
	assert.Equal(t, []int64{3}, res.Skipped)
	assert.True(t, res.OK())

	assert.Equal(t, due(target), custs.items[1].NextDue)
	assert.Equal(t, due(target), custs.items[2].NextDue)
	assert.False(t, custs.items[3].NextDue.Valid)
}

func TestBulkMoveWholeDayWhenNoSelection(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 3, AccountID: 1, NextDue: due(d(2026, time.September, 20))},
	)
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	target := d(2026, time.September, 15)
	res, err := svc.BulkMove(context.Background(), 1, day, nil, target)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, res.Moved)
	// Customer on another day is untouched.
	assert.Equal(t, due(d(2026, time.September, 20)), custs.items[3].NextDue)
}

func TestBulkMoveReportsPerItemFailures(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
		&model.Customer{ID: 2, AccountID: 1, NextDue: due(day)},
	)
	boom := errors.New("write failed")
	custs.failIDs[2] = boom
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	target := d(2026, time.September, 15)
	res, err := svc.BulkMove(context.Background(), 1, day, nil, target)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, res.Moved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(2), res.Failed[0].CustomerID)
	assert.ErrorIs(t, res.Failed[0].Err, boom)
	assert.False(t, res.OK())

	// The successful write is not rolled back.
	assert.Equal(t, due(target), custs.items[1].NextDue)
}

func TestBulkMoveEmptyDateRejectedBeforeAnyWrite(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
	)
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	_, err := svc.BulkMove(context.Background(), 1, day, nil, schedule.Date{})
	assert.ErrorIs(t, err, ErrEmptyDate)
	assert.Equal(t, 0, custs.updates)
}

func TestBulkMoveUnknownSelectionID(t *testing.T) {
	day := d(2026, time.September, 14)
	custs := newFakeCustomers(
		&model.Customer{ID: 1, AccountID: 1, NextDue: due(day)},
	)
	svc := newService(testAccount(), custs, &fakeRoutes{}, nil, nil)

	res, err := svc.BulkMove(context.Background(), 1, day, []int64{1, 42}, d(2026, time.September, 15))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Moved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(42), res.Failed[0].CustomerID)
	assert.ErrorIs(t, res.Failed[0].Err, ErrCustomerNotFound)
}
