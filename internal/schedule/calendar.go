package schedule

import (
	"sort"
	"time"
)

// DueEntry pairs a customer id with its next due date. The engine works
// on ids only; callers map ids back to full records.
type DueEntry struct {
	ID  int64
	Due Date
}

// MonthIndex groups a customer set by due day within one month, built in
// a single pass. It answers "what is due on day D" and "which days have
// work" without re-filtering.
type MonthIndex struct {
	year  int
	month time.Month
	byDay map[int][]int64
}

// NewMonthIndex indexes the entries whose due date falls inside the
// given month. Entries keep their input order within a day.
func NewMonthIndex(year int, month time.Month, entries []DueEntry) *MonthIndex {
	idx := &MonthIndex{year: year, month: month, byDay: make(map[int][]int64)}
	for _, e := range entries {
		if !e.Due.In(year, month) {
			continue
		}
		idx.byDay[e.Due.Day] = append(idx.byDay[e.Due.Day], e.ID)
	}
	return idx
}

// DueOn returns the ids due on the given day of the month.
func (m *MonthIndex) DueOn(day int) []int64 {
	return m.byDay[day]
}

// HasWork reports whether any job is due on the given day.
func (m *MonthIndex) HasWork(day int) bool {
	return len(m.byDay[day]) > 0
}

// WorkDays returns the days of the month with at least one due job,
// ascending.
func (m *MonthIndex) WorkDays() []int {
	days := make([]int, 0, len(m.byDay))
	for d := range m.byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// JobCount returns the number of jobs due on the given day.
func (m *MonthIndex) JobCount(day int) int {
	return len(m.byDay[day])
}
