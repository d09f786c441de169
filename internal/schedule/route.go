package schedule

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrBadIndex rejects a reorder whose indices do not address the day
// sequence. The drop is ignored; nothing is written.
var ErrBadIndex = errors.New("reorder index out of range")

// Route is the account-wide manual visit order: customer ids, no
// duplicates. It is a superset ordering over all days; a single day's
// view is a filter over it, never an independent order. Ids of deleted
// customers may linger as orphans and are tolerated everywhere.
type Route []int64

// ParseRoute decodes the persisted comma-joined id list. Entries are
// trimmed of surrounding whitespace; non-numeric entries and duplicates
// are dropped. An empty string is an empty route.
func ParseRoute(s string) Route {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	route := make(Route, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		route = append(route, id)
	}
	return route
}

// Encode serializes the route as comma-joined decimal ids, the only
// persisted form.
func (r Route) Encode() string {
	if len(r) == 0 {
		return ""
	}
	parts := make([]string, len(r))
	for i, id := range r {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (r Route) index() map[int64]int {
	idx := make(map[int64]int, len(r))
	for i, id := range r {
		idx[id] = i
	}
	return idx
}

// Reconcile aligns the route with the live customer id set: live ids
// missing from the route are appended at the tail in ascending id order,
// ids already present are left untouched, orphans are never pruned.
// The appended bool reports whether anything changed; reconciling an
// already-consistent route returns it unchanged, so the pass is
// idempotent.
func Reconcile(r Route, live []int64) (Route, bool) {
	present := make(map[int64]struct{}, len(r))
	for _, id := range r {
		present[id] = struct{}{}
	}
	var missing []int64
	for _, id := range live {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
			present[id] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return r, false
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	out := make(Route, 0, len(r)+len(missing))
	out = append(out, r...)
	out = append(out, missing...)
	return out, true
}

// Move returns a copy of r with the item at from relocated to to.
// from == to is a no-op; out-of-range indices return ErrBadIndex.
func (r Route) Move(from, to int) (Route, error) {
	if from < 0 || from >= len(r) || to < 0 || to >= len(r) {
		return nil, ErrBadIndex
	}
	out := make(Route, 0, len(r))
	out = append(out, r...)
	if from == to {
		return out, nil
	}
	id := out[from]
	out = append(out[:from], out[from+1:]...)
	rest := append(Route{id}, out[to:]...)
	out = append(out[:to], rest...)
	return out, nil
}

// Splice writes one day's reordered sequence back into the global route.
// day is the day's id sequence before reordering, reordered the sequence
// after. All day ids are lifted out of the route (a no-op for ids not
// yet present) and the reordered block is reinserted at the position of
// the first day id found in the original route, so the day keeps its
// place in the cross-day ordering. With no anchor the block goes to the
// tail.
func Splice(r Route, day, reordered Route) Route {
	dayset := make(map[int64]struct{}, len(day))
	for _, id := range day {
		dayset[id] = struct{}{}
	}

	anchor := -1
	others := make(Route, 0, len(r))
	for i, id := range r {
		if _, ok := dayset[id]; ok {
			if anchor == -1 {
				anchor = i
			}
			continue
		}
		others = append(others, id)
	}
	if anchor == -1 {
		anchor = len(others)
	}

	// Every removed id sat at or after the anchor, so the anchor index
	// is valid in others and everything before it is unchanged.
	out := make(Route, 0, len(others)+len(reordered))
	out = append(out, others[:anchor]...)
	out = append(out, reordered...)
	out = append(out, others[anchor:]...)
	return out
}
