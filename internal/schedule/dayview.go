package schedule

// ComposeDay projects the account route onto one day's due ids: ids in
// the route come first in route-relative order (route ids not due today
// are skipped), due ids absent from the route are appended in their
// aggregator order. With an empty route the due set passes through
// unchanged; route ordering is a display enhancement, nothing depends
// on it for correctness.
func ComposeDay(due []int64, route Route) Route {
	if len(due) == 0 {
		return nil
	}
	if len(route) == 0 {
		out := make(Route, len(due))
		copy(out, due)
		return out
	}

	dueSet := make(map[int64]struct{}, len(due))
	for _, id := range due {
		dueSet[id] = struct{}{}
	}

	out := make(Route, 0, len(due))
	listed := make(map[int64]struct{}, len(due))
	for _, id := range route {
		if _, ok := dueSet[id]; !ok {
			continue
		}
		out = append(out, id)
		listed[id] = struct{}{}
	}
	for _, id := range due {
		if _, ok := listed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
