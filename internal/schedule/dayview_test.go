package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeDay(t *testing.T) {
	tests := []struct {
		name  string
		due   []int64
		route Route
		want  Route
	}{
		{
			// 4 is due but unlisted; it trails in aggregator order.
			name:  "route order with unlisted appended",
			due:   []int64{1, 2, 4},
			route: Route{3, 1, 2},
			want:  Route{1, 2, 4},
		},
		{
			name:  "route is a superset ordering",
			due:   []int64{7, 5},
			route: Route{5, 2, 7, 1, 9},
			want:  Route{5, 7},
		},
		{
			name:  "empty route passes due set through",
			due:   []int64{9, 3, 6},
			route: nil,
			want:  Route{9, 3, 6},
		},
		{
			name:  "no due customers",
			due:   nil,
			route: Route{1, 2},
			want:  nil,
		},
		{
			name:  "orphans in route are skipped",
			due:   []int64{2},
			route: Route{99, 2},
			want:  Route{2},
		},
		{
			name:  "all unlisted keep aggregator order",
			due:   []int64{6, 4, 5},
			route: Route{1, 2, 3},
			want:  Route{6, 4, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeDay(tt.due, tt.route))
		})
	}
}

func TestComposeDayDoesNotMutateInputs(t *testing.T) {
	due := []int64{1, 2}
	route := Route{2, 1}
	got := ComposeDay(due, route)
	assert.Equal(t, Route{2, 1}, got)
	assert.Equal(t, []int64{1, 2}, due)
	assert.Equal(t, Route{2, 1}, route)
}
