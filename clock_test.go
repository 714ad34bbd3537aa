package recordops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{
			name:   "plain addition",
			start:  date(2024, time.March, 15),
			months: 3,
			want:   date(2024, time.June, 15),
		},
		{
			name:   "across year boundary",
			start:  date(2024, time.November, 10),
			months: 3,
			want:   date(2025, time.February, 10),
		},
		{
			name:   "clamps to shorter month",
			start:  date(2024, time.January, 31),
			months: 1,
			want:   date(2024, time.February, 29),
		},
		{
			name:   "clamps to february in non-leap year",
			start:  date(2023, time.November, 30),
			months: 3,
			want:   date(2024, time.February, 29),
		},
		{
			name:   "may 31 plus one month clamps to june 30",
			start:  date(2024, time.May, 31),
			months: 1,
			want:   date(2024, time.June, 30),
		},
		{
			name:   "zero months",
			start:  date(2024, time.July, 4),
			months: 0,
			want:   date(2024, time.July, 4),
		},
		{
			name:   "negative months",
			start:  date(2024, time.March, 31),
			months: -1,
			want:   date(2024, time.February, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.start, tt.months))
		})
	}
}

func TestAddMonthsPreservesTimeOfDay(t *testing.T) {
	start := time.Date(2024, time.January, 15, 13, 45, 30, 0, time.UTC)
	got := AddMonths(start, 2)
	assert.Equal(t, time.Date(2024, time.March, 15, 13, 45, 30, 0, time.UTC), got)
}

func TestToday(t *testing.T) {
	clock := ClockFunc(func() time.Time {
		return time.Date(2024, time.June, 5, 18, 22, 7, 123, time.UTC)
	})
	assert.Equal(t, date(2024, time.June, 5), Today(clock))
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock().Now()
	after := time.Now()
	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}
