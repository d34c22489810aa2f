package matching_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestScore_DateBreakpoints(t *testing.T) {
	// For equal amounts the score depends only on the day delta, with exact
	// breakpoints the review queue semantics rely on.
	wantByDelta := map[int]int{0: 100, 1: 90, 2: 80, 3: 70, 4: 0, 10: 0}

	for delta, want := range wantByDelta {
		assert.Equal(t, want, matching.Score(5000, day(10), 5000, day(10+delta)), "delta %d", delta)
		assert.Equal(t, want, matching.Score(5000, day(10+delta), 5000, day(10)), "delta -%d", delta)
	}
}

func TestScore_AmountMustMatchExactly(t *testing.T) {
	// No partial credit for amount proximity, regardless of date.
	assert.Equal(t, 0, matching.Score(5000, day(10), 5001, day(10)))
	assert.Equal(t, 0, matching.Score(5000, day(10), 4999, day(10)))
	assert.Equal(t, 0, matching.Score(-100, day(10), 100, day(10)))
}

func TestScore_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 100, matching.Score(5000, morning, 5000, evening))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, matching.DaysBetween(day(10), day(10)))
	assert.Equal(t, 1, matching.DaysBetween(day(10), day(11)))
	assert.Equal(t, 1, matching.DaysBetween(day(11), day(10)))
	assert.Equal(t, 31, matching.DaysBetween(day(1), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}
