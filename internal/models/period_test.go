package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentPeriodOpen(t *testing.T) {
	period := EnrollmentPeriod{
		StartsAt: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.February, 15, 23, 59, 59, 0, time.UTC),
	}

	assert.True(t, period.Open(time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)))
	assert.True(t, period.Open(period.StartsAt))
	assert.True(t, period.Open(period.EndsAt))
	assert.False(t, period.Open(period.StartsAt.Add(-time.Second)))
	assert.False(t, period.Open(period.EndsAt.Add(time.Second)))
}

func TestSemesterBounds(t *testing.T) {
	start, end := SemesterBounds(2025, SemesterFirst)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.July, 30, 0, 0, 0, 0, time.UTC), end)

	start, end = SemesterBounds(2025, SemesterSecond)
	assert.Equal(t, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC), end)
}

func TestSemesterOrdinal(t *testing.T) {
	assert.Equal(t, 1, SemesterOrdinal(SemesterFirst))
	assert.Equal(t, 2, SemesterOrdinal(SemesterSecond))
}
