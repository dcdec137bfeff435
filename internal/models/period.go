package models

import "time"

// EnrollmentPeriod defines the window during which students may apply for
// projects of a given academic term. Periods for the same (year, semester)
// must not overlap.
type EnrollmentPeriod struct {
	ID        string    `db:"id" json:"id"`
	Year      int       `db:"year" json:"year"`
	Semester  Semester  `db:"semester" json:"semester"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Open reports whether the period window contains the given instant.
func (p EnrollmentPeriod) Open(at time.Time) bool {
	return !at.Before(p.StartsAt) && !at.After(p.EndsAt)
}

// SemesterBounds returns the activity start and end dates of an academic
// term: March 1 to July 30 for the first semester, August 1 to December 30
// for the second.
func SemesterBounds(year int, semester Semester) (time.Time, time.Time) {
	if semester == SemesterFirst {
		return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.July, 30, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, time.August, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 30, 0, 0, 0, 0, time.UTC)
}

// SemesterOrdinal returns 1 or 2 for term-number composition.
func SemesterOrdinal(semester Semester) int {
	if semester == SemesterFirst {
		return 1
	}
	return 2
}

// CreatePeriodRequest is the payload for opening an enrollment period.
type CreatePeriodRequest struct {
	Year     int       `json:"year" validate:"required,min=2000"`
	Semester Semester  `json:"semester" validate:"required,oneof=SEMESTER_1 SEMESTER_2"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// UpdatePeriodRequest adjusts an existing period window.
type UpdatePeriodRequest struct {
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}
