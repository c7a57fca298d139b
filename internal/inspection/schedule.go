// Package inspection holds the periodic inspection schedule, the status rules
// derived from it and the odometer estimates shown alongside it.
package inspection

import "time"

// Schedule milestones in whole years after first registration. From
// annualFrom onwards an inspection is due every year.
const (
	firstMilestone  = 4
	secondMilestone = 6
	thirdMilestone  = 8
	annualFrom      = 9

	// ExemptionYears is the age below which a vehicle needs no inspection.
	ExemptionYears = firstMilestone
)

// DateOf returns the calendar date of t as seen in loc, as UTC midnight.
// A nil loc is treated as UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// civil drops the time of day, keeping the date as written in t's own location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddYears adds n years to t. When the day does not exist in the resulting
// month (Feb 29 in a common year) the last day of that month is used.
func AddYears(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	y += n
	if last := daysIn(m, y); d > last {
		d = last
	}
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, t.Nanosecond(), t.Location())
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ExactYearsBetween counts the whole years from start to end. A year is only
// counted once its anniversary has been reached. The result is negative when
// start lies after end.
func ExactYearsBetween(start, end time.Time) int {
	s, e := civil(start), civil(end)
	years := e.Year() - s.Year()
	if AddYears(s, years).After(e) {
		years--
	}
	return years
}

// MilestoneAfter returns the smallest schedule milestone strictly greater
// than age.
func MilestoneAfter(age int) int {
	switch {
	case age < firstMilestone:
		return firstMilestone
	case age < secondMilestone:
		return secondMilestone
	case age < thirdMilestone:
		return thirdMilestone
	default:
		return max(annualFrom, age+1)
	}
}

// NextInspectionDue returns the due date of the next periodic inspection.
//
// The schedule is anchored on the first registration date alone: the due date
// is the first milestone anniversary the vehicle has not yet reached on today.
// lastInspection is accepted so callers can pass the full history, but it never
// moves the schedule.
func NextInspectionDue(firstRegistration time.Time, lastInspection *time.Time, today time.Time) time.Time {
	age := ExactYearsBetween(firstRegistration, today)
	return AddYears(civil(firstRegistration), MilestoneAfter(age))
}

// DaysUntil returns the number of calendar days from today to due. It is
// negative once due has passed.
func DaysUntil(due, today time.Time) int {
	return int(civil(due).Sub(civil(today)).Hours() / 24)
}
