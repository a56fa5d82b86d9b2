package capacity

import "time"

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths moves t by a number of calendar months, clamping the day to the
// end of the target month (Jan 31 + 1 month is Feb 28).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := y*12 + int(m) - 1 + months
	year, month := total/12, time.Month(total%12+1)
	if last := daysIn(month, year); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// monthsBetween returns the whole calendar months from `from` to `to` and the
// days left over. `to` must not be before `from`.
func monthsBetween(from, to time.Time) (int, int) {
	from, to = dateOf(from), dateOf(to)
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	anchor := addMonths(from, months)
	for months > 0 && anchor.After(to) {
		months--
		anchor = addMonths(from, months)
	}
	days := int(to.Sub(anchor).Hours() / 24)
	return months, days
}

func startOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func endOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
