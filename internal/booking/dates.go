package booking

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date, expressed as UTC midnight.  All
// ledger keys use this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}

// nightsOf lists every night in [checkIn, checkOut).
func nightsOf(checkIn, checkOut time.Time) []time.Time {
	var out []time.Time
	for d := DateOf(checkIn); d.Before(DateOf(checkOut)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// datesInclusive lists every date in [from, to].
func datesInclusive(from, to time.Time) []time.Time {
	return nightsOf(from, DateOf(to).AddDate(0, 0, 1))
}
