package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Day count conventions.
const (
	DayCountAct360  = "ACT/360"
	DayCountAct365F = "ACT/365F"
	DayCount30E360  = "30E/360"
	DayCount30360   = "30/360"
)

// YearFraction computes the year fraction between two dates.
func YearFraction(start, end time.Time, convention string) (float64, error) {
	switch strings.ToUpper(convention) {
	case DayCountAct360:
		return days(start, end) / 360.0, nil
	case DayCountAct365F, "":
		return days(start, end) / 365.0, nil
	case DayCount30E360, DayCount30360:
		// 30E/360: day-of-month capped at 30 on both ends.
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0, nil
	default:
		return 0, fmt.Errorf("YearFraction: %w: day count %q", ErrInvalidCurve, convention)
	}
}

func days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE: month-end dates stay inside the
// target month instead of spilling into the next one.
func AddMonth(t time.Time, months int) time.Time {
	d := t.AddDate(0, months, 0)
	want := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0).Month()
	for d.Month() != want {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// tenorMonths reports the month count of an "nM" or "nY" tenor.
func tenorMonths(tenor string) (int, bool) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	for suffix, scale := range map[string]int{"M": 1, "Y": 12} {
		if strings.HasSuffix(t, suffix) {
			v, err := strconv.Atoi(strings.TrimSuffix(t, suffix))
			if err != nil || v < 0 {
				return 0, false
			}
			return v * scale, true
		}
	}
	return 0, false
}

// Business-day conventions for rolled dates.
const (
	RollNone              = "none"
	RollFollowing         = "following"
	RollModifiedFollowing = "modified-following"
)

// dated is the date arithmetic of a curve that carries a settlement date.
type dated struct {
	settlement time.Time
	dayCount   string
	roll       string
	holidays   map[string]struct{}
}

func (d *dated) businessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := d.holidays[t.Format(dateLayout)]
	return !holiday
}

// adjust moves a rolled date onto a business day.
func (d *dated) adjust(t time.Time) time.Time {
	if d.roll == RollNone {
		return t
	}
	month := t.Month()
	for !d.businessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	if d.roll == RollModifiedFollowing && t.Month() != month {
		t = t.AddDate(0, 0, -1)
		for !d.businessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// rolled is settlement plus months, business-day adjusted.
func (d *dated) rolled(months int) (float64, error) {
	return YearFraction(d.settlement, d.adjust(AddMonth(d.settlement, months)), d.dayCount)
}

func (c *Curve) dates() (*dated, error) {
	if strings.TrimSpace(c.Settlement) == "" {
		return nil, nil
	}
	s, err := time.Parse(dateLayout, strings.TrimSpace(c.Settlement))
	if err != nil {
		return nil, fmt.Errorf("%w: settlement %q: %v", ErrInvalidCurve, c.Settlement, err)
	}
	if _, err := YearFraction(s, s, c.DayCount); err != nil {
		return nil, err
	}
	d := &dated{settlement: s, dayCount: c.DayCount, roll: strings.ToLower(c.Roll), holidays: map[string]struct{}{}}
	switch d.roll {
	case "":
		d.roll = RollNone
	case RollNone, RollFollowing, RollModifiedFollowing:
	default:
		return nil, fmt.Errorf("%w: roll %q", ErrInvalidCurve, c.Roll)
	}
	for _, h := range c.Holidays {
		t, err := time.Parse(dateLayout, strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("%w: holiday %q: %v", ErrInvalidCurve, h, err)
		}
		d.holidays[t.Format(dateLayout)] = struct{}{}
	}
	return d, nil
}

// offset turns a tenor from settlement into a year fraction, rolling month
// and year tenors on the calendar.
func (d *dated) offset(tenor string) (float64, error) {
	if m, ok := tenorMonths(tenor); ok {
		return d.rolled(m)
	}
	return Tenor(tenor)
}

// end is the year fraction from settlement to start+tenor. Month tenors are
// summed before rolling so that a 3Mx6M FRA ends on the 9M date.
func (d *dated) end(start, tenor string) (float64, error) {
	ms, okStart := tenorMonths(start)
	if strings.TrimSpace(start) == "" {
		ms, okStart = 0, true
	}
	if ml, ok := tenorMonths(tenor); ok && okStart {
		return d.rolled(ms + ml)
	}
	s, err := d.offset(start)
	if err != nil {
		return 0, err
	}
	l, err := Tenor(tenor)
	if err != nil {
		return 0, err
	}
	return s + l, nil
}

// span returns the instrument's [start, end] on the curve's ordinate axis.
func (c *Curve) span(q Quote) (float64, float64, error) {
	d, err := c.dates()
	if err != nil {
		return 0, 0, err
	}
	if d == nil {
		if strings.TrimSpace(q.Maturity) != "" {
			return 0, 0, fmt.Errorf("%w: maturity date without a settlement date", ErrInvalidCurve)
		}
		s, err := Tenor(q.Start)
		if err != nil {
			return 0, 0, err
		}
		l, err := Tenor(q.Tenor)
		if err != nil {
			return 0, 0, err
		}
		return c.Anchor + s, c.Anchor + s + l, nil
	}

	s, err := d.offset(q.Start)
	if err != nil {
		return 0, 0, err
	}
	var e float64
	if strings.TrimSpace(q.Maturity) != "" {
		e, err = d.at(q.Maturity)
	} else {
		e, err = d.end(q.Start, q.Tenor)
	}
	if err != nil {
		return 0, 0, err
	}
	return c.Anchor + s, c.Anchor + e, nil
}

// at is the year fraction from settlement to an explicit date.
func (d *dated) at(date string) (float64, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return 0, fmt.Errorf("%w: date %q: %v", ErrInvalidCurve, date, err)
	}
	if t.Before(d.settlement) {
		return 0, fmt.Errorf("%w: date %s before settlement", ErrInvalidCurve, date)
	}
	return YearFraction(d.settlement, t, d.dayCount)
}
