/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CF calendar names.
const (
	Standard           = "standard"
	Gregorian          = "gregorian"
	ProlepticGregorian = "proleptic_gregorian"
	Julian             = "julian"
	NoLeap             = "noleap"
	Days365            = "365_day"
	AllLeap            = "all_leap"
	Days366            = "366_day"
	Days360            = "360_day"
)

// DateTime is a calendar-agnostic date and time of day.
type DateTime struct {
	Year, Month, Day int
	Hour, Minute     int
	Second           float64
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%06.3f", d.Year, d.Month, d.Day,
		d.Hour, d.Minute, d.Second)
}

func (d DateTime) secondOfDay() float64 {
	return float64(d.Hour*3600+d.Minute*60) + d.Second
}

// ParseDate parses the reference date of a time unit, e.g.
// "1850-1-1", "1850-01-01 00:00:00.0" or "2000-01-01T12:00:00Z".
func ParseDate(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "T"); i > 0 && i < len(s)-1 && isDigit(s[i-1]) && isDigit(s[i+1]) {
		s = s[:i] + " " + s[i+1:]
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return DateTime{}, fmt.Errorf("units: empty date")
	}
	var d DateTime
	date := strings.Split(fields[0], "-")
	neg := false
	if date[0] == "" && len(date) > 1 { // negative year
		neg = true
		date = date[1:]
	}
	if len(date) != 3 {
		return DateTime{}, fmt.Errorf("units: invalid date '%s'", s)
	}
	var err error
	ymd := make([]int, 3)
	for i, v := range date {
		if ymd[i], err = strconv.Atoi(v); err != nil {
			return DateTime{}, fmt.Errorf("units: invalid date '%s'", s)
		}
	}
	d.Year, d.Month, d.Day = ymd[0], ymd[1], ymd[2]
	if neg {
		d.Year = -d.Year
	}
	if len(fields) > 1 {
		clock := strings.TrimSuffix(fields[1], "Z")
		parts := strings.Split(clock, ":")
		if len(parts) > 3 {
			return DateTime{}, fmt.Errorf("units: invalid time '%s'", fields[1])
		}
		if d.Hour, err = strconv.Atoi(parts[0]); err != nil {
			return DateTime{}, fmt.Errorf("units: invalid time '%s'", fields[1])
		}
		if len(parts) > 1 {
			if d.Minute, err = strconv.Atoi(parts[1]); err != nil {
				return DateTime{}, fmt.Errorf("units: invalid time '%s'", fields[1])
			}
		}
		if len(parts) > 2 {
			if d.Second, err = strconv.ParseFloat(parts[2], 64); err != nil {
				return DateTime{}, fmt.Errorf("units: invalid time '%s'", fields[1])
			}
		}
	}
	for _, tz := range fields[min(len(fields), 2):] {
		switch tz {
		case "Z", "UTC", "GMT", "+00:00", "+0000", "00:00", "0":
		default:
			return DateTime{}, fmt.Errorf("units: unsupported time zone '%s'", tz)
		}
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 || d.Hour > 23 || d.Minute > 59 || d.Second >= 61 {
		return DateTime{}, fmt.Errorf("units: invalid date '%s'", s)
	}
	return d, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func normalizeCalendar(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	switch c {
	case "":
		return Standard, nil
	case Standard, Gregorian, ProlepticGregorian, Julian, NoLeap, Days365,
		AllLeap, Days366, Days360:
		return c, nil
	}
	return "", fmt.Errorf("units: unsupported calendar '%s'", c)
}

// canonicalCalendar maps calendar aliases to a single name.
func canonicalCalendar(c string) string {
	switch c {
	case Gregorian, "":
		return Standard
	case Days365:
		return NoLeap
	case Days366:
		return AllLeap
	}
	return c
}

// SameCalendar reports whether a and b name the same calendar. The
// empty calendar and "gregorian" are both the standard calendar.
func SameCalendar(a, b string) bool {
	return canonicalCalendar(a) == canonicalCalendar(b)
}

var (
	cumDays     = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	cumDaysLeap = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

// gregorianCutover is the Julian day number of 1582-10-15, the first
// day of the Gregorian calendar in the standard calendar.
const gregorianCutover = 2299161

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func jdnGregorian(y, m, d int) int64 {
	a := int64((14 - m) / 12)
	yy := int64(y) + 4800 - a
	mm := int64(m) + 12*a - 3
	return int64(d) + (153*mm+2)/5 + 365*yy + floorDiv(yy, 4) - floorDiv(yy, 100) + floorDiv(yy, 400) - 32045
}

func jdnJulian(y, m, d int) int64 {
	a := int64((14 - m) / 12)
	yy := int64(y) + 4800 - a
	mm := int64(m) + 12*a - 3
	return int64(d) + (153*mm+2)/5 + 365*yy + floorDiv(yy, 4) - 32083
}

func fromJDNGregorian(j int64) (int, int, int) {
	a := j + 32044
	b := floorDiv(4*a+3, 146097)
	c := a - floorDiv(146097*b, 4)
	d := floorDiv(4*c+3, 1461)
	e := c - floorDiv(1461*d, 4)
	m := floorDiv(5*e+2, 153)
	day := e - floorDiv(153*m+2, 5) + 1
	month := m + 3 - 12*floorDiv(m, 10)
	year := 100*b + d - 4800 + floorDiv(m, 10)
	return int(year), int(month), int(day)
}

func fromJDNJulian(j int64) (int, int, int) {
	c := j + 32082
	d := floorDiv(4*c+3, 1461)
	e := c - floorDiv(1461*d, 4)
	m := floorDiv(5*e+2, 153)
	day := e - floorDiv(153*m+2, 5) + 1
	month := m + 3 - 12*floorDiv(m, 10)
	year := d - 4800 + floorDiv(m, 10)
	return int(year), int(month), int(day)
}

func isLeapGregorian(y int) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }

func daysInMonth(calendar string, y, m int) int {
	switch canonicalCalendar(calendar) {
	case Days360:
		return 30
	case NoLeap:
		return cumDays[m] - cumDays[m-1]
	case AllLeap:
		return cumDaysLeap[m] - cumDaysLeap[m-1]
	case Julian:
		if y%4 == 0 {
			return cumDaysLeap[m] - cumDaysLeap[m-1]
		}
	case ProlepticGregorian:
		if isLeapGregorian(y) {
			return cumDaysLeap[m] - cumDaysLeap[m-1]
		}
	default: // standard
		if (y < 1582 && y%4 == 0) || (y >= 1582 && isLeapGregorian(y)) {
			return cumDaysLeap[m] - cumDaysLeap[m-1]
		}
	}
	return cumDays[m] - cumDays[m-1]
}

// dayNumber returns a day count for date d that increases by one
// per day in the given calendar.
func dayNumber(calendar string, d DateTime) (int64, error) {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > daysInMonth(calendar, d.Year, d.Month) {
		return 0, fmt.Errorf("units: invalid date %v in %s calendar", d, calendar)
	}
	y := int64(d.Year)
	switch canonicalCalendar(calendar) {
	case Days360:
		return y*360 + int64(d.Month-1)*30 + int64(d.Day-1), nil
	case NoLeap:
		return y*365 + int64(cumDays[d.Month-1]+d.Day-1), nil
	case AllLeap:
		return y*366 + int64(cumDaysLeap[d.Month-1]+d.Day-1), nil
	case Julian:
		return jdnJulian(d.Year, d.Month, d.Day), nil
	case ProlepticGregorian:
		return jdnGregorian(d.Year, d.Month, d.Day), nil
	default:
		if j := jdnGregorian(d.Year, d.Month, d.Day); j >= gregorianCutover {
			return j, nil
		}
		j := jdnJulian(d.Year, d.Month, d.Day)
		if j >= gregorianCutover {
			return 0, fmt.Errorf("units: date %v does not exist in the standard calendar", d)
		}
		return j, nil
	}
}

func fromDayNumber(calendar string, n int64) (y, m, d int) {
	switch canonicalCalendar(calendar) {
	case Days360:
		y = int(floorDiv(n, 360))
		r := int(n - int64(y)*360)
		return y, r/30 + 1, r%30 + 1
	case NoLeap, AllLeap:
		cum, l := cumDays, int64(365)
		if canonicalCalendar(calendar) == AllLeap {
			cum, l = cumDaysLeap, 366
		}
		y = int(floorDiv(n, l))
		r := int(n - int64(y)*l)
		m = 1
		for r >= cum[m] {
			m++
		}
		return y, m, r - cum[m-1] + 1
	case Julian:
		return fromJDNJulian(n)
	case ProlepticGregorian:
		return fromJDNGregorian(n)
	default:
		if n >= gregorianCutover {
			return fromJDNGregorian(n)
		}
		return fromJDNJulian(n)
	}
}

// secondsBetween returns the number of seconds from b to a.
func secondsBetween(calendar string, a, b DateTime) (float64, error) {
	na, err := dayNumber(calendar, a)
	if err != nil {
		return 0, err
	}
	nb, err := dayNumber(calendar, b)
	if err != nil {
		return 0, err
	}
	return float64(na-nb)*86400 + a.secondOfDay() - b.secondOfDay(), nil
}

// addSeconds returns the date s seconds after d.
func addSeconds(calendar string, d DateTime, s float64) (DateTime, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return DateTime{}, fmt.Errorf("units: invalid time offset %g", s)
	}
	n, err := dayNumber(calendar, d)
	if err != nil {
		return DateTime{}, err
	}
	total := d.secondOfDay() + s
	days := math.Floor(total / 86400)
	rem := math.Round((total-days*86400)*1e6) / 1e6
	if rem >= 86400 {
		days++
		rem -= 86400
	}
	var o DateTime
	o.Year, o.Month, o.Day = fromDayNumber(calendar, n+int64(days))
	o.Hour = int(rem / 3600)
	rem -= float64(o.Hour * 3600)
	o.Minute = int(rem / 60)
	o.Second = math.Round((rem-float64(o.Minute*60))*1e6) / 1e6
	return o, nil
}
