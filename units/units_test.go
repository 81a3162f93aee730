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
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		equal string
	}{
		{in: "kg m-2 s-1", equal: "kg/m2 s-1"},
		{in: "kg m**-3", equal: "kg m^-3"},
		{in: "hPa", equal: "100 Pa"},
		{in: "mm", equal: "0.001 m"},
		{in: "d-1", equal: "s-1 / 86400"},
		{in: "h-1", equal: "s-1 / 3600"},
		{in: "W m-2", equal: "kg s-3"},
		{in: "%", equal: "0.01"},
		{in: "1", equal: "1"},
		{in: "degrees_north", equal: "degree"},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			u, err := Parse(test.in)
			if err != nil {
				t.Fatal(err)
			}
			e, err := Parse(test.equal)
			if err != nil {
				t.Fatal(err)
			}
			if !u.Equal(e) {
				t.Errorf("%s != %s", u, e)
			}
			if u.String() != test.in {
				t.Errorf("string: %s != %s", u.String(), test.in)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "m of water equivalent", "furlongs", "degC m"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("%q: expected an error", s)
		}
	}
}

func TestSpecialUnits(t *testing.T) {
	u, err := Parse("no unit")
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsNoUnit() {
		t.Error("expected no unit")
	}
	if !Unknown("m of water equivalent").IsUnknown() {
		t.Error("expected unknown")
	}
	if Unknown("m of water equivalent").String() != "m of water equivalent" {
		t.Error("unknown units should keep their name")
	}
	var zero Unit
	if !zero.IsUnknown() || zero.String() != "unknown" {
		t.Error("zero value should be unknown")
	}
}

func TestMultiplyDivide(t *testing.T) {
	m := MustParse("m")
	r, err := m.Multiply(MustParse("kg m**-3"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(MustParse("kg m-2")) {
		t.Errorf("have %s, want kg m-2", r)
	}
	if r.String() != "kg m-2" {
		t.Errorf("string: have %s", r)
	}
	r, err = MustParse("m2 s-2").Divide(MustParse("m s-2"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(MustParse("m")) || r.String() != "m" {
		t.Errorf("have %s, want m", r)
	}
	if _, err = MustParse("days since 1850-1-1").Multiply(m); err == nil {
		t.Error("time reference units should not be multiplied")
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		from, to string
		in, out  float64
	}{
		{from: "hPa", to: "Pa", in: 500, out: 50000},
		{from: "degC", to: "K", in: 0, out: 273.15},
		{from: "K", to: "degC", in: 300, out: 26.85},
		{from: "km", to: "m", in: 1.5, out: 1500},
		{from: "kg m-2 s-1", to: "kg m-2 d-1", in: 1, out: 86400},
		{from: "hours since 1850-01-01", to: "days since 1850-1-1 00:00:00.0", in: 36, out: 1.5},
		{from: "days since 1900-01-01", to: "days since 1850-1-1", in: 0, out: 18262},
	}
	for _, test := range tests {
		t.Run(test.from+"->"+test.to, func(t *testing.T) {
			v := []float64{test.in}
			if err := MustParse(test.from).Convert(v, MustParse(test.to)); err != nil {
				t.Fatal(err)
			}
			if math.Abs(v[0]-test.out) > 1e-9 {
				t.Errorf("have %g, want %g", v[0], test.out)
			}
		})
	}
	if _, err := MustParse("m").Converter(MustParse("s")); err == nil {
		t.Error("expected an error for incompatible units")
	}
}

func TestTimeReference(t *testing.T) {
	u, err := ParseCalendar("days since 1850-1-1 00:00:00.0", "gregorian")
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsTimeReference() || u.Calendar() != Gregorian {
		t.Fatalf("bad unit %s %s", u, u.Calendar())
	}
	d, err := u.Num2Date(31.5)
	if err != nil {
		t.Fatal(err)
	}
	if want := (DateTime{Year: 1850, Month: 2, Day: 1, Hour: 12}); d != want {
		t.Errorf("have %v, want %v", d, want)
	}
	v, err := u.Date2Num(DateTime{Year: 1851, Month: 1, Day: 1})
	if err != nil {
		t.Fatal(err)
	}
	if v != 365 {
		t.Errorf("have %g, want 365", v)
	}
	p, err := u.WithCalendar(ProlepticGregorian)
	if err != nil {
		t.Fatal(err)
	}
	if p.Calendar() != ProlepticGregorian || p.String() != u.String() {
		t.Errorf("calendar change altered the unit: %s %s", p, p.Calendar())
	}
}

func TestCalendars(t *testing.T) {
	tests := []struct {
		calendar string
		days     float64 // days from 2000-01-01 to 2001-01-01
	}{
		{calendar: Standard, days: 366},
		{calendar: ProlepticGregorian, days: 366},
		{calendar: Julian, days: 366},
		{calendar: NoLeap, days: 365},
		{calendar: AllLeap, days: 366},
		{calendar: Days360, days: 360},
	}
	for _, test := range tests {
		t.Run(test.calendar, func(t *testing.T) {
			u, err := ParseCalendar("days since 2000-01-01", test.calendar)
			if err != nil {
				t.Fatal(err)
			}
			next := DateTime{Year: 2001, Month: 1, Day: 1}
			v, err := u.Date2Num(next)
			if err != nil {
				t.Fatal(err)
			}
			if v != test.days {
				t.Errorf("have %g, want %g", v, test.days)
			}
			d, err := u.Num2Date(v)
			if err != nil {
				t.Fatal(err)
			}
			if d != next {
				t.Errorf("round trip: have %v, want %v", d, next)
			}
		})
	}
	if _, err := ParseCalendar("days since 2000-01-01", "martian"); err == nil {
		t.Error("expected an error for an unsupported calendar")
	}
	u, _ := ParseCalendar("days since 2000-01-01", Days360)
	if _, err := u.Date2Num(DateTime{Year: 2000, Month: 2, Day: 31}); err == nil {
		t.Error("expected an error for an invalid date")
	}
}

func TestStandardCutover(t *testing.T) {
	u := MustParse("days since 1582-10-04")
	d, err := u.Num2Date(1)
	if err != nil {
		t.Fatal(err)
	}
	if want := (DateTime{Year: 1582, Month: 10, Day: 15}); d != want {
		t.Errorf("have %v, want %v", d, want)
	}
}

func TestParseDate(t *testing.T) {
	tests := map[string]DateTime{
		"1850-1-1":                {Year: 1850, Month: 1, Day: 1},
		"1850-01-01 00:00:00.0":   {Year: 1850, Month: 1, Day: 1},
		"2000-01-01T12:30:00Z":    {Year: 2000, Month: 1, Day: 1, Hour: 12, Minute: 30},
		"1979-06-15 06:00:00 UTC": {Year: 1979, Month: 6, Day: 15, Hour: 6},
	}
	for in, want := range tests {
		d, err := ParseDate(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if d != want {
			t.Errorf("%s: have %v, want %v", in, d, want)
		}
	}
	if _, err := ParseDate("1850-13-01"); err == nil {
		t.Error("expected an error for month 13")
	}
}
