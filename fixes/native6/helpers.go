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

package native6

import (
	"errors"
	"fmt"

	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

// Frequencies returned by Frequency.
const (
	Fixed   = "fx"
	Hourly  = "hourly"
	Monthly = "monthly"
)

const (
	// DefaultDensity is the density of water in kg m-3, used to convert
	// meters of water equivalent to mass per area.
	DefaultDensity = 1000.0

	// StandardGravity in m s-2.
	StandardGravity = 9.80665

	referenceTime = "days since 1850-01-01 00:00:00"
)

var (
	meter      = units.MustParse("m")
	density    = units.MustParse("kg m**-3")
	perDay     = units.MustParse("d-1")
	perHour    = units.MustParse("h-1")
	gravityAcc = units.MustParse("m s-2")
)

// FrequencyError is returned when the time frequency of a cube cannot
// be inferred from its time coordinate.
type FrequencyError struct {
	Cube string
}

func (e *FrequencyError) Error() string {
	return fmt.Sprintf("native6: unable to infer frequency of cube %s with length 1 time dimension", e.Cube)
}

// Frequency returns the time frequency of c: Fixed without a time
// coordinate, Hourly for a time step of one hour and Monthly
// otherwise. Single time points are only allowed for geopotential, which
// is time invariant; other cubes give a *FrequencyError.
func Frequency(c *cube.Cube) (string, error) {
	t, err := c.Coord(cube.Query{Axis: "T"})
	if err != nil {
		var nf *cube.CoordinateNotFoundError
		if errors.As(err, &nf) {
			return Fixed, nil
		}
		return "", fmt.Errorf("native6: %w", err)
	}
	days := t.Copy()
	if err := toReferenceTime(days); err != nil {
		return "", err
	}
	p := days.Points.Elements
	if len(p) == 1 {
		if c.LongName != "Geopotential" {
			return "", &FrequencyError{Cube: c.Name()}
		}
		return Fixed, nil
	}
	if p[1]-p[0]-1.0/24 < 1e-4 {
		return Hourly, nil
	}
	return Monthly, nil
}

// toReferenceTime converts a time coordinate to days since 1850-01-01,
// keeping its calendar.
func toReferenceTime(t *cube.Coord) error {
	u, err := units.ParseCalendar(referenceTime, t.Units.Calendar())
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	if err := t.ConvertUnits(u); err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	return nil
}

// FixInvalidUnits replaces meters of water equivalent by meters.
func FixInvalidUnits(c *cube.Cube) error {
	c.Units = meter
	return nil
}

// FixHourlyTime shifts the time points of hourly accumulations 30
// minutes back, to the middle of the accumulation period, and guesses
// their bounds. Other frequencies are left alone.
func FixHourlyTime(c *cube.Cube) error {
	f, err := Frequency(c)
	if err != nil || f != Hourly {
		return err
	}
	t, err := c.Coord(cube.Query{Axis: "T"})
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	if err := toReferenceTime(t); err != nil {
		return err
	}
	for i := range t.Points.Elements {
		t.Points.Elements[i] -= 1.0 / 48
	}
	if err := t.GuessBounds(); err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	return nil
}

// FixAccumulatedUnits turns accumulations into fluxes by dividing the
// units by the accumulation period: a day for monthly means of daily
// accumulations and an hour for hourly data.
func FixAccumulatedUnits(c *cube.Cube) error {
	f, err := Frequency(c)
	if err != nil {
		return err
	}
	var period units.Unit
	switch f {
	case Monthly:
		period = perDay
	case Hourly:
		period = perHour
	default:
		return nil
	}
	u, err := c.Units.Multiply(period)
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	c.Units = u
	return nil
}

// MultiplyWithDensity converts a depth of water in m to a mass per area
// by multiplying the data by d kg m-3.
func MultiplyWithDensity(c *cube.Cube, d float64) error {
	u, err := c.Units.Multiply(density)
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	for i := range c.Data.Elements {
		c.Data.Elements[i] *= d
	}
	c.Units = u
	return nil
}

// RemoveTime returns the first time slice of c without its time
// coordinate.
func RemoveTime(c *cube.Cube) (*cube.Cube, error) {
	t, err := c.Coord(cube.Name("time"))
	if err != nil {
		return nil, fmt.Errorf("native6: %w", err)
	}
	dims, err := c.CoordDims(t)
	if err != nil {
		return nil, fmt.Errorf("native6: %w", err)
	}
	o := c
	if len(dims) > 0 {
		if o, err = c.Index(dims[0], 0); err != nil {
			return nil, fmt.Errorf("native6: %w", err)
		}
		if t, err = o.Coord(cube.Name("time")); err != nil {
			return nil, fmt.Errorf("native6: %w", err)
		}
	}
	if err := o.RemoveCoord(t); err != nil {
		return nil, fmt.Errorf("native6: %w", err)
	}
	return o, nil
}

// DivideByGravity converts geopotential to geopotential height.
func DivideByGravity(c *cube.Cube) error {
	u, err := c.Units.Divide(gravityAcc)
	if err != nil {
		return fmt.Errorf("native6: %w", err)
	}
	for i := range c.Data.Elements {
		c.Data.Elements[i] /= StandardGravity
	}
	c.Units = u
	return nil
}

func multiplyWithDefaultDensity(c *cube.Cube) error { return MultiplyWithDensity(c, DefaultDensity) }

func positiveDown(c *cube.Cube) error {
	c.Attributes["positive"] = "down"
	return nil
}

// The chains of helpers applied to variables.
var (
	accumulated = []func(*cube.Cube) error{FixHourlyTime, FixAccumulatedUnits, multiplyWithDefaultDensity}
	radiation   = []func(*cube.Cube) error{FixHourlyTime, FixAccumulatedUnits, positiveDown}
)

