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

package cube

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/units"
)

// Coord is a coordinate: a set of points, and optionally cell bounds,
// describing positions along one or more cube dimensions.
type Coord struct {
	StandardName string
	LongName     string
	VarName      string
	Units        units.Unit
	Attributes   map[string]interface{}

	// Points holds the coordinate values.
	Points *sparse.DenseArray

	// Bounds, if not nil, holds the cell boundaries. Its shape is the
	// shape of Points with an additional trailing vertex dimension.
	Bounds *sparse.DenseArray

	// StringPoints holds the values of string-valued coordinates,
	// in which case Points is nil.
	StringPoints []string
}

// NewCoord returns a one-dimensional coordinate with the given points.
func NewCoord(points []float64, u units.Unit) *Coord {
	p := sparse.ZerosDense(len(points))
	copy(p.Elements, points)
	return &Coord{Points: p, Units: u, Attributes: make(map[string]interface{})}
}

// NewScalarCoord returns a coordinate with a single point.
func NewScalarCoord(point float64, u units.Unit) *Coord {
	return NewCoord([]float64{point}, u)
}

// NewStringCoord returns a string-valued coordinate.
func NewStringCoord(values ...string) *Coord {
	return &Coord{
		StringPoints: append([]string{}, values...),
		Units:        units.NoUnit(),
		Attributes:   make(map[string]interface{}),
	}
}

// Name returns the standard name, long name or variable name of
// the coordinate, whichever is set first, or "unknown".
func (c *Coord) Name() string {
	switch {
	case c.StandardName != "":
		return c.StandardName
	case c.LongName != "":
		return c.LongName
	case c.VarName != "":
		return c.VarName
	}
	return "unknown"
}

// IsString returns whether c is string-valued.
func (c *Coord) IsString() bool { return c.Points == nil }

// Shape returns the shape of the coordinate points.
func (c *Coord) Shape() []int {
	if c.IsString() {
		return []int{len(c.StringPoints)}
	}
	return append([]int{}, c.Points.Shape...)
}

// Len returns the total number of points.
func (c *Coord) Len() int {
	if c.IsString() {
		return len(c.StringPoints)
	}
	return len(c.Points.Elements)
}

// HasBounds returns whether bounds are set.
func (c *Coord) HasBounds() bool { return c.Bounds != nil }

// NBounds returns the number of vertices per cell, or zero
// without bounds.
func (c *Coord) NBounds() int {
	if c.Bounds == nil {
		return 0
	}
	return c.Bounds.Shape[len(c.Bounds.Shape)-1]
}

// SetPoints replaces the point values, keeping the shape.
func (c *Coord) SetPoints(points []float64) error {
	if c.IsString() || len(points) != len(c.Points.Elements) {
		return fmt.Errorf("cube: coordinate %s: setting %d points on a coordinate with %d",
			c.Name(), len(points), c.Len())
	}
	copy(c.Points.Elements, points)
	return nil
}

// SetBounds sets the cell bounds from flattened values with nb
// vertices per point. A nil b removes the bounds.
func (c *Coord) SetBounds(b []float64, nb int) error {
	if b == nil {
		c.Bounds = nil
		return nil
	}
	if c.IsString() {
		return fmt.Errorf("cube: string coordinate %s cannot have bounds", c.Name())
	}
	if nb < 1 || len(b) != nb*c.Len() {
		return fmt.Errorf("cube: coordinate %s: %d bound values for %d points with %d vertices",
			c.Name(), len(b), c.Len(), nb)
	}
	c.Bounds = sparse.ZerosDense(append(c.Shape(), nb)...)
	copy(c.Bounds.Elements, b)
	return nil
}

// BoundsAt returns the bounds of point i of a flattened coordinate.
func (c *Coord) BoundsAt(i int) []float64 {
	nb := c.NBounds()
	return c.Bounds.Elements[i*nb : (i+1)*nb]
}

// GuessBounds sets contiguous bounds halfway between the points of
// a one-dimensional coordinate, extrapolating at the ends. It returns
// an error for coordinates with fewer than two points.
func (c *Coord) GuessBounds() error {
	if c.IsString() || len(c.Points.Shape) != 1 {
		return fmt.Errorf("cube: can only guess bounds of one-dimensional numeric coordinates, not %s", c.Name())
	}
	p := c.Points.Elements
	n := len(p)
	if n < 2 {
		return fmt.Errorf("cube: cannot guess bounds for coordinate %s with %d point(s)", c.Name(), n)
	}
	b := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		var lo, hi float64
		if i == 0 {
			lo = p[0] - (p[1]-p[0])/2
		} else {
			lo = (p[i-1] + p[i]) / 2
		}
		if i == n-1 {
			hi = p[n-1] + (p[n-1]-p[n-2])/2
		} else {
			hi = (p[i] + p[i+1]) / 2
		}
		b[2*i], b[2*i+1] = lo, hi
	}
	return c.SetBounds(b, 2)
}

// ConvertUnits converts the points and bounds of c to u.
func (c *Coord) ConvertUnits(u units.Unit) error {
	if c.IsString() {
		return fmt.Errorf("cube: cannot convert units of string coordinate %s", c.Name())
	}
	f, err := c.Units.Converter(u)
	if err != nil {
		return fmt.Errorf("cube: coordinate %s: %w", c.Name(), err)
	}
	for i, v := range c.Points.Elements {
		c.Points.Elements[i] = f(v)
	}
	if c.Bounds != nil {
		for i, v := range c.Bounds.Elements {
			c.Bounds.Elements[i] = f(v)
		}
	}
	c.Units = u
	return nil
}

// Monotonic returns whether the points of a one-dimensional coordinate
// are strictly increasing or strictly decreasing. Single points count
// as both.
func (c *Coord) Monotonic() (increasing, decreasing bool) {
	if c.IsString() || len(c.Points.Shape) != 1 {
		return false, false
	}
	increasing, decreasing = true, true
	p := c.Points.Elements
	for i := 1; i < len(p); i++ {
		if !(p[i] > p[i-1]) {
			increasing = false
		}
		if !(p[i] < p[i-1]) {
			decreasing = false
		}
	}
	return
}

// Dates converts the points of a time coordinate to dates.
func (c *Coord) Dates() ([]units.DateTime, error) {
	if c.IsString() || !c.Units.IsTimeReference() {
		return nil, fmt.Errorf("cube: coordinate %s does not have time reference units", c.Name())
	}
	o := make([]units.DateTime, c.Len())
	for i, v := range c.Points.Elements {
		d, err := c.Units.Num2Date(v)
		if err != nil {
			return nil, err
		}
		o[i] = d
	}
	return o, nil
}

// Copy returns a deep copy of c.
func (c *Coord) Copy() *Coord {
	o := *c
	if c.Points != nil {
		o.Points = c.Points.Copy()
	}
	if c.Bounds != nil {
		o.Bounds = c.Bounds.Copy()
	}
	if c.StringPoints != nil {
		o.StringPoints = append([]string{}, c.StringPoints...)
	}
	o.Attributes = copyAttributes(c.Attributes)
	return &o
}

func copyAttributes(a map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{}, len(a))
	for k, v := range a {
		o[k] = v
	}
	return o
}

// String attribute helper: returns the attribute value if it is a string.
func stringAttribute(a map[string]interface{}, name string) string {
	if s, ok := a[name].(string); ok {
		return s
	}
	return ""
}

var (
	xNames = map[string]bool{"longitude": true, "grid_longitude": true, "projection_x_coordinate": true}
	yNames = map[string]bool{"latitude": true, "grid_latitude": true, "projection_y_coordinate": true}
	zNames = map[string]bool{
		"air_pressure": true, "altitude": true, "height": true, "depth": true,
		"model_level_number": true, "atmosphere_hybrid_sigma_pressure_coordinate": true,
		"atmosphere_hybrid_height_coordinate": true, "atmosphere_sigma_coordinate": true,
		"geopotential_height": true,
	}
	pascal = units.MustParse("Pa")
)

// Axis guesses the CF axis (X, Y, Z or T) of the coordinate, returning
// "" when it cannot be determined.
func (c *Coord) Axis() string {
	if a := stringAttribute(c.Attributes, "axis"); a != "" {
		switch a {
		case "X", "Y", "Z", "T", "x", "y", "z", "t":
			return string(a[0] &^ 0x20)
		}
	}
	switch {
	case xNames[c.StandardName]:
		return "X"
	case yNames[c.StandardName]:
		return "Y"
	case c.Units.IsTimeReference():
		return "T"
	case c.Units.IsConvertible(pascal) || zNames[c.StandardName]:
		return "Z"
	}
	switch stringAttribute(c.Attributes, "positive") {
	case "up", "down":
		return "Z"
	}
	return ""
}
