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

package cmorfix

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

func TestAddScalarCoords(t *testing.T) {
	tests := []struct {
		name  string
		add   func(*cube.Cube) error
		query string
		check func(*cube.Coord) bool
	}{
		{
			name:  "depth",
			add:   func(c *cube.Cube) error { return AddScalarDepthCoord(c, 0) },
			query: "depth",
			check: func(co *cube.Coord) bool {
				return co.Points.Elements[0] == 0 && co.Attributes["positive"] == "down" && co.Units.Equal(meter)
			},
		},
		{
			name:  "height",
			add:   func(c *cube.Cube) error { return AddScalarHeightCoord(c, 2) },
			query: "height",
			check: func(co *cube.Coord) bool {
				return co.Points.Elements[0] == 2 && co.Attributes["positive"] == "up"
			},
		},
		{
			name:  "typeland",
			add:   func(c *cube.Cube) error { return AddScalarTypelandCoord(c, "default") },
			query: "area_type",
			check: func(co *cube.Coord) bool {
				return co.VarName == "type" && co.LongName == "Land area type" &&
					reflect.DeepEqual(co.StringPoints, []string{"default"}) && co.Units.IsNoUnit()
			},
		},
		{
			name:  "typesea",
			add:   func(c *cube.Cube) error { return AddScalarTypeseaCoord(c, "sea") },
			query: "area_type",
			check: func(co *cube.Coord) bool {
				return co.LongName == "Ocean area type" && co.StringPoints[0] == "sea"
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := newTestCube("x")
			for i := 0; i < 2; i++ {
				if err := test.add(c); err != nil {
					t.Fatalf("call %d: %v", i, err)
				}
			}
			coords := c.Coords(cube.Name(test.query))
			if len(coords) != 1 {
				t.Fatalf("have %d %s coordinates", len(coords), test.query)
			}
			if !test.check(coords[0]) {
				t.Errorf("wrong coordinate %+v", coords[0])
			}
		})
	}

	// Only one area_type coordinate is added.
	c := newTestCube("x")
	if err := AddScalarTypelandCoord(c, "default"); err != nil {
		t.Fatal(err)
	}
	if err := AddScalarTypeseaCoord(c, "default"); err != nil {
		t.Fatal(err)
	}
	if co, err := c.Coord(cube.Name("area_type")); err != nil || co.LongName != "Land area type" {
		t.Errorf("area_type: %v %v", co, err)
	}
}

func boundsCube(name string, vals ...float64) *cube.Cube {
	d := sparse.ZerosDense(len(vals)/2, 2)
	copy(d.Elements, vals)
	c := cube.New(d)
	c.VarName = name
	return c
}

func TestBoundsCube(t *testing.T) {
	lev := cube.New(sparse.ZerosDense(2))
	lev.VarName = "lev"
	cubes := cube.CubeList{boundsCube("a_bnds", 0, 1, 1, 2), boundsCube("b_bnds", 0, 1, 1, 2), lev}

	_, err := BoundsCube(cubes, "lev")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected a LookupError, got %v", err)
	}
	if le.Name != "lev" || le.N != 0 {
		t.Errorf("%+v", le)
	}

	b, err := BoundsCube(cubes, "a")
	if err != nil {
		t.Fatal(err)
	}
	if b != cubes[0] {
		t.Error("wrong bounds cube")
	}

	cubes = append(cubes, boundsCube("lev_bounds", 0, 1, 1, 2))
	if b, err = BoundsCube(cubes, "lev"); err != nil || b.VarName != "lev_bounds" {
		t.Errorf("lev_bounds: %v", err)
	}

	cubes = append(cubes, boundsCube("b_bnds", 0, 1, 1, 2))
	if _, err := BoundsCube(cubes, "b"); !errors.As(err, &le) || le.N != 2 {
		t.Errorf("expected multiple matches, got %v", err)
	}
}

func TestFixBounds(t *testing.T) {
	c := newTestCube("ta")
	lat, _ := c.Coord(cube.VarName("lat"))
	lon, _ := c.Coord(cube.VarName("lon"))
	if err := lon.GuessBounds(); err != nil {
		t.Fatal(err)
	}
	lonBounds := append([]float64{}, lon.Bounds.Elements...)
	cubes := cube.CubeList{
		c,
		boundsCube("lat_bnds", -20, 0, 0, 20),
		boundsCube("lon_bnds", 1, 2, 3, 4, 5, 6),
	}
	for i := 0; i < 2; i++ {
		if err := FixBounds(c, cubes, "lat", "lon"); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(lat.Bounds.Elements, []float64{-20, 0, 0, 20}) {
		t.Errorf("lat bounds %v", lat.Bounds.Elements)
	}
	if !reflect.DeepEqual(lon.Bounds.Elements, lonBounds) {
		t.Errorf("existing lon bounds changed: %v", lon.Bounds.Elements)
	}
	if err := FixBounds(c, cubes[:1], "nope"); err == nil {
		t.Error("expected an error for a missing coordinate")
	}
}

func TestRoundCoordinates(t *testing.T) {
	c := newTestCube("tas")
	h := cube.NewScalarCoord(2.123456789, meter)
	h.VarName = "height"
	if err := c.AddAuxCoord(h); err != nil {
		t.Fatal(err)
	}
	RoundCoordinates(cube.CubeList{c}, DefaultDecimals)
	lat, _ := c.Coord(cube.VarName("lat"))
	if !reflect.DeepEqual(lat.Points.Elements, []float64{-10.12346, 10.76543}) {
		t.Errorf("lat %v", lat.Points.Elements)
	}
	if h.Points.Elements[0] != 2.123456789 {
		t.Error("auxiliary coordinates should not be rounded")
	}
}

func TestCubeToAuxCoord(t *testing.T) {
	c := newTestCube("ps")
	c.StandardName = "surface_air_pressure"
	c.Units = units.MustParse("Pa")
	co := CubeToAuxCoord(c)
	if co.VarName != "ps" || co.StandardName != "surface_air_pressure" || !co.Units.Equal(c.Units) {
		t.Errorf("names: %+v", co)
	}
	if !reflect.DeepEqual(co.Shape(), []int{2, 3}) || co.Points.Elements[4] != 4 {
		t.Errorf("points %v", co.Points)
	}
	co.Points.Elements[0] = 100
	if c.Data.Elements[0] != 0 {
		t.Error("coordinate should not share data with the cube")
	}
}

func TestAltitudeToPressure(t *testing.T) {
	tests := []struct {
		z, p, tol float64
	}{
		{z: 0, p: 101325, tol: 1e-6},
		{z: 1000, p: 89876, tol: 1e-6},
		{z: 80000, p: 1.052, tol: 1e-6},
		{z: 250, p: 98362, tol: 100},
		{z: 5500, p: 50539, tol: 100},
		{z: -2000, p: 126831, tol: 1e-6},
	}
	for _, test := range tests {
		if p := AltitudeToPressure(test.z); math.Abs(p-test.p) > test.tol {
			t.Errorf("altitude %g: have %g, want %g", test.z, p, test.p)
		}
	}
	for z := 0.0; z < 19000; z += 250 {
		if AltitudeToPressure(z+250) >= AltitudeToPressure(z) {
			t.Errorf("pressure should decrease with altitude at %g m", z)
		}
	}
}
