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

package cmip6

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/ncio"
	"github.com/spatialmodel/cmorfix/units"
	"gonum.org/v1/gonum/floats"
)

func newRegistry(t *testing.T) *cmorfix.Registry {
	r := cmorfix.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	return r
}

func resolve(t *testing.T, dataset, shortName string) *cmorfix.Chain {
	return newRegistry(t).Resolve(cmorfix.Key{Project: Project, Dataset: dataset, MIP: "Amon", ShortName: shortName},
		&cmor.VariableInfo{Table: "Amon", ShortName: shortName})
}

// latLonCube returns a 2x2 cube named name on a latitude-longitude grid.
func latLonCube(name string) *cube.Cube {
	c := cube.New(sparse.ZerosDense(2, 2))
	c.VarName = name
	lat := cube.NewCoord([]float64{-45, 45}, units.MustParse("degrees_north"))
	lat.StandardName, lat.VarName = "latitude", "lat"
	lon := cube.NewCoord([]float64{90, 270}, units.MustParse("degrees_east"))
	lon.StandardName, lon.VarName = "longitude", "lon"
	if err := c.AddDimCoord(lat, 0); err != nil {
		panic(err)
	}
	if err := c.AddDimCoord(lon, 1); err != nil {
		panic(err)
	}
	return c
}

func TestScalarFixes(t *testing.T) {
	tests := []struct {
		dataset, shortName, coord string
		value                     float64
		label                     string
	}{
		{dataset: "CESM2", shortName: "tas", coord: "height", value: 2},
		{dataset: "CESM2-WACCM", shortName: "tas", coord: "height", value: 2},
		{dataset: "CESM2", shortName: "fgco2", coord: "depth", value: 0},
		{dataset: "CESM2", shortName: "sftlf", coord: "area_type", label: "default"},
		{dataset: "CESM2", shortName: "sftof", coord: "area_type", label: "default"},
	}
	for _, test := range tests {
		t.Run(test.dataset+"_"+test.shortName, func(t *testing.T) {
			chain := resolve(t, test.dataset, test.shortName)
			cubes := cube.CubeList{latLonCube(test.shortName)}
			var err error
			for i := 0; i < 2; i++ {
				if cubes, err = chain.FixMetadata(cubes); err != nil {
					t.Fatal(err)
				}
			}
			coords := cubes[0].Coords(cube.Name(test.coord))
			if len(coords) != 1 {
				t.Fatalf("have %d %s coordinates, want 1", len(coords), test.coord)
			}
			co := coords[0]
			if test.label != "" {
				if !co.IsString() || co.StringPoints[0] != test.label {
					t.Errorf("have %v, want %s", co.StringPoints, test.label)
				}
				return
			}
			if co.Points.Elements[0] != test.value || !co.Units.Equal(units.MustParse("m")) {
				t.Errorf("have %g %s, want %g m", co.Points.Elements[0], co.Units, test.value)
			}
		})
	}
}

func TestCESM2Cl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cl.nc")
	ds := &ncio.Dataset{Dims: []ncio.Dim{{Name: "lev", Len: 2}}}
	ds.Vars = []*ncio.Var{
		{Name: "lev", Dims: []string{"lev"}},
		{Name: "cl", Dims: []string{"lev"}},
	}
	if err := ncio.Create(path, ds, map[string]interface{}{
		"lev": []float64{0.9, 0.5},
		"cl":  []float32{10, 20},
	}); err != nil {
		t.Fatal(err)
	}
	out, err := resolve(t, "CESM2", "cl").FixFile(path, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fixed, err := ncio.ReadHeader(out)
	if err != nil {
		t.Fatal(err)
	}
	lev := fixed.Var("lev")
	if s := lev.Attributes.GetString("standard_name"); s != "atmosphere_hybrid_sigma_pressure_coordinate" {
		t.Errorf("standard_name %q", s)
	}
	if s := lev.Attributes.GetString("formula_terms"); s != "p0: p0 a: a b: b ps: ps" {
		t.Errorf("formula_terms %q", s)
	}

	if _, err := resolve(t, "CESM2", "cl").FixFile(out, t.TempDir()); err != nil {
		t.Errorf("fixing a fixed file: %v", err)
	}
}

func TestAlternatives(t *testing.T) {
	r := newRegistry(t)
	k := cmorfix.Key{Project: Project, Dataset: "CESM2-WACCM", MIP: "Amon", ShortName: "cl"}
	names := func() []string {
		var o []string
		for _, e := range r.Entries(k) {
			o = append(o, e.Name)
		}
		return o
	}
	if n := names(); !reflect.DeepEqual(n, []string{"cmip5.BccCl"}) {
		t.Errorf("registered: %v", n)
	}
	for _, e := range Alternatives() {
		r.Override(e.Key, e.Name, e.Factory)
	}
	if n := names(); !reflect.DeepEqual(n, []string{"cmip6.CESM2Cl"}) {
		t.Errorf("overridden: %v", n)
	}
	if err := Register(r); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestCNRMCM61Bounds(t *testing.T) {
	c := latLonCube("cl")
	lon, _ := c.Coord(cube.Name("longitude"))
	if err := lon.SetBounds([]float64{0, 180, 180, 360}, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := resolve(t, "CNRM-CM6-1", "cl").FixMetadata(cube.CubeList{c}); err != nil {
		t.Fatal(err)
	}
	lat, _ := c.Coord(cube.Name("latitude"))
	if want := []float64{-90, 0, 0, 90}; !reflect.DeepEqual(lat.Bounds.Elements, want) {
		t.Errorf("latitude bounds %v, want %v", lat.Bounds.Elements, want)
	}
	if want := []float64{0, 180, 180, 360}; !reflect.DeepEqual(lon.Bounds.Elements, want) {
		t.Errorf("longitude bounds changed to %v", lon.Bounds.Elements)
	}
}

func TestMIROC6Cl(t *testing.T) {
	c := latLonCube("cl")
	ps := cube.NewCoord([]float64{1e5, 1e5, 1e5, 1e5}, units.MustParse("Pa"))
	ps.Points.Shape = []int{2, 2}
	ps.VarName, ps.LongName = "ps", "Surface Air Pressure"
	ps.Attributes["comment"] = "not CF"
	if err := c.AddAuxCoord(ps, 0, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := resolve(t, "MIROC6", "cl").FixMetadata(cube.CubeList{c}); err != nil {
		t.Fatal(err)
	}
	if len(ps.Attributes) != 0 {
		t.Errorf("attributes: %v", ps.Attributes)
	}

	if _, err := resolve(t, "MIROC6", "cl").FixMetadata(cube.CubeList{latLonCube("cl")}); err == nil {
		t.Error("expected an error without a surface air pressure coordinate")
	}
}

func TestHadGEM3AllVars(t *testing.T) {
	for _, dataset := range []string{"HadGEM3-GC31-LL", "UKESM1-0-LL"} {
		t.Run(dataset, func(t *testing.T) {
			a, b := latLonCube("tas"), latLonCube("pr")
			a.Attributes["parent_time_units"] = "days since 1850-01-01-00-00-00"
			b.Attributes["parent_time_units"] = "days since 1900-01-01"
			if _, err := resolve(t, dataset, "tas").FixMetadata(cube.CubeList{a, b}); err != nil {
				t.Fatal(err)
			}
			if s := a.Attributes["parent_time_units"]; s != "days since 1850-01-01" {
				t.Errorf("fixed: %v", s)
			}
			if s := b.Attributes["parent_time_units"]; s != "days since 1900-01-01" {
				t.Errorf("unrelated value changed: %v", s)
			}
		})
	}
}

// hybridHeightCubes returns a cl cube on two hybrid height levels over
// a single column, along with the bounds cubes of lev and b.
func hybridHeightCubes() cube.CubeList {
	c := cube.New(sparse.ZerosDense(2, 1))
	c.VarName = "cl"
	m := units.MustParse("m")
	lev := cube.NewCoord([]float64{20, 100}, m)
	lev.VarName, lev.LongName = "lev", "vertical coordinate formula term: a(k)"
	b := cube.NewCoord([]float64{0.9, 0.5}, units.Dimensionless())
	b.VarName = "b"
	orog := cube.NewCoord([]float64{100}, m)
	orog.VarName, orog.StandardName = "orog", "surface_altitude"
	if err := c.AddDimCoord(lev, 0); err != nil {
		panic(err)
	}
	if err := c.AddAuxCoord(b, 0); err != nil {
		panic(err)
	}
	if err := c.AddAuxCoord(orog, 1); err != nil {
		panic(err)
	}
	bounds := func(name string, v ...float64) *cube.Cube {
		bc := cube.New(sparse.ZerosDense(2, 2))
		copy(bc.Data.Elements, v)
		bc.VarName = name
		return bc
	}
	return cube.CubeList{c, bounds("lev_bnds", 0, 40, 40, 160), bounds("b_bnds", 1, 0.7, 0.7, 0.3)}
}

func TestUKESM10LLCl(t *testing.T) {
	cubes := hybridHeightCubes()
	chain := resolve(t, "UKESM1-0-LL", "cl")
	if n := chain.Names(); !reflect.DeepEqual(n, []string{"cmip6.HadGEM3AllVars", "cmip6.UKESM10LLCl"}) {
		t.Fatalf("chain: %v", n)
	}
	var err error
	for i := 0; i < 2; i++ {
		if cubes, err = chain.FixMetadata(cubes); err != nil {
			t.Fatal(err)
		}
	}
	if len(cubes) != 1 {
		t.Fatalf("have %d cubes, want 1", len(cubes))
	}
	c := cubes[0]
	alt, err := c.Coord(cube.Name("altitude"))
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{110, 150}; !floats.EqualApprox(alt.Points.Elements, want, 1e-9) {
		t.Errorf("altitude %v, want %v", alt.Points.Elements, want)
	}
	plevs := c.Coords(cube.VarName("plev"))
	if len(plevs) != 1 {
		t.Fatalf("have %d plev coordinates, want 1", len(plevs))
	}
	p := plevs[0]
	if p.StandardName != "air_pressure" || p.LongName != "pressure" || !p.Units.Equal(units.MustParse("Pa")) {
		t.Errorf("plev metadata: %s %s %s", p.StandardName, p.LongName, p.Units)
	}
	for i, z := range alt.Points.Elements {
		if want := cmorfix.AltitudeToPressure(z); math.Abs(p.Points.Elements[i]-want) > 1e-9 {
			t.Errorf("plev[%d] = %g, want %g", i, p.Points.Elements[i], want)
		}
	}
	if p.NBounds() != 2 || p.Bounds.Elements[0] <= p.Bounds.Elements[1] {
		t.Errorf("plev bounds %v", p.Bounds)
	}
	if dims, err := c.CoordDims(p); err != nil || !reflect.DeepEqual(dims, []int{0, 1}) {
		t.Errorf("plev dims %v (%v)", dims, err)
	}
}
