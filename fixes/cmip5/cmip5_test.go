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

package cmip5

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/internal/hash"
	"github.com/spatialmodel/cmorfix/ncio"
	"github.com/spatialmodel/cmorfix/units"
	"gonum.org/v1/gonum/floats"
)

// writeHybridFile writes a raw cloud fraction file with hybrid sigma
// pressure levels whose delta term is named delta. The level bounds
// variables use suffix, and b has no bounds when noBBounds is set.
func writeHybridFile(t *testing.T, path, delta, suffix string, noBBounds bool) {
	t.Helper()
	ds := &ncio.Dataset{
		Dims: []ncio.Dim{{Name: "lev", Len: 2}, {Name: "lat", Len: 1}, {Name: "bnds", Len: 2}},
	}
	data := map[string]interface{}{}
	add := func(name string, dims []string, values interface{}, attrs ...ncio.Attribute) {
		ds.Vars = append(ds.Vars, &ncio.Var{Name: name, Dims: dims, Attributes: attrs})
		data[name] = values
	}
	add("lev", []string{"lev"}, []float64{0.9, 0.5}, ncio.Attribute{Name: "bounds", Value: "lev" + suffix})
	add("lev"+suffix, []string{"lev", "bnds"}, []float64{1, 0.7, 0.7, 0.3})
	add("lat", []string{"lat"}, []float64{0}, ncio.Attribute{Name: "units", Value: "degrees_north"})
	add(delta, []string{"lev"}, []float64{0.1, 0.2})
	add(delta+suffix, []string{"lev", "bnds"}, []float64{0, 0.15, 0.15, 0.25})
	add("b", []string{"lev"}, []float64{0.8, 0.3})
	if !noBBounds {
		add("b"+suffix, []string{"lev", "bnds"}, []float64{1, 0.55, 0.55, 0.05})
	}
	if delta == "a" {
		add("p0", nil, []float64{100000}, ncio.Attribute{Name: "units", Value: "Pa"})
	}
	add("ps", []string{"lat"}, []float64{100000}, ncio.Attribute{Name: "units", Value: "Pa"})
	add("cl", []string{"lev", "lat"}, []float32{10, 20}, ncio.Attribute{Name: "units", Value: "%"})
	if err := ncio.Create(path, ds, data); err != nil {
		t.Fatal(err)
	}
}

func newRegistry(t *testing.T) *cmorfix.Registry {
	r := cmorfix.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestHybridPressureFile(t *testing.T) {
	tests := []struct {
		dataset, delta, suffix string
		levFormula, bndsFormula string
		apUnits                 string
		pressure                []float64
	}{
		{
			dataset: "CanESM2", delta: "ap", suffix: "_bnds",
			levFormula:  "ap: ap b: b ps: ps",
			bndsFormula: "ap: ap_bnds b: b_bnds ps: ps",
			apUnits:     "Pa",
			pressure:    []float64{0.1 + 0.8*100000, 0.2 + 0.3*100000},
		},
		{
			dataset: "CanESM2", delta: "ap", suffix: "_bounds",
			levFormula:  "ap: ap b: b ps: ps",
			bndsFormula: "ap: ap_bounds b: b_bounds ps: ps",
			apUnits:     "Pa",
			pressure:    []float64{0.1 + 0.8*100000, 0.2 + 0.3*100000},
		},
		{
			dataset: "bcc-csm1-1", delta: "a", suffix: "_bnds",
			levFormula:  "p0: p0 a: a b: b ps: ps",
			bndsFormula: "p0: p0 a: a_bnds b: b_bnds ps: ps",
			pressure:    []float64{0.1*100000 + 0.8*100000, 0.2*100000 + 0.3*100000},
		},
	}
	for _, test := range tests {
		t.Run(test.dataset+test.suffix, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cl_Amon.nc")
			out := t.TempDir()
			writeHybridFile(t, path, test.delta, test.suffix, false)
			sum, err := hash.File(path)
			if err != nil {
				t.Fatal(err)
			}

			c := newRegistry(t).Resolve(cmorfix.Key{Project: "CMIP5", Dataset: test.dataset, MIP: "Amon", ShortName: "cl"},
				&cmor.VariableInfo{Table: "Amon", ShortName: "cl"})
			fixed, err := c.FixFile(path, out)
			if err != nil {
				t.Fatal(err)
			}
			if after, _ := hash.File(path); after != sum {
				t.Error("the original file changed")
			}
			ds, err := ncio.ReadHeader(fixed)
			if err != nil {
				t.Fatal(err)
			}
			lev := ds.Var("lev")
			if s := lev.Attributes.GetString("standard_name"); s != hybridSigmaPressure {
				t.Errorf("standard_name %q", s)
			}
			if s := lev.Attributes.GetString("formula_terms"); s != test.levFormula {
				t.Errorf("lev formula_terms %q", s)
			}
			if s := ds.Var("lev" + test.suffix).Attributes.GetString("formula_terms"); s != test.bndsFormula {
				t.Errorf("bounds formula_terms %q", s)
			}
			if s := ds.Var(test.delta).Attributes.GetString("units"); s != test.apUnits {
				t.Errorf("%s units %q", test.delta, s)
			}
			if s := ds.Var("b").Attributes.GetString("bounds"); s != "b"+test.suffix {
				t.Errorf("b bounds %q", s)
			}

			cl, err := c.Process(path, out, ncio.Load)
			if err != nil {
				t.Fatal(err)
			}
			p, err := cl.Coord(cube.Name("air_pressure"))
			if err != nil {
				t.Fatal(err)
			}
			if !floats.EqualApprox(p.Points.Elements, test.pressure, 1e-6) {
				t.Errorf("pressure %v, want %v", p.Points.Elements, test.pressure)
			}
		})
	}
}

func TestHybridPressureFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cl_Amon.nc")
	out := t.TempDir()
	writeHybridFile(t, path, "ap", "_bnds", true)
	c := newRegistry(t).Resolve(cmorfix.Key{Project: "CMIP5", Dataset: "CanESM2", MIP: "Amon", ShortName: "cl"}, nil)
	_, err := c.FixFile(path, out)
	if err == nil || !strings.Contains(err.Error(), "no bounds for 'ap' and 'b' found") {
		t.Errorf("unexpected error %v", err)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Errorf("files left in the output directory: %v", entries)
	}
}

func timeCube(t *testing.T, calendar string) *cube.Cube {
	tu, err := units.ParseCalendar("days since 1850-01-01", calendar)
	if err != nil {
		t.Fatal(err)
	}
	c := cube.New(sparse.ZerosDense(3))
	c.VarName = "tas"
	time := cube.NewCoord([]float64{15.5, 45, 74.5}, tu)
	time.StandardName, time.VarName = "time", "time"
	if err := c.AddDimCoord(time, 0); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestACCESS10AllVars(t *testing.T) {
	r := newRegistry(t)
	c := r.Resolve(cmorfix.Key{Project: "CMIP5", Dataset: "ACCESS1-0", MIP: "Amon", ShortName: "tas"}, nil)
	if !reflect.DeepEqual(c.Names(), []string{"cmip5.ACCESS10AllVars"}) {
		t.Fatalf("fixes %v", c.Names())
	}
	greg := timeCube(t, units.Gregorian)
	std := timeCube(t, units.Standard)
	unset := timeCube(t, "")
	noleap := timeCube(t, units.NoLeap)
	notime := cube.New(sparse.ZerosDense(2))
	cubes := cube.CubeList{greg, std, unset, noleap, notime}
	for i := 0; i < 2; i++ {
		var err error
		if cubes, err = c.FixMetadata(cubes); err != nil {
			t.Fatal(err)
		}
	}
	tc, _ := greg.Coord(cube.Name("time"))
	if cal := tc.Units.Calendar(); cal != units.ProlepticGregorian {
		t.Errorf("calendar %s", cal)
	}
	if !reflect.DeepEqual(tc.Points.Elements, []float64{15.5, 45, 74.5}) {
		t.Errorf("points changed: %v", tc.Points.Elements)
	}
	for _, c := range []*cube.Cube{std, unset} {
		if tc, _ := c.Coord(cube.Name("time")); tc.Units.Calendar() != units.ProlepticGregorian {
			t.Errorf("standard calendar not rewritten: %s", tc.Units.Calendar())
		}
	}
	if tc, _ := noleap.Coord(cube.Name("time")); tc.Units.Calendar() != units.NoLeap {
		t.Errorf("noleap calendar changed to %s", tc.Units.Calendar())
	}
}

func TestACCESS10Cl(t *testing.T) {
	c := cube.New(sparse.ZerosDense(2))
	c.VarName = "cl"
	b := cube.NewCoord([]float64{0.8, 0.3}, units.Dimensionless())
	b.LongName = "vertical coordinate formula term: b(k)"
	b.Attributes["units"] = "1"
	if err := c.AddAuxCoord(b, 0); err != nil {
		t.Fatal(err)
	}
	f := ACCESS10Cl(&cmor.VariableInfo{ShortName: "cl"})
	if _, err := f.FixMetadata(cube.CubeList{c}); err != nil {
		t.Fatal(err)
	}
	if len(b.Attributes) != 0 {
		t.Errorf("attributes %v", b.Attributes)
	}
	if _, err := f.FixMetadata(cube.CubeList{cube.New(sparse.ZerosDense(1))}); err == nil {
		t.Error("expected an error without a cl cube")
	}
}

func TestCanESM2FgCo2(t *testing.T) {
	c := cube.New(sparse.ZerosDense(4))
	for i := range c.Data.Elements {
		c.Data.Elements[i] = 44
	}
	c.VarName = "fgco2"
	c.Units = units.MustParse("kg m-2 s-1")
	c.Attributes["source"] = "CanESM2"
	out, err := CanESM2FgCo2(nil).FixData(c)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Data.Elements, []float64{12, 12, 12, 12}) {
		t.Errorf("data %v", out.Data.Elements)
	}
	if out.VarName != "fgco2" || out.Units.String() != "kg m-2 s-1" || out.Attributes["source"] != "CanESM2" {
		t.Errorf("metadata changed: %s", out.Summary())
	}
}

func TestBccTos(t *testing.T) {
	c := cube.New(sparse.ZerosDense(2, 3))
	c.VarName = "tos"
	rlat := cube.NewCoord([]float64{0, 1}, units.MustParse("degrees"))
	rlat.StandardName = "grid_latitude"
	if err := rlat.SetBounds([]float64{-0.5, 0.5, 0.5, 1.5}, 2); err != nil {
		t.Fatal(err)
	}
	rlon := cube.NewCoord([]float64{0, 1, 2}, units.MustParse("degrees"))
	rlon.StandardName = "grid_longitude"
	if err := rlon.GuessBounds(); err != nil {
		t.Fatal(err)
	}
	lat := &cube.Coord{StandardName: "latitude", Points: sparse.ZerosDense(2, 3), Units: units.MustParse("degrees_north")}
	lon := &cube.Coord{StandardName: "longitude", Points: sparse.ZerosDense(2, 3), Units: units.MustParse("degrees_east")}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			lat.Points.Set(10*float64(i), i, j)
			lon.Points.Set(100*float64(j), i, j)
		}
	}
	for _, err := range []error{
		c.AddDimCoord(rlat, 0), c.AddDimCoord(rlon, 1),
		c.AddAuxCoord(lat, 0, 1), c.AddAuxCoord(lon, 0, 1),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := BccTos(nil).FixData(c); err != nil {
		t.Fatal(err)
	}
	if lat.NBounds() != 4 || lon.NBounds() != 4 {
		t.Fatalf("bounds %d %d", lat.NBounds(), lon.NBounds())
	}
	if b := lat.BoundsAt(0); !reflect.DeepEqual(b, []float64{0, 0, 5, 5}) {
		t.Errorf("lat vertices of cell (0,0): %v", b)
	}
	if b := lat.BoundsAt(3); !reflect.DeepEqual(b, []float64{5, 5, 10, 10}) {
		t.Errorf("lat vertices of cell (1,0): %v", b)
	}
	if b := lon.BoundsAt(1); !reflect.DeepEqual(b, []float64{50, 150, 150, 50}) {
		t.Errorf("lon vertices of cell (0,1): %v", b)
	}
}
