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

package cmorfixutil

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/ncio"
	"github.com/spatialmodel/cmorfix/units"
	"github.com/tealeg/xlsx"
)

func tempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "cmorfixutil")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// latCube returns a cube of the given variable on two latitudes
// holding v everywhere.
func latCube(t *testing.T, name, u string, v float64) *cube.Cube {
	c := cube.New(sparse.ZerosDense(2))
	for i := range c.Data.Elements {
		c.Data.Elements[i] = v
	}
	c.VarName = name
	c.Units = units.MustParse(u)
	lat := cube.NewCoord([]float64{-45, 45}, units.MustParse("degrees_north"))
	lat.StandardName, lat.VarName = "latitude", "lat"
	if err := c.AddDimCoord(lat, 0); err != nil {
		t.Fatal(err)
	}
	return c
}

func save(t *testing.T, path string, cubes ...*cube.Cube) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ncio.Save(cube.CubeList(cubes), path); err != nil {
		t.Fatal(err)
	}
}

func approx(a []float64, v float64) bool {
	for _, x := range a {
		if math.Abs(x-v) > 1e-9 {
			return false
		}
	}
	return len(a) > 0
}

func catalog(t *testing.T) *cmor.Catalog {
	c, err := cmor.Default()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFix(t *testing.T) {
	dir := tempDir(t)
	in := filepath.Join(dir, "in", "fgco2_Omon_CanESM2.nc")
	save(t, in, latCube(t, "fgco2", "kg m-2 s-1", 44))

	reg, err := Registry(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	key := cmorfix.Key{Project: "CMIP5", Dataset: "CanESM2", MIP: "Omon", ShortName: "fgco2"}

	t.Run("blob output", func(t *testing.T) {
		outDir := "file://" + filepath.ToSlash(filepath.Join(dir, "out"))
		outputs, err := Fix(context.Background(), key, []string{filepath.Join(dir, "in")}, outDir, catalog(t), reg)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{outDir + "/fgco2_Omon_CanESM2.nc"}; !reflect.DeepEqual(outputs, want) {
			t.Errorf("outputs %v, want %v", outputs, want)
		}
		cubes, err := ncio.Load(filepath.Join(dir, "out", "fgco2_Omon_CanESM2.nc"))
		if err != nil {
			t.Fatal(err)
		}
		if len(cubes) != 1 || cubes[0].VarName != "fgco2" || !approx(cubes[0].Data.Elements, 12) {
			t.Errorf("fixed cubes: %v", cubes)
		}
	})
	t.Run("replace input", func(t *testing.T) {
		if _, err := Fix(context.Background(), key, []string{in}, filepath.Join(dir, "in"), catalog(t), reg); err == nil {
			t.Error("expected an error when the output replaces the input")
		}
	})
	t.Run("no inputs", func(t *testing.T) {
		if _, err := Fix(context.Background(), key, []string{filepath.Join(dir, "*.missing")}, dir, catalog(t), reg); err == nil {
			t.Error("expected an error for a pattern without matches")
		}
	})
}

func TestFixCommand(t *testing.T) {
	dir := tempDir(t)
	in := filepath.Join(dir, "fgco2.nc")
	save(t, in, latCube(t, "fgco2", "kg m-2 s-1", 44))
	out := filepath.Join(dir, "fixed")

	Cfg.Set("project", "CMIP5")
	Cfg.Set("dataset", "CanESM2")
	Cfg.Set("mip", "Omon")
	Cfg.Set("variable", "fgco2")
	Cfg.Set("output-dir", out)
	defer func() {
		for _, k := range []string{"project", "dataset", "mip", "variable", "output-dir"} {
			Cfg.Set(k, "")
		}
	}()
	var b bytes.Buffer
	Root.SetOutput(&b)
	Root.SetArgs([]string{"fix", in})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(out, "fgco2.nc"); strings.TrimSpace(b.String()) != want {
		t.Errorf("have output %q, want %q", b.String(), want)
	}
	if _, err := os.Stat(filepath.Join(out, "fgco2.nc")); err != nil {
		t.Error(err)
	}
}

func TestVersion(t *testing.T) {
	var b bytes.Buffer
	Root.SetOutput(&b)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if b.String() != "cmorfix v"+cmorfix.Version+"\n" {
		t.Errorf("version: %q", b.String())
	}
}

func TestRegistry(t *testing.T) {
	cfg := viper.New()
	cfg.Set("alternatives", []string{"cmip6.CESM2Cl"})
	r, err := Registry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := r.Entry(cmorfix.Key{Project: "CMIP6", Dataset: "CESM2-WACCM", ShortName: "cl"})
	if !ok || e.Name != "cmip6.CESM2Cl" {
		t.Errorf("alternative not used: %+v", e)
	}
	cfg.Set("alternatives", []string{"cmip6.Missing"})
	if _, err := Registry(cfg); err == nil {
		t.Error("expected an error for an unknown alternative")
	}
}

func TestCatalog(t *testing.T) {
	dir := tempDir(t)
	table := `table_id: Table Lmon
frequency: mon

!============
variable_entry:    mrsos
!============
standard_name:    moisture_content_of_soil_layer
units:            kg m-2
dimensions:       longitude latitude time
`
	if err := os.WriteFile(filepath.Join(dir, "CMIP5_Lmon"), []byte(table), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := viper.New()
	cfg.Set("tables", `{"CMIP5":"`+filepath.ToSlash(dir)+`"}`)
	c, err := Catalog(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := c.Variable("CMIP5", "Lmon", "mrsos"); err != nil || v.Units != "kg m-2" {
		t.Errorf("mrsos: %v, %v", v, err)
	}
	if _, err := c.Variable("CMIP5", "Amon", "tas"); err != nil {
		t.Errorf("built-in tables should remain: %v", err)
	}
	cfg.Set("tables", "{")
	if _, err := Catalog(cfg); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestList(t *testing.T) {
	reg, err := Registry(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := List(&b, reg); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cmip5.CanESM2FgCo2", "native6.ERA5AllVars", "Alternative fixes", "cmip6.CESM2Cl"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("list is missing %s:\n%s", want, b.String())
		}
	}

	path := filepath.Join(tempDir(t), "fixes.xlsx")
	if err := Report(path, reg); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fixesSheet, ok := f.Sheet["fixes"]
	if !ok {
		t.Fatal("missing fixes sheet")
	}
	if len(fixesSheet.Rows) != len(reg.Keys())+1 {
		t.Errorf("%d rows for %d fixes", len(fixesSheet.Rows), len(reg.Keys()))
	}
	if h := fixesSheet.Rows[0].Cells[4].Value; h != "Fix" {
		t.Errorf("header %s", h)
	}
	alt, ok := f.Sheet["alternatives"]
	if !ok || len(alt.Rows) != 2 || alt.Rows[1].Cells[4].Value != "cmip6.CESM2Cl" {
		t.Error("alternatives sheet")
	}
}

func TestDerive(t *testing.T) {
	dir := tempDir(t)
	in := filepath.Join(dir, "toa.nc")
	save(t, in,
		latCube(t, "rsdt", "W m-2", 10),
		latCube(t, "rsut", "W m-2", 3),
		latCube(t, "rlut", "W m-2", 2),
	)
	out := filepath.Join(dir, "rtnt.nc")
	if err := Derive(context.Background(), "rtnt", "CMIP6", []string{in}, out); err != nil {
		t.Fatal(err)
	}
	cubes, err := ncio.Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(cubes) != 1 || cubes[0].VarName != "rtnt" || !approx(cubes[0].Data.Elements, 5) {
		t.Errorf("derived cubes: %v", cubes)
	}

	partial := filepath.Join(dir, "partial.nc")
	save(t, partial, latCube(t, "rsdt", "W m-2", 10))
	if err := Derive(context.Background(), "rtnt", "CMIP6", []string{partial}, out); err == nil {
		t.Error("expected an error for a missing input")
	}
	if err := Derive(context.Background(), "nonexistent", "CMIP6", []string{in}, out); err == nil {
		t.Error("expected an error for an unknown derivation")
	}
}

func TestLevels(t *testing.T) {
	cat := catalog(t)
	l, err := Levels(context.Background(), cat, "CMIP6_p200")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, []float64{20000}) {
		t.Errorf("p200: %v", l)
	}

	c := latCube(t, "ta", "K", 250)
	plev := cube.NewCoord([]float64{85000}, units.MustParse("Pa"))
	plev.StandardName, plev.VarName = "air_pressure", "plev"
	if err := c.AddAuxCoord(plev); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(tempDir(t), "ta.nc")
	save(t, path, c)
	l, err = Levels(context.Background(), cat, path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, []float64{85000}) {
		t.Errorf("file levels: %v", l)
	}
	if _, err := Levels(context.Background(), cat, "CMIP6"); err == nil {
		t.Error("expected an error for a malformed spec")
	}
}
