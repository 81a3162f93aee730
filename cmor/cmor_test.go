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

package cmor

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if p := c.Projects(); !reflect.DeepEqual(p, []string{"CMIP5", "CMIP6"}) {
		t.Errorf("projects: %v", p)
	}

	v, err := c.Variable("CMIP6", "Amon", "tas")
	if err != nil {
		t.Fatal(err)
	}
	want := &VariableInfo{
		Table:        "Amon",
		ShortName:    "tas",
		StandardName: "air_temperature",
		LongName:     "Near-Surface Air Temperature",
		Units:        "K",
		Frequency:    "mon",
		Dimensions:   []string{"longitude", "latitude", "time", "height2m"},
	}
	got := *v
	got.Coordinates = nil
	if !reflect.DeepEqual(&got, want) {
		t.Errorf("tas: %v", pretty.Diff(&got, want))
	}
	var names []string
	for _, ci := range v.Coordinates {
		names = append(names, ci.Name)
	}
	if strings.Join(names, " ") != "longitude latitude time height2m" {
		t.Errorf("coordinates: %v", names)
	}
	if h := v.Coordinate("height2m"); h == nil || h.Value != "2." || h.Positive != "up" {
		t.Errorf("height2m: %# v", pretty.Formatter(h))
	}

	if _, err := c.Variable("native6", "E1hr", "pr"); err != nil {
		t.Errorf("native6 should use the CMIP6 tables: %v", err)
	}
	v, err = c.Variable("CMIP5", "Amon", "cl")
	if err != nil {
		t.Fatal(err)
	}
	if lev := v.Coordinate("alevel"); lev == nil || lev.MustHaveBounds != "yes" || lev.OutName != "lev" {
		t.Errorf("CMIP5 alevel: %# v", pretty.Formatter(lev))
	}
	if _, err := c.Variable("CMIP6", "Amon", "nonexistent"); err == nil {
		t.Error("expected an error for a missing variable")
	}
	if _, err := c.Variable("CMOCK", "Amon", "tas"); err == nil {
		t.Error("expected an error for a missing project")
	}
}

func TestCustomVariables(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Variable("native6", "E1hr", "rls")
	if err != nil {
		t.Fatal(err)
	}
	if v.Table != "E1hr" || v.Frequency != "1hr" || v.Positive != "down" || v.Units != "W m-2" {
		t.Errorf("rls: %# v", pretty.Formatter(v))
	}
	if len(v.Coordinates) != 3 {
		t.Errorf("rls coordinates should be resolved against CMIP6: %d", len(v.Coordinates))
	}
}

func TestRequestedLevels(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		project, coord string
		n              int
		first, last    float64
	}{
		{project: "CMIP6", coord: "alt40", n: 40, first: 240, last: 18960},
		{project: "CMIP6", coord: "p200", n: 1, first: 20000, last: 20000},
		{project: "CMIP5", coord: "plevs", n: 17, first: 100000, last: 1000},
		{project: "CMIP5", coord: "p500", n: 1, first: 50000, last: 50000},
	}
	for _, test := range tests {
		t.Run(test.project+"_"+test.coord, func(t *testing.T) {
			ci, err := c.Coordinate(test.project, test.coord)
			if err != nil {
				t.Fatal(err)
			}
			l, err := ci.RequestedLevels()
			if err != nil {
				t.Fatal(err)
			}
			if len(l) != test.n || l[0] != test.first || l[len(l)-1] != test.last {
				t.Errorf("have %v", l)
			}
		})
	}
	ci, err := c.Coordinate("CMIP6", "time")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ci.RequestedLevels(); err == nil {
		t.Error("time has no requested values")
	}
}

func TestReadDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "cmor")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	table := `table_id: Table Lmon ! land
frequency: mon

!============
axis_entry: sdepth
!============
standard_name:    depth
units:            m
axis:             Z
requested:        0.05 0.2
!============
variable_entry:    mrsos
!============
standard_name:    moisture_content_of_soil_layer
units:            kg m-2
dimensions:       longitude latitude time sdepth
`
	if err := os.WriteFile(filepath.Join(dir, "CMIP5_Lmon"), []byte(table), 0644); err != nil {
		t.Fatal(err)
	}
	c := NewCatalog()
	if err := c.ReadDir("CMIP5", dir); err != nil {
		t.Fatal(err)
	}
	v, err := c.Variable("cmip5", "Lmon", "mrsos")
	if err != nil {
		t.Fatal(err)
	}
	if v.Frequency != "mon" || v.Units != "kg m-2" || len(v.Coordinates) != 1 {
		t.Errorf("mrsos: %# v", pretty.Formatter(v))
	}
	l, err := v.Coordinates[0].RequestedLevels()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, []float64{0.05, 0.2}) {
		t.Errorf("levels %v", l)
	}

	if err := os.WriteFile(filepath.Join(dir, "CMIP5_bad"), []byte("no key here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewCatalog().ReadDir("CMIP5", dir); err == nil {
		t.Error("expected an error for a malformed table")
	}
}
