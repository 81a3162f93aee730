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
	"reflect"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
)

// recorder returns a factory for fixes that append name to *log in every
// phase.
func recorder(name string, log *[]string) Factory {
	return func(v *cmor.VariableInfo) Fix {
		return &Hooks{
			Base: NewBase(v),
			File: func(path, _ string) (string, error) {
				*log = append(*log, "file "+name)
				return path, nil
			},
			Metadata: func(cubes cube.CubeList) (cube.CubeList, error) {
				*log = append(*log, "metadata "+name)
				return cubes, nil
			},
			Data: func(c *cube.Cube) (*cube.Cube, error) {
				*log = append(*log, "data "+name)
				return c, nil
			},
		}
	}
}

func TestKeyNormalize(t *testing.T) {
	k := Key{Project: "CMIP6", Dataset: "CESM2-WACCM", MIP: "Amon", ShortName: "Cl"}.Normalize()
	want := Key{Project: "cmip6", Dataset: "cesm2_waccm", MIP: "amon", ShortName: "cl"}
	if k != want {
		t.Errorf("have %v, want %v", k, want)
	}
	if s := (Key{Project: "cmip5", Dataset: "access1_0", ShortName: AllVars}).String(); s != "cmip5/access1_0/*/allvars" {
		t.Errorf("string: %s", s)
	}
}

func TestResolvePrecedence(t *testing.T) {
	var log []string
	r := NewRegistry()
	reg := func(mip, short, name string) {
		k := Key{Project: "CMIP6", Dataset: "Model-X", MIP: mip, ShortName: short}
		if err := r.Register(k, name, recorder(name, &log)); err != nil {
			t.Fatal(err)
		}
	}
	reg("Amon", "tas", "var-mip")
	reg("", "tas", "var")
	reg("Amon", AllVars, "all-mip")
	reg("", AllVars, "all")
	reg("Omon", "tas", "other-mip")

	c := r.Resolve(Key{Project: "cmip6", Dataset: "MODEL_X", MIP: "Amon", ShortName: "tas"}, nil)
	want := []string{"all", "all-mip", "var", "var-mip"}
	if !reflect.DeepEqual(c.Names(), want) {
		t.Errorf("names: %v", pretty.Diff(c.Names(), want))
	}

	cubes := cube.CubeList{newTestCube("tas")}
	if _, err := c.FixFile("in.nc", t.TempDir()); err == nil {
		t.Error("expected an error for a missing input file")
	}
	if _, err := c.FixMetadata(cubes); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FixData(cubes[0]); err != nil {
		t.Fatal(err)
	}
	wantLog := []string{
		"metadata all", "metadata all-mip", "metadata var", "metadata var-mip",
		"data all", "data all-mip", "data var", "data var-mip",
	}
	if !reflect.DeepEqual(log, wantLog) {
		t.Errorf("log: %v", pretty.Diff(log, wantLog))
	}

	if n := r.Resolve(Key{Project: "CMIP6", Dataset: "Model-X", MIP: "day", ShortName: "pr"}, nil).Names(); !reflect.DeepEqual(n, []string{"all"}) {
		t.Errorf("pr: %v", n)
	}
	if n := r.Entries(Key{Project: "CMIP6", Dataset: "Model-X", MIP: "Amon", ShortName: AllVars}); len(n) != 2 {
		t.Errorf("allvars entries: %v", n)
	}
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry()
	c := r.Resolve(Key{Project: "CMIP5", Dataset: "nobody", ShortName: "tas"}, nil)
	if c.Len() != 0 {
		t.Fatalf("expected an empty chain, got %v", c.Names())
	}
	in := newTestCube("tas")
	cubes, err := c.FixMetadata(cube.CubeList{in})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.FixData(cubes[0])
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Error("an empty chain should return its input")
	}
	if p, err := c.FixFile("missing.nc", "."); err != nil || p != "missing.nc" {
		t.Errorf("file: %s, %v", p, err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	var log []string
	r := NewRegistry()
	if err := r.Register(Key{Project: "CMIP5", Dataset: "CanESM2", ShortName: "cl"}, "first", recorder("first", &log)); err != nil {
		t.Fatal(err)
	}
	err := r.Register(Key{Project: "cmip5", Dataset: "canesm2", ShortName: "CL"}, "second", recorder("second", &log))
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected a DuplicateError, got %v", err)
	}
	if dup.Existing != "first" || dup.Name != "second" {
		t.Errorf("%# v", pretty.Formatter(dup))
	}
	r.Override(Key{Project: "CMIP5", Dataset: "CanESM2", ShortName: "cl"}, "second", recorder("second", &log))
	e, ok := r.Entry(Key{Project: "CMIP5", Dataset: "CanESM2", ShortName: "cl"})
	if !ok || e.Name != "second" {
		t.Errorf("override: %v %v", e.Name, ok)
	}
	if keys := r.Keys(); len(keys) != 1 {
		t.Errorf("keys: %v", keys)
	}
}

func TestCompose(t *testing.T) {
	var log []string
	f := Compose("ab", recorder("a", &log), recorder("b", &log))(nil)
	if _, err := f.FixFile("x.nc", "out"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.FixMetadata(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.FixData(nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"file a", "file b", "metadata a", "metadata b", "data a", "data b"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log: %v", pretty.Diff(log, want))
	}

	failing := func(v *cmor.VariableInfo) Fix {
		return &Hooks{Base: NewBase(v), Metadata: func(cube.CubeList) (cube.CubeList, error) {
			return nil, errors.New("failed")
		}}
	}
	log = nil
	f = Compose("fails", failing, recorder("after", &log))(nil)
	if _, err := f.FixMetadata(nil); err == nil {
		t.Error("expected an error")
	}
	if len(log) != 0 {
		t.Errorf("parts after a failure should not run: %v", log)
	}
}

func TestBaseCube(t *testing.T) {
	b := NewBase(&cmor.VariableInfo{ShortName: "cl"})
	cubes := cube.CubeList{newTestCube("ps"), newTestCube("cl")}
	c, err := b.Cube(cubes)
	if err != nil {
		t.Fatal(err)
	}
	if c != cubes[1] {
		t.Error("wrong cube")
	}
	if _, err := b.Cube(cubes[:1]); err == nil {
		t.Error("expected an error for a missing cube")
	}
	if p := b.FixedFilePath("/out", "/in/cl_Amon.nc"); p != "/out/cl_Amon.nc" {
		t.Errorf("path: %s", p)
	}
}
