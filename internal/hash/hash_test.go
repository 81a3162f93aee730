/*
Copyright © 2019 the cmorfix authors.
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
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.*/

package hash

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("abd"), 0644); err != nil {
		t.Fatal(err)
	}
	ha, err := File(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := File(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Errorf("different files have the same checksum %s", ha)
	}
	if again, _ := File(a); again != ha {
		t.Errorf("checksum changed: %s != %s", again, ha)
	}
	if _, err := File(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestHash(t *testing.T) {
	type s struct {
		A []float64
		B string
	}
	x := Hash(s{A: []float64{1, math.NaN()}, B: "x"})
	y := Hash(s{A: []float64{1, math.NaN()}, B: "x"})
	z := Hash(s{A: []float64{1, math.NaN()}, B: "y"})
	if x != y {
		t.Errorf("equal objects hash differently: %s, %s", x, y)
	}
	if x == z {
		t.Error("different objects have the same hash")
	}
}

func TestHashNil(t *testing.T) {
	type s struct{ A int }
	var p *s
	if Hash(p) != Hash(p) {
		t.Error("nil pointers hash differently")
	}
	if Hash(p) == Hash(&s{}) {
		t.Error("a nil pointer has the same hash as a value")
	}
}

func TestHashUnexported(t *testing.T) {
	type s struct{ a int }
	if Hash(s{a: 1}) != Hash(s{a: 1}) {
		t.Error("equal objects hash differently")
	}
	if Hash(s{a: 1}) == Hash(s{a: 2}) {
		t.Error("different objects have the same hash")
	}
}
