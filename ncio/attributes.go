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

// Package ncio reads and writes NetCDF classic files as cubes, and
// rewrites the headers of existing files.
package ncio

import (
	"fmt"
	"math"
	"strings"
)

// Attribute is a named NetCDF attribute. Value is one of string,
// []uint8, []int16, []int32, []float32 or []float64.
type Attribute struct {
	Name  string
	Value interface{}
}

// Attributes is an ordered set of attributes.
type Attributes []Attribute

func (a Attributes) index(name string) int {
	for i, at := range a {
		if at.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (interface{}, bool) {
	if i := a.index(name); i >= 0 {
		return a[i].Value, true
	}
	return nil, false
}

// Has returns whether the named attribute exists.
func (a Attributes) Has(name string) bool { return a.index(name) >= 0 }

// GetString returns the named attribute if it is a string, or "".
func (a Attributes) GetString(name string) string {
	v, _ := a.Get(name)
	s, _ := v.(string)
	return s
}

// Set sets the named attribute, keeping its position if it already
// exists. Go scalars and slices are converted to the closest NetCDF
// type; Set panics on values that have none.
func (a *Attributes) Set(name string, value interface{}) {
	v := attributeValue(value)
	if v == nil {
		panic(fmt.Sprintf("ncio: attribute %s: unsupported value type %T", name, value))
	}
	if i := a.index(name); i >= 0 {
		(*a)[i].Value = v
		return
	}
	*a = append(*a, Attribute{Name: name, Value: v})
}

// Delete removes the named attribute if it exists.
func (a *Attributes) Delete(name string) {
	if i := a.index(name); i >= 0 {
		*a = append((*a)[:i], (*a)[i+1:]...)
	}
}

// attributeValue converts v to one of the value types of the cdf
// library, or returns nil.
func attributeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string, []uint8, []int16, []int32, []float32, []float64:
		return t
	case float64:
		return []float64{t}
	case float32:
		return []float32{t}
	case int:
		return []int32{int32(t)}
	case int32:
		return []int32{t}
	case int16:
		return []int16{t}
	case int8:
		return []uint8{uint8(t)}
	case []int:
		o := make([]int32, len(t))
		for i, x := range t {
			o[i] = int32(x)
		}
		return o
	case []string:
		return strings.Join(t, " ")
	case bool:
		if t {
			return []int32{1}
		}
		return []int32{0}
	}
	return nil
}

// numbers returns the numeric attribute value v as float64 values.
// BYTE values are signed.
func numbers(v interface{}) []float64 {
	switch t := v.(type) {
	case []uint8:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(int8(x))
		}
		return o
	case []int16:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o
	case []int32:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o
	case []float32:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o
	case []float64:
		return append([]float64{}, t...)
	}
	return nil
}

// number returns the first value of a numeric attribute.
func number(a Attributes, name string) (float64, bool) {
	v, ok := a.Get(name)
	if !ok {
		return math.NaN(), false
	}
	n := numbers(v)
	if len(n) == 0 {
		return math.NaN(), false
	}
	return n[0], true
}
