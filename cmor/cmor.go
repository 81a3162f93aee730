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

// Package cmor reads CMOR tables, which define the expected names, units
// and coordinates of the variables of a climate data project.
package cmor

import (
	"fmt"
	"strconv"
	"strings"
)

// CoordinateInfo is the definition of a coordinate in a CMOR table.
type CoordinateInfo struct {
	// Name is the table key of the coordinate, e.g. "plev19".
	Name            string
	Axis            string
	StandardName    string
	LongName        string
	OutName         string
	Units           string
	Positive        string
	StoredDirection string
	MustHaveBounds  string
	Requested       []string

	// Value is the value of scalar coordinates.
	Value string
}

// RequestedLevels returns the requested values of the coordinate, or
// its scalar value when there are no requested values.
func (c *CoordinateInfo) RequestedLevels() ([]float64, error) {
	vals := c.Requested
	if len(vals) == 0 && c.Value != "" {
		vals = []string{c.Value}
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("cmor: coordinate %s does not have requested values", c.Name)
	}
	o := make([]float64, len(vals))
	for i, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("cmor: coordinate %s: invalid requested value %q", c.Name, v)
		}
		o[i] = f
	}
	return o, nil
}

// VariableInfo is the definition of a variable in a CMOR table.
type VariableInfo struct {
	Table        string
	ShortName    string
	StandardName string
	LongName     string
	Units        string
	Frequency    string
	Positive     string
	Dimensions   []string

	// Coordinates holds the definitions of Dimensions, in order.
	// Dimensions without a definition in the table are skipped.
	Coordinates []*CoordinateInfo
}

// Coordinate returns the definition of the named dimension, or nil.
func (v *VariableInfo) Coordinate(name string) *CoordinateInfo {
	for _, c := range v.Coordinates {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// HasDimension returns whether name is one of the variable's dimensions.
func (v *VariableInfo) HasDimension(name string) bool {
	for _, d := range v.Dimensions {
		if d == name {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of v.
func (v *VariableInfo) Copy() *VariableInfo {
	o := *v
	o.Dimensions = append([]string{}, v.Dimensions...)
	o.Coordinates = make([]*CoordinateInfo, len(v.Coordinates))
	for i, c := range v.Coordinates {
		cc := *c
		cc.Requested = append([]string(nil), c.Requested...)
		o.Coordinates[i] = &cc
	}
	return &o
}

// Table is a MIP table: a set of variables sharing a frequency and realm.
type Table struct {
	Name      string
	Frequency string
	Realm     string
	Variables map[string]*VariableInfo
}

// Project holds the tables and coordinate definitions of a project.
type Project struct {
	Name        string
	Tables      map[string]*Table
	Coordinates map[string]*CoordinateInfo
}

func newProject(name string) *Project {
	return &Project{
		Name:        name,
		Tables:      make(map[string]*Table),
		Coordinates: make(map[string]*CoordinateInfo),
	}
}

// resolve fills in the coordinate definitions of every variable.
func (p *Project) resolve() {
	for _, t := range p.Tables {
		for _, v := range t.Variables {
			v.Coordinates = v.Coordinates[:0]
			for _, d := range v.Dimensions {
				if c, ok := p.Coordinates[d]; ok {
					v.Coordinates = append(v.Coordinates, c)
				}
			}
		}
	}
}

// Variable returns the definition of short name in table.
func (p *Project) Variable(table, shortName string) (*VariableInfo, error) {
	t, ok := p.Tables[table]
	if !ok {
		return nil, fmt.Errorf("cmor: project %s has no table %s", p.Name, table)
	}
	v, ok := t.Variables[shortName]
	if !ok {
		return nil, fmt.Errorf("cmor: table %s of project %s has no variable %s", table, p.Name, shortName)
	}
	return v, nil
}
