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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// readCMIP5 adds the contents of a CMIP5 text table to p. Each table
// carries the axis entries its variables use.
//
// The format is a sequence of "key: value" lines, with "!" starting a
// comment. "axis_entry: name" and "variable_entry: name" lines open a
// new entry; keys before the first entry belong to the table header.
func readCMIP5(p *Project, r io.Reader) error {
	table := &Table{Variables: make(map[string]*VariableInfo)}
	var (
		axis *CoordinateInfo
		v    *VariableInfo
	)
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := s.Text()
		if i := strings.Index(text, "!"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		i := strings.Index(text, ":")
		if i < 0 {
			return fmt.Errorf("cmor: CMIP5 table line %d: expected 'key: value', got %q", line, text)
		}
		key, val := strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
		switch key {
		case "axis_entry":
			axis, v = &CoordinateInfo{Name: val}, nil
			p.Coordinates[val] = axis
			continue
		case "variable_entry":
			if table.Name == "" {
				return fmt.Errorf("cmor: CMIP5 table line %d: variable_entry before table_id", line)
			}
			axis = nil
			v = &VariableInfo{Table: table.Name, ShortName: val, Frequency: table.Frequency}
			table.Variables[val] = v
			continue
		}
		switch {
		case axis != nil:
			setCMIP5Axis(axis, key, val)
		case v != nil:
			setCMIP5Variable(v, key, val)
		default:
			switch key {
			case "table_id":
				table.Name = strings.TrimSpace(strings.TrimPrefix(val, "Table"))
			case "frequency":
				table.Frequency = val
			case "modeling_realm":
				table.Realm = val
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("cmor: reading CMIP5 table: %w", err)
	}
	if table.Name != "" {
		p.Tables[table.Name] = table
	}
	return nil
}

func setCMIP5Axis(a *CoordinateInfo, key, val string) {
	switch key {
	case "axis":
		a.Axis = val
	case "standard_name":
		a.StandardName = val
	case "long_name":
		a.LongName = val
	case "out_name":
		a.OutName = val
	case "units":
		a.Units = val
	case "positive":
		a.Positive = val
	case "stored_direction":
		a.StoredDirection = val
	case "must_have_bounds":
		a.MustHaveBounds = val
	case "requested":
		a.Requested = append(a.Requested, strings.Fields(val)...)
	case "value":
		a.Value = val
	}
}

func setCMIP5Variable(v *VariableInfo, key, val string) {
	switch key {
	case "standard_name":
		v.StandardName = val
	case "long_name":
		v.LongName = val
	case "units":
		v.Units = val
	case "positive":
		v.Positive = val
	case "dimensions":
		v.Dimensions = strings.Fields(val)
	case "frequency":
		v.Frequency = val
	}
}
