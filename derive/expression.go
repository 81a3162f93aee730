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

package derive

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/units"
)

// Expression derives a variable element by element from an arithmetic
// expression over the short names of its inputs, e.g.
// "rsdt - rsut - rlut".
type Expression struct {
	// Name is the short name of the result.
	Name string

	// Units are the units of the result. Without units, all inputs
	// must have convertible units and the result takes the units of
	// the first input.
	Units string

	expr *govaluate.EvaluableExpression
}

// NewExpression parses expression into a derivation of name.
func NewExpression(name, expression, resultUnits string) (*Expression, error) {
	e, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("derive: parsing expression for %s: %w", name, err)
	}
	if len(e.Vars()) == 0 {
		return nil, fmt.Errorf("derive: expression for %s does not use any variable", name)
	}
	if resultUnits != "" {
		if _, err := units.Parse(resultUnits); err != nil {
			return nil, fmt.Errorf("derive: %s: %w", name, err)
		}
	}
	return &Expression{Name: name, Units: resultUnits, expr: e}, nil
}

// MustExpression is like NewExpression but panics on error.
func MustExpression(name, expression, resultUnits string) *Expression {
	e, err := NewExpression(name, expression, resultUnits)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expression) String() string { return e.Name + " = " + e.expr.String() }

// Required implements Derivation. Every variable of the expression is
// required.
func (e *Expression) Required(string) []Requirement {
	var o []Requirement
	seen := make(map[string]bool)
	for _, v := range e.expr.Vars() {
		if !seen[v] {
			seen[v] = true
			o = append(o, Requirement{ShortName: v})
		}
	}
	return o
}

// Calculate implements Derivation. Inputs must have the same shape.
// When all inputs have convertible units they are converted to the
// units of the first one before evaluation.
func (e *Expression) Calculate(cubes cube.CubeList) (*cube.Cube, error) {
	reqs := e.Required("")
	inputs := make([]*cube.Cube, len(reqs))
	for i, r := range reqs {
		c := cubes.ByVarName(r.ShortName)
		if len(c) != 1 {
			return nil, fmt.Errorf("derive: %s: expected one cube with var_name '%s', found %d", e.Name, r.ShortName, len(c))
		}
		inputs[i] = c[0]
		if !sameShape(c[0].Shape(), inputs[0].Shape()) {
			return nil, fmt.Errorf("derive: %s: shape %v of %s does not match shape %v of %s",
				e.Name, c[0].Shape(), r.ShortName, inputs[0].Shape(), reqs[0].ShortName)
		}
	}

	u := inputs[0].Units
	convertible := true
	for _, in := range inputs[1:] {
		if !in.Units.IsConvertible(u) {
			convertible = false
		}
	}
	if convertible {
		for i, in := range inputs[1:] {
			if in.Units.Equal(u) {
				continue
			}
			cc := in.Copy()
			if err := cc.ConvertUnits(u); err != nil {
				return nil, fmt.Errorf("derive: %s: %w", e.Name, err)
			}
			inputs[i+1] = cc
		}
	}
	switch {
	case e.Units != "":
		ru, err := units.Parse(e.Units)
		if err != nil {
			return nil, fmt.Errorf("derive: %s: %w", e.Name, err)
		}
		if convertible && u.IsConvertible(ru) {
			// Arithmetic in the input units, converted at the end.
			out, err := e.evaluate(inputs, u)
			if err != nil {
				return nil, err
			}
			if err := out.ConvertUnits(ru); err != nil {
				return nil, fmt.Errorf("derive: %s: %w", e.Name, err)
			}
			return out, nil
		}
		u = ru
	case !convertible:
		return nil, fmt.Errorf("derive: %s: inputs have incompatible units; the result units must be given", e.Name)
	}
	return e.evaluate(inputs, u)
}

func (e *Expression) evaluate(inputs []*cube.Cube, u units.Unit) (*cube.Cube, error) {
	reqs := e.Required("")
	out := inputs[0].Copy()
	out.VarName, out.StandardName, out.LongName = e.Name, "", ""
	out.Units = u
	params := make(map[string]interface{}, len(inputs))
	for i := range out.Data.Elements {
		masked := false
		for j, r := range reqs {
			v := inputs[j].Data.Elements[i]
			if math.IsNaN(v) {
				masked = true
				break
			}
			params[r.ShortName] = v
		}
		if masked {
			out.Data.Elements[i] = math.NaN()
			continue
		}
		r, err := e.expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("derive: %s: %w", e.Name, err)
		}
		v, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("derive: %s: expression result %v is not a number", e.Name, r)
		}
		out.Data.Elements[i] = v
	}
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
