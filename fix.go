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

// Package cmorfix applies dataset-specific corrections to climate model
// output so that it follows the CMOR conventions of its project.
//
// Fixes are looked up in a Registry by project, dataset, MIP table and
// variable, and applied in three phases: to the raw file before it is
// loaded, to the metadata of the loaded cubes, and to the data of the
// target cube.
package cmorfix

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
)

// Fix is a correction for one or more variables of a dataset.
type Fix interface {
	// FixFile fixes the file at path before it is loaded and returns
	// the path of the fixed file. Fixes that edit files write a new file
	// in outputDir and never modify the original.
	FixFile(path, outputDir string) (string, error)

	// FixMetadata fixes the names, coordinates and attributes of
	// the cubes loaded from a file.
	FixMetadata(cubes cube.CubeList) (cube.CubeList, error)

	// FixData fixes the data of the target cube.
	FixData(c *cube.Cube) (*cube.Cube, error)
}

// Factory creates a fix for the variable described by v. v may be nil
// when the variable is not in the CMOR tables.
type Factory func(v *cmor.VariableInfo) Fix

// Base is a Fix that does nothing. It holds what most fixes need and is
// meant to be embedded.
type Base struct {
	Var *cmor.VariableInfo
	Log logrus.FieldLogger
}

// NewBase returns a Base for v that logs to the standard logger.
func NewBase(v *cmor.VariableInfo) Base {
	return Base{Var: v, Log: logrus.StandardLogger()}
}

// FixFile implements Fix.
func (b Base) FixFile(path, outputDir string) (string, error) { return path, nil }

// FixMetadata implements Fix.
func (b Base) FixMetadata(cubes cube.CubeList) (cube.CubeList, error) { return cubes, nil }

// FixData implements Fix.
func (b Base) FixData(c *cube.Cube) (*cube.Cube, error) { return c, nil }

// ShortName returns the short name of the fixed variable, or "" if it
// is not known.
func (b Base) ShortName() string {
	if b.Var == nil {
		return ""
	}
	return b.Var.ShortName
}

// Cube returns the cube of cubes whose var_name is the short name of
// the fixed variable.
func (b Base) Cube(cubes cube.CubeList) (*cube.Cube, error) {
	name := b.ShortName()
	for _, c := range cubes {
		if c.VarName == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("cmorfix: no cube with var_name '%s' found", name)
}

// FixedFilePath returns the path in outputDir that a fixed copy of the
// file at path is written to.
func (b Base) FixedFilePath(outputDir, path string) string {
	return filepath.Join(outputDir, filepath.Base(path))
}

// Hooks is a Fix made of phase functions. Phases whose function is nil
// are no-ops.
//
//	func newTas(v *cmor.VariableInfo) cmorfix.Fix {
//		h := &cmorfix.Hooks{Base: cmorfix.NewBase(v)}
//		h.Metadata = func(cubes cube.CubeList) (cube.CubeList, error) { ... }
//		return h
//	}
type Hooks struct {
	Base
	File     func(path, outputDir string) (string, error)
	Metadata func(cubes cube.CubeList) (cube.CubeList, error)
	Data     func(c *cube.Cube) (*cube.Cube, error)
}

// FixFile implements Fix.
func (h *Hooks) FixFile(path, outputDir string) (string, error) {
	if h.File == nil {
		return path, nil
	}
	return h.File(path, outputDir)
}

// FixMetadata implements Fix.
func (h *Hooks) FixMetadata(cubes cube.CubeList) (cube.CubeList, error) {
	if h.Metadata == nil {
		return cubes, nil
	}
	return h.Metadata(cubes)
}

// FixData implements Fix.
func (h *Hooks) FixData(c *cube.Cube) (*cube.Cube, error) {
	if h.Data == nil {
		return c, nil
	}
	return h.Data(c)
}

// composite runs the hooks of its parts in order.
type composite struct {
	name  string
	parts []Fix
}

// Compose returns a Factory for a fix named name whose hooks run the
// hooks of every part in order. The first part is usually the fix that
// is being extended.
func Compose(name string, parts ...Factory) Factory {
	return func(v *cmor.VariableInfo) Fix {
		c := &composite{name: name}
		for _, p := range parts {
			c.parts = append(c.parts, p(v))
		}
		return c
	}
}

func (c *composite) String() string { return c.name }

func (c *composite) FixFile(path, outputDir string) (string, error) {
	var err error
	for _, p := range c.parts {
		if path, err = p.FixFile(path, outputDir); err != nil {
			return "", err
		}
	}
	return path, nil
}

func (c *composite) FixMetadata(cubes cube.CubeList) (cube.CubeList, error) {
	var err error
	for _, p := range c.parts {
		if cubes, err = p.FixMetadata(cubes); err != nil {
			return nil, err
		}
	}
	return cubes, nil
}

func (c *composite) FixData(cb *cube.Cube) (*cube.Cube, error) {
	var err error
	for _, p := range c.parts {
		if cb, err = p.FixData(cb); err != nil {
			return nil, err
		}
	}
	return cb, nil
}
