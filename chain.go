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
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/internal/hash"
)

type namedFix struct {
	name string
	fix  Fix
}

// Chain holds the fixes that apply to one key. Each phase runs the
// fixes in order, and all file fixes run before all metadata fixes,
// which run before all data fixes.
type Chain struct {
	Key Key
	Var *cmor.VariableInfo
	Log logrus.FieldLogger

	fixes []namedFix
}

// Len returns the number of fixes in the chain.
func (c *Chain) Len() int { return len(c.fixes) }

// Names returns the names of the fixes in the chain.
func (c *Chain) Names() []string {
	o := make([]string, len(c.fixes))
	for i, f := range c.fixes {
		o[i] = f.name
	}
	return o
}

func (c *Chain) log(phase, fix string) logrus.FieldLogger {
	l := c.Log
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithFields(logrus.Fields{
		"project":  c.Key.Project,
		"dataset":  c.Key.Dataset,
		"mip":      c.Key.MIP,
		"variable": c.Key.ShortName,
		"phase":    phase,
		"fix":      fix,
	})
}

// FixFile runs the file phase of every fix on the file at path and
// returns the path of the result, which is path itself if no fix
// rewrote the file. Fixed files are written to outputDir, which is
// created if needed and must not be the directory of path. The
// original file must be unchanged after the phase. A fix that follows
// one which rewrote the file writes to a staging directory in outputDir,
// and its result is then moved into outputDir, so successive fixes may
// use the same file name. If the phase fails, the files it added to
// outputDir are removed.
func (c *Chain) FixFile(path, outputDir string) (string, error) {
	if len(c.fixes) == 0 {
		return path, nil
	}
	if err := checkOutputDir(path, outputDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("cmorfix: %w", err)
	}
	before, err := hash.File(path)
	if err != nil {
		return "", fmt.Errorf("cmorfix: %w", err)
	}
	existing, err := dirNames(outputDir)
	if err != nil {
		return "", err
	}
	cleanup := func() {
		names, _ := dirNames(outputDir)
		for name := range names {
			if !existing[name] {
				os.RemoveAll(filepath.Join(outputDir, name))
			}
		}
	}
	p := path
	for _, f := range c.fixes {
		dir := outputDir
		if p != path {
			// p is the output of an earlier fix, so this fix would
			// write over its own input.
			if dir, err = os.MkdirTemp(outputDir, ".cmorfix"); err != nil {
				cleanup()
				return "", fmt.Errorf("cmorfix: %w", err)
			}
		}
		out, err := f.fix.FixFile(p, dir)
		wrote := out != p
		if dir != outputDir {
			if err == nil {
				out, err = unstage(out, dir, outputDir)
			}
			os.RemoveAll(dir)
		}
		if err != nil {
			cleanup()
			return "", fmt.Errorf("cmorfix: %s: fixing file %s: %w", f.name, path, err)
		}
		if wrote {
			c.log("file", f.name).WithField("path", out).Info("wrote fixed file")
		} else {
			c.log("file", f.name).Debug("applied fix")
		}
		p = out
	}
	after, err := hash.File(path)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("cmorfix: %w", err)
	}
	if after != before {
		cleanup()
		return "", fmt.Errorf("cmorfix: file fixes for %s modified the original file %s", c.Key, path)
	}
	return p, nil
}

// unstage moves out from the staging directory dir to outputDir.
func unstage(out, dir, outputDir string) (string, error) {
	if filepath.Dir(filepath.Clean(out)) != filepath.Clean(dir) {
		return out, nil
	}
	final := filepath.Join(outputDir, filepath.Base(out))
	if err := os.Rename(out, final); err != nil {
		return "", fmt.Errorf("cmorfix: %w", err)
	}
	return final, nil
}

func dirNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cmorfix: %w", err)
	}
	o := make(map[string]bool, len(entries))
	for _, e := range entries {
		o[e.Name()] = true
	}
	return o, nil
}

func checkOutputDir(path, outputDir string) error {
	in, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("cmorfix: %w", err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("cmorfix: %w", err)
	}
	if in == out {
		return fmt.Errorf("cmorfix: output directory %s is the directory of input file %s", outputDir, path)
	}
	return nil
}

// FixMetadata runs the metadata phase of every fix. The fixes of a
// chain share its CMOR definition, which none of them may modify.
func (c *Chain) FixMetadata(cubes cube.CubeList) (cube.CubeList, error) {
	var err error
	var def string
	if c.Var != nil {
		def = hash.Hash(c.Var)
	}
	for _, f := range c.fixes {
		if cubes, err = f.fix.FixMetadata(cubes); err != nil {
			return nil, fmt.Errorf("cmorfix: %s: fixing metadata: %w", f.name, err)
		}
		if c.Var != nil && hash.Hash(c.Var) != def {
			return nil, fmt.Errorf("cmorfix: %s modified the CMOR definition of %s", f.name, c.Key)
		}
		c.log("metadata", f.name).Debug("applied fix")
	}
	return cubes, nil
}

// FixData runs the data phase of every fix.
func (c *Chain) FixData(cb *cube.Cube) (*cube.Cube, error) {
	var err error
	for _, f := range c.fixes {
		if cb, err = f.fix.FixData(cb); err != nil {
			return nil, fmt.Errorf("cmorfix: %s: fixing data: %w", f.name, err)
		}
		c.log("data", f.name).Debug("applied fix")
	}
	return cb, nil
}

// Process fixes the file at path, loads it with load, fixes the
// metadata of the loaded cubes and then the data of the cube of the
// chain's variable. Intermediate files are written to outputDir.
func (c *Chain) Process(path, outputDir string, load func(path string) (cube.CubeList, error)) (*cube.Cube, error) {
	p, err := c.FixFile(path, outputDir)
	if err != nil {
		return nil, err
	}
	cubes, err := load(p)
	if err != nil {
		return nil, fmt.Errorf("cmorfix: loading %s: %w", p, err)
	}
	if cubes, err = c.FixMetadata(cubes); err != nil {
		return nil, err
	}
	target, err := c.target(cubes)
	if err != nil {
		return nil, err
	}
	return c.FixData(target)
}

// target returns the cube named after the chain's variable. A single
// cube with another name is accepted with a warning.
func (c *Chain) target(cubes cube.CubeList) (*cube.Cube, error) {
	name := c.Key.ShortName
	if c.Var != nil {
		name = c.Var.ShortName
	}
	for _, cb := range cubes {
		if cb.VarName == name {
			return cb, nil
		}
	}
	if len(cubes) == 1 {
		c.log("data", "").WithField("var_name", cubes[0].VarName).
			Warnf("no cube with var_name '%s', using the only cube", name)
		return cubes[0], nil
	}
	return nil, fmt.Errorf("cmorfix: %d cubes loaded but none has var_name '%s'", len(cubes), name)
}
