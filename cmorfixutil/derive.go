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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cloud"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/derive"
	"github.com/spatialmodel/cmorfix/ncio"
)

// Derive computes the derived variable name of project from the
// variables in the input files and saves it to output.
func Derive(ctx context.Context, name, project string, inputs []string, output string) error {
	d, err := derive.Get(name)
	if err != nil {
		return err
	}
	inputs, err = expandInputs(ctx, inputs)
	if err != nil {
		return err
	}
	work, err := os.MkdirTemp("", "cmorfix")
	if err != nil {
		return fmt.Errorf("cmorfix: creating working directory: %v", err)
	}
	defer os.RemoveAll(work)

	var cubes cube.CubeList
	for i, in := range inputs {
		local, err := cloud.Download(ctx, in, filepath.Join(work, fmt.Sprintf("input%d", i)))
		if err != nil {
			return err
		}
		cl, err := ncio.Load(local)
		if err != nil {
			return err
		}
		cubes = append(cubes, cl...)
	}
	for _, r := range d.Required(project) {
		if !r.Optional && len(cubes.ByVarName(r.ShortName)) == 0 {
			return fmt.Errorf("cmorfix: deriving %s: missing input variable %s", name, r.ShortName)
		}
	}
	c, err := d.Calculate(cubes)
	if err != nil {
		return err
	}

	var up cloud.Uploader
	p, err := up.Path(output)
	if err != nil {
		return err
	}
	if err := ncio.Save(cube.CubeList{c}, p); err != nil {
		return err
	}
	if err := up.Flush(ctx); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"variable": name, "file": output}).Info("saved derived variable")
	return nil
}
