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
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cloud"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/cube"
	"github.com/spatialmodel/cmorfix/ncio"
)

// Fix applies the fixes reg holds for key to each of the input files and
// saves the fixed variable of each in outputDir under the input's file
// name. It returns the paths of the saved files. Inputs and outputDir
// can be blob storage locations.
func Fix(ctx context.Context, key cmorfix.Key, inputs []string, outputDir string, catalog *cmor.Catalog, reg *cmorfix.Registry) ([]string, error) {
	log := logrus.WithFields(logrus.Fields{
		"project":  key.Project,
		"dataset":  key.Dataset,
		"mip":      key.MIP,
		"variable": key.ShortName,
	})
	inputs, err := expandInputs(ctx, inputs)
	if err != nil {
		return nil, err
	}
	v, err := catalog.Variable(key.Project, key.MIP, key.ShortName)
	if err != nil {
		log.WithError(err).Warn("no CMOR definition found, fixes run without one")
		v = nil
	}
	chain := reg.Resolve(key, v)
	log.WithField("fixes", strings.Join(chain.Names(), ", ")).Debug("resolved fixes")

	work, err := os.MkdirTemp("", "cmorfix")
	if err != nil {
		return nil, fmt.Errorf("cmorfix: creating working directory: %v", err)
	}
	defer os.RemoveAll(work)

	var up cloud.Uploader
	var outputs []string
	for i, in := range inputs {
		local, err := cloud.Download(ctx, in, filepath.Join(work, fmt.Sprintf("input%d", i)))
		if err != nil {
			return nil, err
		}
		dst := outputPath(outputDir, cloud.Base(in))
		if same(dst, local) {
			return nil, fmt.Errorf("cmorfix: output file %s would replace its input", dst)
		}
		c, err := chain.Process(local, filepath.Join(work, "fixed_files"), ncio.Load)
		if err != nil {
			return nil, fmt.Errorf("cmorfix: fixing %s: %w", in, err)
		}
		p, err := up.Path(dst)
		if err != nil {
			return nil, err
		}
		if !cloud.IsBlob(dst) {
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				return nil, fmt.Errorf("cmorfix: creating output directory: %v", err)
			}
		}
		if err := ncio.Save(cube.CubeList{c}, p); err != nil {
			return nil, err
		}
		log.WithField("file", dst).Info("saved fixed file")
		outputs = append(outputs, dst)
	}
	if err := up.Flush(ctx); err != nil {
		return nil, err
	}
	return outputs, nil
}

// expandInputs replaces the directories among inputs by the files
// inside them and expands environment variables and glob patterns
// in local paths.
func expandInputs(ctx context.Context, inputs []string) ([]string, error) {
	var o []string
	for _, in := range inputs {
		switch {
		case cloud.IsBlob(in) && isDir(in):
			files, err := cloud.List(ctx, in)
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("cmorfix: no input files in %s", in)
			}
			o = append(o, files...)
		case cloud.IsRemote(in):
			o = append(o, in)
		default:
			in = os.ExpandEnv(in)
			if isDir(in) {
				in = filepath.Join(in, "*")
			}
			files, err := filepath.Glob(in)
			if err != nil {
				return nil, fmt.Errorf("cmorfix: %v", err)
			}
			files = regularFiles(files)
			if len(files) == 0 {
				return nil, fmt.Errorf("cmorfix: no input files match %s", in)
			}
			o = append(o, files...)
		}
	}
	return o, nil
}

func regularFiles(paths []string) []string {
	var o []string
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			o = append(o, p)
		}
	}
	sort.Strings(o)
	return o
}

// outputPath returns the path of file name in dir.
func outputPath(dir, name string) string {
	if cloud.IsBlob(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// same returns whether the local paths a and b name the same file.
func same(a, b string) bool {
	if cloud.IsBlob(a) {
		return false
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
