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
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed tables
var builtin embed.FS

// CustomTable is the name of the table holding custom variables.
const CustomTable = "custom"

// aliases maps projects without tables of their own to the project
// whose tables they use.
var aliases = map[string]string{
	"native6":  "cmip6",
	"obs4mips": "cmip6",
	"obs":      "cmip5",
}

// Catalog holds the CMOR tables of several projects.
type Catalog struct {
	projects map[string]*Project
	custom   *Project
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		projects: make(map[string]*Project),
		custom:   newProject(CustomTable),
	}
}

// Default returns a catalog of the built-in CMIP5, CMIP6 and custom
// tables.
func Default() (*Catalog, error) {
	c := NewCatalog()
	for _, p := range []string{"CMIP5", "CMIP6"} {
		if err := c.Read(p, builtin, path.Join("tables", strings.ToLower(p))); err != nil {
			return nil, err
		}
	}
	if err := c.Read(CustomTable, builtin, "tables/custom"); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadDir adds the tables in directory dir to project.
func (c *Catalog) ReadDir(project, dir string) error {
	return c.Read(project, os.DirFS(dir), ".")
}

// Read adds the tables in directory dir of fsys to project. Files
// ending in ".json" are CMIP6 tables, files ending in ".toml" are custom
// tables, and other files are CMIP5 text tables. The project name
// "custom" adds custom tables only.
func (c *Catalog) Read(project string, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("cmor: reading tables for %s: %w", project, err)
	}
	key := strings.ToLower(project)
	p, ok := c.projects[key]
	if !ok && key != CustomTable {
		p = newProject(project)
		c.projects[key] = p
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := c.readFile(p, fsys, path.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	if p != nil {
		p.resolve()
	}
	return nil
}

func (c *Catalog) readFile(p *Project, fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("cmor: %w", err)
	}
	defer f.Close()
	base := path.Base(name)
	switch path.Ext(base) {
	case ".toml":
		err = readCustom(c.custom, CustomTable, f)
	case ".json":
		if p == nil {
			return fmt.Errorf("cmor: CMIP6 table %s in custom tables", name)
		}
		err = readCMIP6(p, f)
	default:
		if p == nil {
			return fmt.Errorf("cmor: CMIP5 table %s in custom tables", name)
		}
		err = readCMIP5(p, f)
	}
	if err != nil {
		return fmt.Errorf("%w (%s)", err, name)
	}
	return nil
}

// Project returns the tables of the named project. Project names are
// case insensitive.
func (c *Catalog) Project(name string) (*Project, error) {
	key := strings.ToLower(name)
	if p, ok := c.projects[key]; ok {
		return p, nil
	}
	if a, ok := aliases[key]; ok {
		if p, ok := c.projects[a]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("cmor: no tables for project %s", name)
}

// Projects returns the names of the projects in the catalog.
func (c *Catalog) Projects() []string {
	var o []string
	for _, p := range c.projects {
		o = append(o, p.Name)
	}
	sort.Strings(o)
	return o
}

// Variable returns the definition of shortName in table of project.
// Variables missing from the project's tables are looked up in the
// custom tables, with their coordinates resolved against the project.
func (c *Catalog) Variable(project, table, shortName string) (*VariableInfo, error) {
	p, err := c.Project(project)
	if err != nil {
		return nil, err
	}
	v, err := p.Variable(table, shortName)
	if err == nil {
		return v.Copy(), nil
	}
	cv, cerr := c.custom.Variable(CustomTable, shortName)
	if cerr != nil {
		return nil, err
	}
	o := cv.Copy()
	o.Table = table
	if t, ok := p.Tables[table]; ok && o.Frequency == "" {
		o.Frequency = t.Frequency
	}
	o.Coordinates = nil
	for _, d := range o.Dimensions {
		if ci, ok := p.Coordinates[d]; ok {
			o.Coordinates = append(o.Coordinates, ci)
		}
	}
	return o, nil
}

// Coordinate returns the named coordinate definition of project.
func (c *Catalog) Coordinate(project, name string) (*CoordinateInfo, error) {
	p, err := c.Project(project)
	if err != nil {
		return nil, err
	}
	ci, ok := p.Coordinates[name]
	if !ok {
		return nil, fmt.Errorf("cmor: project %s has no coordinate %s", project, name)
	}
	return ci, nil
}
