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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cmor"
	"github.com/spatialmodel/cmorfix/fixes"
	"github.com/spf13/cast"
)

// Catalog returns the built-in CMOR tables extended by the table
// directories in the "tables" option of cfg.
func Catalog(cfg *viper.Viper) (*cmor.Catalog, error) {
	c, err := cmor.Default()
	if err != nil {
		return nil, err
	}
	tables, err := getStringMapString("tables", cfg)
	if err != nil {
		return nil, err
	}
	projects := make([]string, 0, len(tables))
	for p := range tables {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	for _, p := range projects {
		if err := c.ReadDir(p, os.ExpandEnv(tables[p])); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry returns the built-in fixes, with the defaults replaced by
// the alternative fixes named in the "alternatives" option of cfg.
func Registry(cfg *viper.Viper) (*cmorfix.Registry, error) {
	r, err := fixes.Default()
	if err != nil {
		return nil, err
	}
	r.Log = logrus.StandardLogger()
	var names []string
	if a := cfg.Get("alternatives"); a != nil {
		if names, err = cast.ToStringSliceE(a); err != nil {
			return nil, fmt.Errorf("cmorfix: invalid alternatives: %v", err)
		}
	}
	alternatives := make(map[string]cmorfix.Entry)
	for _, e := range fixes.Alternatives() {
		alternatives[e.Name] = e
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		e, ok := alternatives[name]
		if !ok {
			return nil, fmt.Errorf("cmorfix: unknown alternative fix %s", name)
		}
		r.Override(e.Key, e.Name, e.Factory)
		logrus.WithFields(logrus.Fields{"key": e.Key.String(), "fix": e.Name}).Info("using alternative fix")
	}
	return r, nil
}

// getStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("cmorfix: invalid value for %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("cmorfix: invalid type for variable %s: %#v", varName, i)
	}
}
