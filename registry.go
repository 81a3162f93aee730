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
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix/cmor"
)

// AllVars is the short name of fixes that apply to every variable of
// a dataset.
const AllVars = "allvars"

// Key identifies the data a fix applies to. An empty MIP in a
// registered key matches every MIP table.
type Key struct {
	Project   string
	Dataset   string
	MIP       string
	ShortName string
}

// Normalize returns k in the form used for lookups: lower case, with
// "-" in dataset names replaced by "_".
func (k Key) Normalize() Key {
	return Key{
		Project:   strings.ToLower(k.Project),
		Dataset:   strings.Replace(strings.ToLower(k.Dataset), "-", "_", -1),
		MIP:       strings.ToLower(k.MIP),
		ShortName: strings.ToLower(k.ShortName),
	}
}

func (k Key) String() string {
	mip := k.MIP
	if mip == "" {
		mip = "*"
	}
	return strings.Join([]string{k.Project, k.Dataset, mip, k.ShortName}, "/")
}

func (k Key) less(o Key) bool {
	switch {
	case k.Project != o.Project:
		return k.Project < o.Project
	case k.Dataset != o.Dataset:
		return k.Dataset < o.Dataset
	case k.ShortName != o.ShortName:
		return k.ShortName < o.ShortName
	}
	return k.MIP < o.MIP
}

// Entry is a registered fix.
type Entry struct {
	// Key is the normalized key the fix is registered under.
	Key Key

	// Name describes the fix, e.g. "cmip5.CanESM2Cl".
	Name    string
	Factory Factory
}

// DuplicateError is returned when a fix is registered under a key that
// already has one.
type DuplicateError struct {
	Key      Key
	Name     string
	Existing string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("cmorfix: cannot register %s for %s: %s is already registered", e.Name, e.Key, e.Existing)
}

// Registry maps keys to fixes. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	entries map[Key]*Entry

	// Log is passed to the chains the registry resolves.
	Log logrus.FieldLogger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Key]*Entry),
		Log:     logrus.StandardLogger(),
	}
}

// Register adds fix f, described by name, for key k. It returns a
// *DuplicateError if a fix is already registered for k.
func (r *Registry) Register(k Key, name string, f Factory) error {
	k = k.Normalize()
	if e, ok := r.entries[k]; ok {
		return &DuplicateError{Key: k, Name: name, Existing: e.Name}
	}
	r.entries[k] = &Entry{Key: k, Name: name, Factory: f}
	return nil
}

// Override registers f for k, replacing any fix already registered.
func (r *Registry) Override(k Key, name string, f Factory) {
	k = k.Normalize()
	r.entries[k] = &Entry{Key: k, Name: name, Factory: f}
}

// Keys returns the keys of all registered fixes in sorted order.
func (r *Registry) Keys() []Key {
	o := make([]Key, 0, len(r.entries))
	for k := range r.entries {
		o = append(o, k)
	}
	sort.Slice(o, func(i, j int) bool { return o[i].less(o[j]) })
	return o
}

// Entry returns the fix registered for exactly k.
func (r *Registry) Entry(k Key) (Entry, bool) {
	e, ok := r.entries[k.Normalize()]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns the fixes that apply to k in the order they are
// applied:
//
//  1. the dataset's all-variables fix registered for any MIP table;
//  2. the all-variables fix registered for k.MIP;
//  3. the variable's fix registered for any MIP table;
//  4. the variable's fix registered for k.MIP.
//
// This departs from ESMValCore, which applies the variable's fixes
// first, then the MIP fixes, then the all-variables fixes. Dataset-wide
// fixes run first here so that variable fixes see renamed cubes with
// CMOR coordinates. Fixes that must see the output of variable fixes
// belong in the data phase: the native6 ERA5 all-variables fix converts
// to CMOR units and casts to float32 in FixData, after the variable
// fixes have corrected units during FixMetadata.
func (r *Registry) Entries(k Key) []Entry {
	k = k.Normalize()
	var o []Entry
	add := func(shortName, mip string) {
		if e, ok := r.entries[Key{Project: k.Project, Dataset: k.Dataset, MIP: mip, ShortName: shortName}]; ok {
			o = append(o, *e)
		}
	}
	names := []string{AllVars}
	if k.ShortName != AllVars {
		names = append(names, k.ShortName)
	}
	for _, name := range names {
		add(name, "")
		if k.MIP != "" {
			add(name, k.MIP)
		}
	}
	return o
}

// Resolve returns the chain of fixes for the data identified by k,
// whose CMOR definition is v. v may be nil. Keys without any registered
// fix resolve to an empty chain, which leaves its input unchanged.
func (r *Registry) Resolve(k Key, v *cmor.VariableInfo) *Chain {
	c := &Chain{Key: k, Var: v, Log: r.Log}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	for _, e := range r.Entries(k) {
		c.fixes = append(c.fixes, namedFix{name: e.Name, fix: e.Factory(v)})
	}
	return c
}
