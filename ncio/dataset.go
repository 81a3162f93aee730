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

package ncio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
)

// Dim is a NetCDF dimension. A zero Len marks the record dimension.
type Dim struct {
	Name string
	Len  int
}

// Var is the header entry of a NetCDF variable.
type Var struct {
	Name       string
	Dims       []string
	Attributes Attributes

	// src is the name of the variable in the file the header was read
	// from, so that renamed variables keep their data.
	src string
}

// Dataset is the editable header of a NetCDF file.
type Dataset struct {
	Dims       []Dim
	Attributes Attributes
	Vars       []*Var

	// NumRecs is the number of records in the file.
	NumRecs int
}

// Var returns the named variable, or nil.
func (d *Dataset) Var(name string) *Var {
	for _, v := range d.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// FirstVar returns the first of names that is a variable of d, or nil.
func (d *Dataset) FirstVar(names ...string) *Var {
	for _, n := range names {
		if v := d.Var(n); v != nil {
			return v
		}
	}
	return nil
}

func attributesOf(h *cdf.Header, v string) Attributes {
	names := h.Attributes(v)
	a := make(Attributes, len(names))
	for i, n := range names {
		a[i] = Attribute{Name: n, Value: h.GetAttribute(v, n)}
	}
	return a
}

func newDataset(h *cdf.Header, fsize int64) *Dataset {
	d := &Dataset{
		Attributes: attributesOf(h, ""),
		NumRecs:    int(h.NumRecs(fsize)),
	}
	names, lengths := h.Dimensions(""), h.Lengths("")
	for i, n := range names {
		d.Dims = append(d.Dims, Dim{Name: n, Len: lengths[i]})
	}
	for _, v := range h.Variables() {
		d.Vars = append(d.Vars, &Var{
			Name:       v,
			Dims:       h.Dimensions(v),
			Attributes: attributesOf(h, v),
			src:        v,
		})
	}
	return d
}

// ReadHeader returns the header of the NetCDF file at path.
func ReadHeader(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncio: %w", err)
	}
	defer f.Close()
	nf, err := openCDF(f)
	if err != nil {
		return nil, fmt.Errorf("ncio: reading %s: %w", path, err)
	}
	return nf.ds, nil
}

type file struct {
	*cdf.File
	ds *Dataset
}

func openCDF(f *os.File) (*file, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, err
	}
	return &file{File: cf, ds: newDataset(cf.Header, fi.Size())}, nil
}

// Rewrite writes a copy of the NetCDF file src to dst after applying
// edit to its header. The data of every variable is copied unchanged.
// src is only opened for reading and dst is written atomically: nothing
// is left at dst when edit or the copy fails.
func Rewrite(src, dst string, edit func(*Dataset) error) error {
	as, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	ad, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	if as == ad {
		return fmt.Errorf("ncio: refusing to rewrite %s in place", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	defer in.Close()
	nf, err := openCDF(in)
	if err != nil {
		return fmt.Errorf("ncio: reading %s: %w", src, err)
	}
	ds := nf.ds
	if edit != nil {
		if err := edit(ds); err != nil {
			return err
		}
	}
	h, err := ds.header(nf.Header)
	if err != nil {
		return fmt.Errorf("ncio: rewriting %s: %w", src, err)
	}

	return writeFile(dst, h, func(out *cdf.File) error {
		for _, v := range ds.Vars {
			if err := copyVar(nf.File, out, v, ds.NumRecs); err != nil {
				return fmt.Errorf("ncio: copying variable %s: %w", v.Name, err)
			}
		}
		return nil
	})
}

// Create writes a new NetCDF file at path with the header ds, filling
// each variable with the values in data keyed by variable name. The
// values of a variable are a slice holding all of its elements, in the
// type the variable is to be stored as ([]float64, []float32, []int32,
// []int16, []uint8, or a string for characters). Record dimensions are
// not supported.
func Create(path string, ds *Dataset, data map[string]interface{}) error {
	for _, dim := range ds.Dims {
		if dim.Len == 0 {
			return fmt.Errorf("ncio: creating %s: record dimension %s is not supported", path, dim.Name)
		}
	}
	vars := make([]headerVar, len(ds.Vars))
	for i, v := range ds.Vars {
		zero := zeroOf(data[v.Name])
		if zero == nil {
			return fmt.Errorf("ncio: creating %s: missing or unsupported data for variable %s", path, v.Name)
		}
		vars[i] = headerVar{name: v.Name, dims: v.Dims, zero: zero, attrs: v.Attributes}
	}
	h, err := defineHeader(ds.Dims, ds.Attributes, vars)
	if err != nil {
		return fmt.Errorf("ncio: creating %s: %w", path, err)
	}
	return writeFile(path, h, func(f *cdf.File) error {
		for _, v := range ds.Vars {
			if err := writeValues(f, v.Name, nil, nil, data[v.Name]); err != nil {
				return fmt.Errorf("ncio: writing variable %s: %w", v.Name, err)
			}
		}
		return nil
	})
}

func zeroOf(v interface{}) interface{} {
	switch v.(type) {
	case []float64:
		return []float64{}
	case []float32:
		return []float32{}
	case []int32:
		return []int32{}
	case []int16:
		return []int16{}
	case []uint8:
		return []uint8{}
	case string:
		return ""
	}
	return nil
}

// writeFile creates a NetCDF file with header h at dst and fills it
// with write. The file is written to a temporary file that replaces dst
// once complete.
func writeFile(dst string, h *cdf.Header, write func(*cdf.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	out, err := cdf.Create(tmp, h)
	if err != nil {
		return fmt.Errorf("ncio: writing %s: %w", dst, err)
	}
	if err := write(out); err != nil {
		return err
	}
	if err := cdf.UpdateNumRecs(tmp); err != nil {
		return fmt.Errorf("ncio: writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("ncio: %w", err)
	}
	ok = true
	return nil
}

// header builds a defined header from d. The data types of the
// variables are taken from orig.
func (d *Dataset) header(orig *cdf.Header) (*cdf.Header, error) {
	vars := make([]headerVar, len(d.Vars))
	for i, v := range d.Vars {
		zero := orig.ZeroValue(v.src, 0)
		if zero == nil {
			return nil, fmt.Errorf("variable %s has no data type", v.Name)
		}
		vars[i] = headerVar{name: v.Name, dims: v.Dims, zero: zero, attrs: v.Attributes}
	}
	return defineHeader(d.Dims, d.Attributes, vars)
}

type headerVar struct {
	name  string
	dims  []string
	zero  interface{}
	attrs Attributes
}

func defineHeader(dims []Dim, global Attributes, vars []headerVar) (h *cdf.Header, err error) {
	defer func() {
		// the cdf library panics on inconsistent headers.
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("%v", r)
		}
	}()
	names := make([]string, len(dims))
	lengths := make([]int, len(dims))
	for i, dim := range dims {
		names[i], lengths[i] = dim.Name, dim.Len
	}
	h = cdf.NewHeader(names, lengths)
	for _, a := range global {
		h.AddAttribute("", a.Name, a.Value)
	}
	for _, v := range vars {
		h.AddVariable(v.name, v.dims, v.zero)
		for _, a := range v.attrs {
			h.AddAttribute(v.name, a.Name, a.Value)
		}
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return nil, errs[0]
	}
	return h, nil
}

func copyVar(in, out *cdf.File, v *Var, numRecs int) error {
	lengths := in.Header.Lengths(v.src)
	if !in.Header.IsRecordVariable(v.src) {
		n := prod(lengths)
		r := in.Reader(v.src, nil, nil)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return err
		}
		return writeValues(out, v.Name, nil, nil, buf)
	}
	n := prod(lengths[1:])
	for rec := 0; rec < numRecs; rec++ {
		begin, end := recordRange(len(lengths), rec)
		r := in.Reader(v.src, begin, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return err
		}
		if err := writeValues(out, v.Name, begin, end, buf); err != nil {
			return err
		}
	}
	return nil
}

// writeValues writes data to the named variable between the corners
// begin and end. The cdf writer reports io.EOF when a write ends exactly
// at the end of a variable, which is not an error here.
func writeValues(f *cdf.File, name string, begin, end []int, data interface{}) error {
	w := f.Writer(name, begin, end)
	if w == nil {
		return fmt.Errorf("no variable %s", name)
	}
	if _, err := w.Write(data); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// recordRange returns the reader corners covering record r.
func recordRange(ndims, r int) (begin, end []int) {
	begin, end = make([]int, ndims), make([]int, ndims)
	begin[0], end[0] = r, r+1
	return begin, end
}

func prod(s []int) int {
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}
