/*
Copyright © 2019 the cmorfix authors.
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
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash computes checksums of files and hash keys of objects.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// File returns a checksum of the contents of the named file.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	defer f.Close()
	h := fnv.New128a()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: reading %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Hash returns a hash key for the specified object. Objects that cannot
// be gob-encoded, such as nil pointers or values without exported fields,
// are hashed from their printed form.
func Hash(object interface{}) string {
	nilPtr := isNilPointer(object)
	if s, ok := object.(fmt.Stringer); ok && !nilPtr {
		return s.String()
	}
	h := fnv.New128a()

	if !nilPtr && gobEncode(h, object) == nil {
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	h.Reset()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func isNilPointer(object interface{}) bool {
	if object == nil {
		return true
	}
	v := reflect.ValueOf(object)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// gobEncode writes the gob encoding of object to w. gob panics on some
// values it cannot encode; those are returned as errors.
func gobEncode(w io.Writer, object interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hash: %v", r)
		}
	}()
	return gob.NewEncoder(w).Encode(object)
}
