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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/fixes"
	"github.com/tealeg/xlsx"
)

var reportColumns = []string{"Project", "Dataset", "MIP", "Variable", "Fix"}

func entryRow(e cmorfix.Entry) []string {
	mip := e.Key.MIP
	if mip == "" {
		mip = "*"
	}
	return []string{e.Key.Project, e.Key.Dataset, mip, e.Key.ShortName, e.Name}
}

// List writes the fixes registered in r and the alternative fixes to w
// as a table.
func List(w io.Writer, r *cmorfix.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	write := func(row []string) {
		for i, c := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}
	write(reportColumns)
	for _, k := range r.Keys() {
		e, _ := r.Entry(k)
		write(entryRow(e))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	alt := fixes.Alternatives()
	if len(alt) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nAlternative fixes (enable with --alternatives):")
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	write(reportColumns)
	for _, e := range alt {
		write(entryRow(e))
	}
	return tw.Flush()
}

// Report writes the fixes registered in r to the sheet "fixes" and the
// alternative fixes to the sheet "alternatives" of a new Excel file at
// path.
func Report(path string, r *cmorfix.Registry) error {
	f := xlsx.NewFile()
	var entries []cmorfix.Entry
	for _, k := range r.Keys() {
		e, _ := r.Entry(k)
		entries = append(entries, e)
	}
	if err := addSheet(f, "fixes", entries); err != nil {
		return err
	}
	if err := addSheet(f, "alternatives", fixes.Alternatives()); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("cmorfix: saving report: %v", err)
	}
	return nil
}

func addSheet(f *xlsx.File, name string, entries []cmorfix.Entry) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return fmt.Errorf("cmorfix: creating report sheet %s: %v", name, err)
	}
	addRow(sheet, reportColumns)
	for _, e := range entries {
		addRow(sheet, entryRow(e))
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
