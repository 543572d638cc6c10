// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inspect prints the exported surface of a value for debugging.
// It is not used on the production path.
package inspect

import (
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const gridColumns = 4

// Fields returns the exported field names of v's struct type, sorted.
// Pointers are followed; non-struct values have no fields.
func Fields(v any) []string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var names []string
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Methods returns the exported method names in v's method set, sorted.
func Methods(v any) []string {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		if m := t.Method(i); m.IsExported() {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Describe writes v's type followed by grids of its public fields and
// methods, four names per row. Empty sections are omitted.
func Describe(w io.Writer, v any) error {
	fmt.Fprintf(w, "%T\n", v)
	for _, sec := range []struct {
		title string
		names []string
	}{
		{"Public attributes:", Fields(v)},
		{"Public methods:", Methods(v)},
	} {
		if len(sec.names) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", sec.title)
		if err := renderGrid(w, sec.names); err != nil {
			return err
		}
	}
	return nil
}

func renderGrid(w io.Writer, names []string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRendition(tw.Rendition{
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenRows: tw.On,
				},
			},
		}),
	)
	if err := table.Bulk(chunk(names, gridColumns)); err != nil {
		return err
	}
	return table.Render()
}

// chunk splits names into rows of n, padding the last row.
func chunk(names []string, n int) [][]string {
	var rows [][]string
	for i := 0; i < len(names); i += n {
		row := make([]string, n)
		copy(row, names[i:min(i+n, len(names))])
		rows = append(rows, row)
	}
	return rows
}
