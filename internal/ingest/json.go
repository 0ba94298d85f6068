package ingest

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"salespipe/internal/dataset"
)

// LoadJSON reads a JSON document into a table. See ParseJSON for the
// accepted layouts.
func (l *Loader) LoadJSON(name, path string) (*dataset.Table, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(name, data)
}

// ParseJSON accepts
//
//   - an array of objects (one object per row),
//   - an object wrapping a single array of objects, e.g. {"products": [...]},
//   - an object of column arrays, {"Product": [...], "Category": [...]},
//   - an object of column objects keyed by row label, {"Product": {"0": ...}}.
//
// Nested objects inside records are flattened with "." joined keys. Columns
// keep the order in which their keys were first seen.
func ParseJSON(name string, data []byte) (*dataset.Table, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}

	root := gjson.ParseBytes(data)
	switch {
	case root.IsArray():
		return recordsTable(name, root)
	case root.IsObject():
		return objectTable(name, root)
	default:
		return nil, fmt.Errorf("expected a JSON array or object, got %s", root.Type)
	}
}

func objectTable(name string, root gjson.Result) (*dataset.Table, error) {
	var keys []string
	var values []gjson.Result
	allArrays, allObjects := true, true

	root.ForEach(func(k, v gjson.Result) bool {
		keys = append(keys, k.String())
		values = append(values, v)
		allArrays = allArrays && v.IsArray()
		allObjects = allObjects && v.IsObject()
		return true
	})

	if len(keys) == 0 {
		return dataset.New(name, nil), nil
	}

	if len(keys) == 1 && allArrays && isRecordArray(values[0]) {
		return recordsTable(name, values[0])
	}

	switch {
	case allArrays:
		return columnArraysTable(name, keys, values)
	case allObjects:
		return columnObjectsTable(name, keys, values)
	default:
		return nil, fmt.Errorf("unsupported JSON layout: object values must all be arrays or all be objects")
	}
}

func isRecordArray(v gjson.Result) bool {
	items := v.Array()
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.IsObject() {
			return false
		}
	}
	return true
}

func recordsTable(name string, arr gjson.Result) (*dataset.Table, error) {
	var columns []string
	seen := map[string]int{}
	var records []map[string]dataset.Value

	for i, item := range arr.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		rec := map[string]dataset.Value{}
		flatten("", item, func(key string, v dataset.Value) {
			if _, ok := seen[key]; !ok {
				seen[key] = len(columns)
				columns = append(columns, key)
			}
			rec[key] = v
		})
		records = append(records, rec)
	}

	table := dataset.New(name, columns)
	for _, rec := range records {
		row := make(dataset.Row, len(columns))
		for k, v := range rec {
			row[seen[k]] = v
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func columnArraysTable(name string, keys []string, values []gjson.Result) (*dataset.Table, error) {
	n := 0
	cols := make([][]gjson.Result, len(values))
	for i, v := range values {
		cols[i] = v.Array()
		if len(cols[i]) > n {
			n = len(cols[i])
		}
	}

	table := dataset.New(name, keys)
	for r := 0; r < n; r++ {
		row := make(dataset.Row, len(keys))
		for c := range cols {
			if r < len(cols[c]) {
				row[c] = scalar(cols[c][r])
			}
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func columnObjectsTable(name string, keys []string, values []gjson.Result) (*dataset.Table, error) {
	var labels []string
	pos := map[string]int{}
	for _, v := range values {
		v.ForEach(func(label, _ gjson.Result) bool {
			if _, ok := pos[label.String()]; !ok {
				pos[label.String()] = len(labels)
				labels = append(labels, label.String())
			}
			return true
		})
	}

	table := dataset.New(name, keys)
	rows := make([]dataset.Row, len(labels))
	for i := range rows {
		rows[i] = make(dataset.Row, len(keys))
	}
	for c, v := range values {
		v.ForEach(func(label, cell gjson.Result) bool {
			rows[pos[label.String()]][c] = scalar(cell)
			return true
		})
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// flatten walks obj and emits one value per leaf key.
func flatten(prefix string, obj gjson.Result, emit func(string, dataset.Value)) {
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix != "" {
			key = prefix + "." + key
		}
		if v.IsObject() {
			flatten(key, v, emit)
		} else {
			emit(key, scalar(v))
		}
		return true
	})
}

// scalar converts a JSON value into a cell. Arrays and objects keep their raw text.
func scalar(v gjson.Result) dataset.Value {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		return v.Num
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}
