package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// fieldIndexCache maps struct types to their column-to-field index tables so
// tag reflection happens once per type.
var fieldIndexCache sync.Map // reflect.Type -> map[string]int

// columnFields returns the column-name-to-field-index table for a struct
// type. Column names come from the `db` tag, falling back to the lowercased
// field name; fields tagged `db:"-"` and unexported fields are skipped.
func columnFields(t reflect.Type) map[string]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string]int)
	}
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		m[name] = i
	}
	fieldIndexCache.Store(t, m)
	return m
}

// destinations builds the Scan target list for one row: matched columns
// point into the struct, unmatched ones land in a throwaway RawBytes.
func destinations(columns []string, fields map[string]int, v reflect.Value) []any {
	dests := make([]any, len(columns))
	for i, col := range columns {
		if idx, ok := fields[col]; ok {
			dests[i] = v.Field(idx).Addr().Interface()
		} else {
			dests[i] = new(sql.RawBytes)
		}
	}
	return dests
}

// scanRow scans the next row into a struct pointer. Returns ErrNoRows when
// the result set is empty.
func scanRow(rows *sql.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("scan destination must be a non-nil struct pointer, got %T", dest)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNoRows
	}
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	elem := v.Elem()
	fields := columnFields(elem.Type())
	if err := rows.Scan(destinations(columns, fields, elem)...); err != nil {
		return err
	}
	return rows.Err()
}

// scanRows scans every row into a pointer to a slice of structs or struct
// pointers.
func scanRows(rows *sql.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("scan destination must be a non-nil slice pointer, got %T", dest)
	}
	slice := v.Elem()
	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	structType := elemType
	if isPtr {
		structType = elemType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("scan destination element must be a struct, got %s", elemType)
	}

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	fields := columnFields(structType)

	for rows.Next() {
		item := reflect.New(structType).Elem()
		if err := rows.Scan(destinations(columns, fields, item)...); err != nil {
			return err
		}
		if isPtr {
			slice.Set(reflect.Append(slice, item.Addr()))
		} else {
			slice.Set(reflect.Append(slice, item))
		}
	}
	return rows.Err()
}

// scanMapRow scans the next row into a NullStringMap. Returns ErrNoRows when
// the result set is empty.
func scanMapRow(rows *sql.Rows, dest *NullStringMap) error {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNoRows
	}
	m, err := scanCurrentMap(rows)
	if err != nil {
		return err
	}
	*dest = m
	return rows.Err()
}

// scanMapRows scans every row into a slice of NullStringMaps.
func scanMapRows(rows *sql.Rows, dest *[]NullStringMap) error {
	for rows.Next() {
		m, err := scanCurrentMap(rows)
		if err != nil {
			return err
		}
		*dest = append(*dest, m)
	}
	return rows.Err()
}

func scanCurrentMap(rows *sql.Rows) (NullStringMap, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]sql.NullString, len(columns))
	dests := make([]any, len(columns))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}
	m := make(NullStringMap, len(columns))
	for i, col := range columns {
		m[col] = values[i]
	}
	return m, nil
}
