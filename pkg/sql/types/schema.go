// Copyright 2023 The Databend Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package types

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// TableField is a column of a storage-level table schema. Names here
// are the declared column names.
type TableField struct {
	Name string
	Typ  *T
}

// TableSchema is the storage-level schema of a table. It is immutable
// after construction.
type TableSchema struct {
	fields []TableField
}

// NewTableSchema builds a table schema from fields. The caller must not
// mutate fields afterwards.
func NewTableSchema(fields []TableField) *TableSchema {
	return &TableSchema{fields: fields}
}

// Fields returns the schema's fields. Callers must treat the result as
// read-only.
func (s *TableSchema) Fields() []TableField { return s.fields }

// NumFields returns the number of columns.
func (s *TableSchema) NumFields() int { return len(s.fields) }

// IndexOf returns the position of the named column.
func (s *TableSchema) IndexOf(name string) (int, error) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i, nil
		}
	}
	return 0, errors.Newf("unable to find column %q in table schema", name)
}

// Field returns the i-th column.
func (s *TableSchema) Field(i int) TableField { return s.fields[i] }

// Project returns a new schema containing only the columns at the given
// positions, in the given order.
func (s *TableSchema) Project(positions []int) *TableSchema {
	fields := make([]TableField, len(positions))
	for i, pos := range positions {
		fields[i] = s.fields[pos]
	}
	return NewTableSchema(fields)
}

// DataField is a column of an in-memory row-block schema. For real
// plans the name is the stringified logical column index, which keeps
// columns with equal source names (e.g. two join sides both exposing
// "id") unambiguous.
type DataField struct {
	Name string
	Typ  *T
}

// DataSchema describes the layout of row blocks flowing between
// physical operators. It is immutable after construction; physical
// nodes recompute it on demand rather than storing it.
type DataSchema struct {
	fields []DataField
}

// NewDataSchema builds a data schema from fields. The caller must not
// mutate fields afterwards.
func NewDataSchema(fields []DataField) *DataSchema {
	return &DataSchema{fields: fields}
}

// Fields returns the schema's fields. Callers must treat the result as
// read-only.
func (s *DataSchema) Fields() []DataField { return s.fields }

// NumFields returns the number of columns.
func (s *DataSchema) NumFields() int { return len(s.fields) }

// Field returns the i-th column.
func (s *DataSchema) Field(i int) DataField { return s.fields[i] }

// IndexOf returns the position of the named field.
func (s *DataSchema) IndexOf(name string) (int, error) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i, nil
		}
	}
	return 0, errors.Newf("unable to find field %q in schema", name)
}

// FieldWithName returns the named field.
func (s *DataSchema) FieldWithName(name string) (DataField, error) {
	i, err := s.IndexOf(name)
	if err != nil {
		return DataField{}, err
	}
	return s.fields[i], nil
}

func (s *DataSchema) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.fields[i].Name)
		sb.WriteByte(':')
		sb.WriteString(s.fields[i].Typ.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
