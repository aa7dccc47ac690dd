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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullability(t *testing.T) {
	require.False(t, Int64.Nullable())
	nullable := Int64.AsNullable()
	require.True(t, nullable.Nullable())
	// Singletons are never mutated.
	require.False(t, Int64.Nullable())
	require.Same(t, nullable, nullable.AsNullable())
	require.True(t, Int64.Identical(nullable.AsNonNullable()))
	require.False(t, Int64.Identical(nullable))
	require.True(t, Int64.Equivalent(nullable))
}

func TestTypeString(t *testing.T) {
	require.Equal(t, "Int64", Int64.String())
	require.Equal(t, "Nullable(String)", String.AsNullable().String())
	require.Equal(t, "Array(Int64)", MakeArray(Int64).String())
	require.Equal(t, "Nullable(Array(Int64))", MakeArray(Int64).AsNullable().String())
	require.Equal(t, "Decimal(38, 4)", MakeDecimal(38, 4).String())
}

func TestChooseHashMethod(t *testing.T) {
	testCases := []struct {
		name     string
		types    []*T
		expected *T
	}{
		{"single int", []*T{Int64}, UInt64},
		{"bool and date pack", []*T{Bool, Date}, UInt64},
		{"two ints overflow", []*T{Int64, Int64}, String},
		{"int and bool overflow", []*T{Int64, Bool}, String},
		{"string key", []*T{String}, String},
		{"nullable int", []*T{Int64.AsNullable()}, String},
		{"mixed with string", []*T{UInt8, String}, String},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			method, err := ChooseHashMethod(tc.types)
			require.NoError(t, err)
			require.Same(t, tc.expected, method)
		})
	}

	_, err := ChooseHashMethod(nil)
	require.Error(t, err)
}

func TestTableSchemaProject(t *testing.T) {
	schema := NewTableSchema([]TableField{
		{Name: "a", Typ: Int64},
		{Name: "b", Typ: String},
		{Name: "c", Typ: Bool},
	})
	projected := schema.Project([]int{2, 0})
	require.Equal(t, 2, projected.NumFields())
	require.Equal(t, "c", projected.Field(0).Name)
	require.Equal(t, "a", projected.Field(1).Name)

	pos, err := schema.IndexOf("b")
	require.NoError(t, err)
	require.Equal(t, 1, pos)
	_, err = schema.IndexOf("missing")
	require.Error(t, err)
}

func TestDataSchemaLookup(t *testing.T) {
	schema := NewDataSchema([]DataField{
		{Name: "0", Typ: String},
		{Name: "1", Typ: Int64},
	})
	require.Equal(t, "[0:String, 1:Int64]", schema.String())

	field, err := schema.FieldWithName("1")
	require.NoError(t, err)
	require.Same(t, Int64, field.Typ)

	_, err = schema.FieldWithName("7")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unable to find field")
}
