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

// Package types defines the data type family used by the planner, the
// schema containers bound to it, and the group-key hash method
// selection used when redistributing aggregated rows.
package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Family classifies a type. The set is closed; exhaustive switches over
// it are the intended dispatch mechanism.
type Family int

const (
	// UnknownFamily is an invalid zero value.
	UnknownFamily Family = iota
	BoolFamily
	UInt8Family
	Int64Family
	UInt64Family
	Float64Family
	DecimalFamily
	StringFamily
	TimestampFamily
	DateFamily
	ArrayFamily
	TupleFamily
	VariantFamily
	// NullFamily is the type of an untyped NULL literal.
	NullFamily
)

func (f Family) String() string {
	switch f {
	case BoolFamily:
		return "Boolean"
	case UInt8Family:
		return "UInt8"
	case Int64Family:
		return "Int64"
	case UInt64Family:
		return "UInt64"
	case Float64Family:
		return "Float64"
	case DecimalFamily:
		return "Decimal"
	case StringFamily:
		return "String"
	case TimestampFamily:
		return "Timestamp"
	case DateFamily:
		return "Date"
	case ArrayFamily:
		return "Array"
	case TupleFamily:
		return "Tuple"
	case VariantFamily:
		return "Variant"
	case NullFamily:
		return "Null"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// T is an immutable data type. The exported singletons below cover the
// scalar types; Array and Decimal types are built with the Make
// constructors. A nil *T is invalid.
type T struct {
	family   Family
	nullable bool
	elem     *T // set for ArrayFamily
	// precision/scale are meaningful for DecimalFamily only.
	precision int32
	scale     int32
}

// Scalar singletons, all non-nullable.
var (
	Bool      = &T{family: BoolFamily}
	UInt8     = &T{family: UInt8Family}
	Int64     = &T{family: Int64Family}
	UInt64    = &T{family: UInt64Family}
	Float64   = &T{family: Float64Family}
	String    = &T{family: StringFamily}
	Timestamp = &T{family: TimestampFamily}
	Date      = &T{family: DateFamily}
	Variant   = &T{family: VariantFamily}
	Null      = &T{family: NullFamily, nullable: true}
)

// MakeDecimal returns a decimal type with the given precision and
// scale.
func MakeDecimal(precision, scale int32) *T {
	return &T{family: DecimalFamily, precision: precision, scale: scale}
}

// MakeArray returns an array type over elem.
func MakeArray(elem *T) *T {
	return &T{family: ArrayFamily, elem: elem}
}

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// Nullable reports whether the type admits NULL.
func (t *T) Nullable() bool { return t.nullable }

// Elem returns the element type of an array; nil for other families.
func (t *T) Elem() *T { return t.elem }

// Precision returns the decimal precision.
func (t *T) Precision() int32 { return t.precision }

// Scale returns the decimal scale.
func (t *T) Scale() int32 { return t.scale }

// AsNullable returns the nullable version of t.
func (t *T) AsNullable() *T {
	if t.nullable {
		return t
	}
	u := *t
	u.nullable = true
	return &u
}

// AsNonNullable returns the non-nullable version of t.
func (t *T) AsNonNullable() *T {
	if !t.nullable {
		return t
	}
	u := *t
	u.nullable = false
	return &u
}

// Identical reports whether two types match exactly, including
// nullability.
func (t *T) Identical(other *T) bool {
	if t.family != other.family || t.nullable != other.nullable {
		return false
	}
	switch t.family {
	case ArrayFamily:
		return t.elem.Identical(other.elem)
	case DecimalFamily:
		return t.precision == other.precision && t.scale == other.scale
	}
	return true
}

// Equivalent reports whether two types match up to nullability.
func (t *T) Equivalent(other *T) bool {
	return t.AsNonNullable().Identical(other.AsNonNullable())
}

func (t *T) String() string {
	var s string
	switch t.family {
	case ArrayFamily:
		s = fmt.Sprintf("Array(%s)", t.elem)
	case DecimalFamily:
		s = fmt.Sprintf("Decimal(%d, %d)", t.precision, t.scale)
	default:
		s = t.family.String()
	}
	if t.nullable {
		return fmt.Sprintf("Nullable(%s)", s)
	}
	return s
}

// fixedWidth returns the serialized key width in bytes of a type usable
// in a fixed-size group key, or 0 if the type has no fixed width.
func fixedWidth(t *T) int {
	switch t.family {
	case BoolFamily, UInt8Family:
		return 1
	case DateFamily:
		return 4
	case Int64Family, UInt64Family, Float64Family, TimestampFamily:
		return 8
	default:
		return 0
	}
}

// ChooseHashMethod picks the representation of the composite group key
// built from the given group-by column types: if every column has a
// fixed width and the widths pack into eight bytes the key is a UInt64,
// otherwise the columns are serialized into a String key. The returned
// type is the declared type of the synthetic group-key column.
func ChooseHashMethod(groupTypes []*T) (*T, error) {
	if len(groupTypes) == 0 {
		return nil, errors.New("cannot choose hash method for empty group key")
	}
	width := 0
	for _, t := range groupTypes {
		w := fixedWidth(t)
		if w == 0 || t.nullable {
			return String, nil
		}
		width += w
	}
	if width <= 8 {
		return UInt64, nil
	}
	return String, nil
}
