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

package tree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"github.com/xiaozhiyan/databend/pkg/sql/types"
)

// Datum is an evaluated constant value.
type Datum interface {
	Expr
	// datum is a marker to keep the set closed.
	datum()
}

// DBool is the boolean datum.
type DBool bool

// Pre-allocated values for DBool.
var (
	DBoolTrue  = MakeDBool(true)
	DBoolFalse = MakeDBool(false)
)

// MakeDBool converts a bool to the shared DBool instance.
func MakeDBool(b DBool) *DBool { return &b }

// DInt is the int64 datum.
type DInt int64

// NewDInt allocates a DInt.
func NewDInt(d DInt) *DInt { return &d }

// DFloat is the float64 datum.
type DFloat float64

// NewDFloat allocates a DFloat.
func NewDFloat(d DFloat) *DFloat { return &d }

// DString is the string datum.
type DString string

// NewDString allocates a DString.
func NewDString(d DString) *DString { return &d }

// DDecimal is the arbitrary-precision decimal datum.
type DDecimal struct {
	apd.Decimal
}

// ParseDDecimal parses a decimal from its string form.
func ParseDDecimal(s string) (*DDecimal, error) {
	d := &DDecimal{}
	if _, _, err := d.SetString(s); err != nil {
		return nil, errors.Wrapf(err, "could not parse %q as decimal", s)
	}
	return d, nil
}

// DTimestamp is the timestamp datum.
type DTimestamp struct {
	time.Time
}

// dNull is the NULL datum singleton.
type dNull struct{}

// DNull is the NULL datum.
var DNull Datum = dNull{}

func (*DBool) datum()      {}
func (*DInt) datum()       {}
func (*DFloat) datum()     {}
func (*DString) datum()    {}
func (*DDecimal) datum()   {}
func (*DTimestamp) datum() {}
func (dNull) datum()       {}

// ResolvedType implements Expr.
func (*DBool) ResolvedType() *types.T { return types.Bool }

// ResolvedType implements Expr.
func (*DInt) ResolvedType() *types.T { return types.Int64 }

// ResolvedType implements Expr.
func (*DFloat) ResolvedType() *types.T { return types.Float64 }

// ResolvedType implements Expr.
func (*DString) ResolvedType() *types.T { return types.String }

// ResolvedType implements Expr.
func (d *DDecimal) ResolvedType() *types.T {
	return types.MakeDecimal(int32(d.NumDigits()), -d.Exponent)
}

// ResolvedType implements Expr.
func (*DTimestamp) ResolvedType() *types.T { return types.Timestamp }

// ResolvedType implements Expr.
func (dNull) ResolvedType() *types.T { return types.Null }

func (d *DBool) String() string      { return strconv.FormatBool(bool(*d)) }
func (d *DInt) String() string       { return strconv.FormatInt(int64(*d), 10) }
func (d *DFloat) String() string     { return strconv.FormatFloat(float64(*d), 'g', -1, 64) }
func (d *DString) String() string    { return strconv.Quote(string(*d)) }
func (d *DDecimal) String() string   { return d.Decimal.String() }
func (d *DTimestamp) String() string { return fmt.Sprintf("'%s'", d.Time.Format(time.RFC3339Nano)) }
func (dNull) String() string         { return "NULL" }

// CompareDatums compares two non-NULL datums of the same family,
// returning -1, 0 or +1. Mismatched families are a type-checking bug.
func CompareDatums(a, b Datum) (int, error) {
	switch x := a.(type) {
	case *DBool:
		y, ok := b.(*DBool)
		if !ok {
			break
		}
		switch {
		case bool(*x) == bool(*y):
			return 0, nil
		case bool(*y):
			return -1, nil
		default:
			return 1, nil
		}
	case *DInt:
		y, ok := b.(*DInt)
		if !ok {
			break
		}
		switch {
		case *x < *y:
			return -1, nil
		case *x > *y:
			return 1, nil
		default:
			return 0, nil
		}
	case *DFloat:
		y, ok := b.(*DFloat)
		if !ok {
			break
		}
		switch {
		case *x < *y:
			return -1, nil
		case *x > *y:
			return 1, nil
		default:
			return 0, nil
		}
	case *DString:
		y, ok := b.(*DString)
		if !ok {
			break
		}
		switch {
		case *x < *y:
			return -1, nil
		case *x > *y:
			return 1, nil
		default:
			return 0, nil
		}
	case *DDecimal:
		y, ok := b.(*DDecimal)
		if !ok {
			break
		}
		return x.Cmp(&y.Decimal), nil
	case *DTimestamp:
		y, ok := b.(*DTimestamp)
		if !ok {
			break
		}
		switch {
		case x.Before(y.Time):
			return -1, nil
		case x.After(y.Time):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, errors.AssertionFailedf("unsupported comparison: %T vs %T", a, b)
}
