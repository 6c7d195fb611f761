/*
 *	Copyright 2024 The dimarray Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package units defines the Unit value attached to every Variable.
//
// A Unit is a closed product of integer powers of a small set of base
// units (length, time, mass, temperature, energy and the "counts"
// pseudo-unit used by event data). Multiplication and division are
// exact and closed, so the result of any arithmetic between Variables
// has a well-defined Unit.
package units

import (
	"fmt"
	"strings"
)

// Unit is a product of integer powers of the base units. The zero
// value is Dimensionless. Units compare with ==.
type Unit struct {
	m, s, kg, k, ev, counts int8
}

// Predefined units.
var (
	Dimensionless = Unit{}
	Meters        = Unit{m: 1}
	Seconds       = Unit{s: 1}
	Kilograms     = Unit{kg: 1}
	Kelvins       = Unit{k: 1}
	ElectronVolts = Unit{ev: 1}

	// Counts is the implicit unit of event weights: histogramming or
	// the sparse-dense fused operations introduce one factor of it.
	Counts = Unit{counts: 1}
)

// Mul returns the product unit.
func (u Unit) Mul(other Unit) Unit {
	return Unit{
		m:      u.m + other.m,
		s:      u.s + other.s,
		kg:     u.kg + other.kg,
		k:      u.k + other.k,
		ev:     u.ev + other.ev,
		counts: u.counts + other.counts,
	}
}

// Div returns the quotient unit.
func (u Unit) Div(other Unit) Unit {
	return Unit{
		m:      u.m - other.m,
		s:      u.s - other.s,
		kg:     u.kg - other.kg,
		k:      u.k - other.k,
		ev:     u.ev - other.ev,
		counts: u.counts - other.counts,
	}
}

// Sqrt returns the unit whose square is u. It fails when any base
// exponent is odd (there is no unit for e.g. sqrt of meters).
func (u Unit) Sqrt() (Unit, error) {
	exps := u.exponents()
	for i, e := range exps {
		if e%2 != 0 {
			return Unit{}, fmt.Errorf("unit %s has no square root: odd exponent on %s", u, baseSymbols[i])
		}
	}
	return Unit{
		m: u.m / 2, s: u.s / 2, kg: u.kg / 2,
		k: u.k / 2, ev: u.ev / 2, counts: u.counts / 2,
	}, nil
}

// Equal reports whether the two units are identical.
func (u Unit) Equal(other Unit) bool { return u == other }

// IsDimensionless reports whether the unit carries no base-unit factor.
func (u Unit) IsDimensionless() bool { return u == Dimensionless }

var baseSymbols = [...]string{"m", "s", "kg", "K", "eV", "counts"}

func (u Unit) exponents() [6]int8 {
	return [6]int8{u.m, u.s, u.kg, u.k, u.ev, u.counts}
}

// String implements fmt.Stringer, e.g. "m^2/s", "counts", "dimensionless".
func (u Unit) String() string {
	exps := u.exponents()
	var num, den []string
	for i, e := range exps {
		switch {
		case e == 1:
			num = append(num, baseSymbols[i])
		case e > 1:
			num = append(num, fmt.Sprintf("%s^%d", baseSymbols[i], e))
		case e == -1:
			den = append(den, baseSymbols[i])
		case e < -1:
			den = append(den, fmt.Sprintf("%s^%d", baseSymbols[i], -e))
		}
	}
	if len(num) == 0 && len(den) == 0 {
		return "dimensionless"
	}
	s := strings.Join(num, "*")
	if s == "" {
		s = "1"
	}
	if len(den) > 0 {
		s += "/" + strings.Join(den, "/")
	}
	return s
}
