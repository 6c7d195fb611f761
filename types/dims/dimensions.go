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

package dims

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// SparseExtent is the sentinel extent marking the last axis of a
// Dimensions as sparse (ragged, per-row).
const SparseExtent = -1

// Dimensions is an ordered association of dimension labels to extents.
// Each label appears at most once; the first label is the outermost
// axis. The zero value is a valid empty (scalar) Dimensions.
//
// Use Make (or MustMake) to construct a validated value. Modifying
// operations (Add, Resize, Erase, Relabel) return a new value.
type Dimensions struct {
	labels  []Dim
	extents []int
}

// Make builds a Dimensions from parallel label and extent slices.
// Labels must be valid and unique; extents non-negative, except the
// last may be SparseExtent.
func Make(labels []Dim, extents []int) (Dimensions, error) {
	if len(labels) != len(extents) {
		return Dimensions{}, errors.Errorf("dims.Make: %d labels but %d extents", len(labels), len(extents))
	}
	d := Dimensions{labels: slices.Clone(labels), extents: slices.Clone(extents)}
	for i, label := range d.labels {
		if !label.Valid() {
			return Dimensions{}, errors.Errorf("dims.Make: label %d is not a valid dimension", i)
		}
		if slices.Index(d.labels, label) != i {
			return Dimensions{}, errors.Errorf("dims.Make: duplicate dimension %s", label)
		}
		if d.extents[i] < 0 && !(d.extents[i] == SparseExtent && i == len(d.labels)-1) {
			return Dimensions{}, errors.Errorf("dims.Make: negative extent %d for dimension %s", d.extents[i], label)
		}
	}
	return d, nil
}

// MustMake is like Make but panics on invalid input.
func MustMake(labels []Dim, extents []int) Dimensions {
	d, err := Make(labels, extents)
	if err != nil {
		exceptions.Panicf("%v", err)
	}
	return d
}

// Of is shorthand for MustMake of alternating (label, extent) pairs:
// dims.Of(dims.Y, 2, dims.X, 3).
func Of(pairs ...any) Dimensions {
	if len(pairs)%2 != 0 {
		exceptions.Panicf("dims.Of: expected (label, extent) pairs, got %d arguments", len(pairs))
	}
	labels := make([]Dim, 0, len(pairs)/2)
	extents := make([]int, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		label, ok := pairs[i].(Dim)
		if !ok {
			exceptions.Panicf("dims.Of: argument %d is not a Dim", i)
		}
		extent, ok := pairs[i+1].(int)
		if !ok {
			exceptions.Panicf("dims.Of: argument %d is not an int extent", i+1)
		}
		labels = append(labels, label)
		extents = append(extents, extent)
	}
	return MustMake(labels, extents)
}

// Rank returns the number of axes, the sparse axis included.
func (d Dimensions) Rank() int { return len(d.labels) }

// Empty reports whether there are no axes (a scalar layout).
func (d Dimensions) Empty() bool { return len(d.labels) == 0 }

// Labels returns the axis labels, outermost first. The returned slice
// is owned by d; don't modify it.
func (d Dimensions) Labels() []Dim { return d.labels }

// Extents returns the axis extents. The returned slice is owned by d.
func (d Dimensions) Extents() []int { return d.extents }

// Sparse reports whether the last axis is sparse.
func (d Dimensions) Sparse() bool {
	return len(d.extents) > 0 && d.extents[len(d.extents)-1] == SparseExtent
}

// SparseDim returns the label of the sparse axis, or Invalid if none.
func (d Dimensions) SparseDim() Dim {
	if d.Sparse() {
		return d.labels[len(d.labels)-1]
	}
	return Invalid
}

// Dense returns the dense prefix: d without the sparse axis, if any.
func (d Dimensions) Dense() Dimensions {
	if !d.Sparse() {
		return d
	}
	return Dimensions{labels: d.labels[:len(d.labels)-1], extents: d.extents[:len(d.extents)-1]}
}

// Contains reports whether label names one of the axes.
func (d Dimensions) Contains(label Dim) bool {
	return slices.Contains(d.labels, label)
}

// ContainsAll reports whether every axis of other is an axis of d with
// the same extent, in any order. This is the containment test used for
// broadcasting.
func (d Dimensions) ContainsAll(other Dimensions) bool {
	for i, label := range other.labels {
		j := slices.Index(d.labels, label)
		if j < 0 || d.extents[j] != other.extents[i] {
			return false
		}
	}
	return true
}

// Index returns the axis position of label, or -1 if absent.
func (d Dimensions) Index(label Dim) int {
	return slices.Index(d.labels, label)
}

// Extent returns the extent of the axis with the given label. It
// panics if the label is absent; check Contains first when unsure.
func (d Dimensions) Extent(label Dim) int {
	i := d.Index(label)
	if i < 0 {
		exceptions.Panicf("Dimensions.Extent: no dimension %s in %s", label, d)
	}
	return d.extents[i]
}

// Stride returns the distance in elements between consecutive indices
// along the labeled axis: the product of the extents of all later
// dense axes. It panics for an absent or sparse label.
func (d Dimensions) Stride(label Dim) int {
	i := d.Index(label)
	if i < 0 {
		exceptions.Panicf("Dimensions.Stride: no dimension %s in %s", label, d)
	}
	if d.extents[i] == SparseExtent {
		exceptions.Panicf("Dimensions.Stride: dimension %s of %s is sparse", label, d)
	}
	stride := 1
	for j := i + 1; j < len(d.extents); j++ {
		if d.extents[j] == SparseExtent {
			continue
		}
		stride *= d.extents[j]
	}
	return stride
}

// Volume returns the product of all extents. It panics when the
// Dimensions is sparse; use DenseVolume for the number of rows.
func (d Dimensions) Volume() int {
	if d.Sparse() {
		exceptions.Panicf("Dimensions.Volume: undefined for sparse dimensions %s", d)
	}
	return d.DenseVolume()
}

// DenseVolume returns the product of the dense extents. For a sparse
// Dimensions this is the number of per-row containers.
func (d Dimensions) DenseVolume() int {
	volume := 1
	for _, extent := range d.extents {
		if extent == SparseExtent {
			continue
		}
		volume *= extent
	}
	return volume
}

// Add returns d with (label, extent) appended as a new innermost axis.
func (d Dimensions) Add(label Dim, extent int) (Dimensions, error) {
	if d.Contains(label) {
		return Dimensions{}, errors.Errorf("Dimensions.Add: duplicate dimension %s in %s", label, d)
	}
	if d.Sparse() {
		return Dimensions{}, errors.Errorf("Dimensions.Add: cannot append after sparse dimension of %s", d)
	}
	return Make(append(slices.Clone(d.labels), label), append(slices.Clone(d.extents), extent))
}

// AddOuter returns d with (label, extent) prepended as a new outermost axis.
func (d Dimensions) AddOuter(label Dim, extent int) (Dimensions, error) {
	if d.Contains(label) {
		return Dimensions{}, errors.Errorf("Dimensions.AddOuter: duplicate dimension %s in %s", label, d)
	}
	return Make(append([]Dim{label}, d.labels...), append([]int{extent}, d.extents...))
}

// Resize returns d with the labeled axis resized to extent.
func (d Dimensions) Resize(label Dim, extent int) (Dimensions, error) {
	i := d.Index(label)
	if i < 0 {
		return Dimensions{}, errors.Errorf("Dimensions.Resize: no dimension %s in %s", label, d)
	}
	if extent < 0 {
		return Dimensions{}, errors.Errorf("Dimensions.Resize: negative extent %d for dimension %s", extent, label)
	}
	extents := slices.Clone(d.extents)
	extents[i] = extent
	return Dimensions{labels: slices.Clone(d.labels), extents: extents}, nil
}

// Erase returns d with the labeled axis removed.
func (d Dimensions) Erase(label Dim) (Dimensions, error) {
	i := d.Index(label)
	if i < 0 {
		return Dimensions{}, errors.Errorf("Dimensions.Erase: no dimension %s in %s", label, d)
	}
	return Dimensions{
		labels:  slices.Delete(slices.Clone(d.labels), i, i+1),
		extents: slices.Delete(slices.Clone(d.extents), i, i+1),
	}, nil
}

// Relabel returns d with the axis at position i renamed to label.
func (d Dimensions) Relabel(i int, label Dim) (Dimensions, error) {
	if i < 0 || i >= d.Rank() {
		return Dimensions{}, errors.Errorf("Dimensions.Relabel: axis %d out of range for %s", i, d)
	}
	if j := d.Index(label); j >= 0 && j != i {
		return Dimensions{}, errors.Errorf("Dimensions.Relabel: duplicate dimension %s in %s", label, d)
	}
	labels := slices.Clone(d.labels)
	labels[i] = label
	return Dimensions{labels: labels, extents: slices.Clone(d.extents)}, nil
}

// Equal reports whether the two Dimensions have the same labels with
// the same extents in the same order.
func (d Dimensions) Equal(other Dimensions) bool {
	return slices.Equal(d.labels, other.labels) && slices.Equal(d.extents, other.extents)
}

// IsPermutationOf reports whether other has exactly the same labeled
// extents, in any order.
func (d Dimensions) IsPermutationOf(other Dimensions) bool {
	return d.Rank() == other.Rank() && d.ContainsAll(other)
}

// IsContiguousIn reports whether d describes a contiguous block of
// memory within a buffer laid out as other: d's labels must match the
// trailing labels of other in order, with equal extents on all but
// d's outermost axis, which may be smaller.
func (d Dimensions) IsContiguousIn(other Dimensions) bool {
	if d.Equal(other) {
		return true
	}
	delta := other.Rank() - d.Rank()
	if delta < 0 {
		return false
	}
	for i, label := range d.labels {
		if other.labels[delta+i] != label {
			return false
		}
		if i == 0 {
			if d.extents[0] > other.extents[delta] {
				return false
			}
		} else if d.extents[i] != other.extents[delta+i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (d Dimensions) Clone() Dimensions {
	return Dimensions{labels: slices.Clone(d.labels), extents: slices.Clone(d.extents)}
}

// String implements fmt.Stringer, e.g. "[y:2 x:3]" or "[spectrum:4 tof:*]"
// for a sparse innermost axis.
func (d Dimensions) String() string {
	if d.Empty() {
		return "[]"
	}
	parts := make([]string, 0, d.Rank())
	for i, label := range d.labels {
		if d.extents[i] == SparseExtent {
			parts = append(parts, fmt.Sprintf("%s:*", label))
		} else {
			parts = append(parts, fmt.Sprintf("%s:%d", label, d.extents[i]))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
