package variable

import (
	"github.com/pkg/errors"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

// Derived operations: everything here is built on slicing, CopyFrom
// and InPlaceOp, without touching the storage internals.

// Concatenate joins a and b along dim. Kinds, units and names must
// match, as must the extents of every other dense axis. If dim is the
// sparse axis of both, the per-row event lists are concatenated;
// otherwise the result's extent along dim is the sum of the operands'
// (a missing dim counts as extent 1, adding a new axis).
func Concatenate(a, b Variable, dim dims.Dim) (Variable, error) {
	if err := expectKindEqual(a.Kind(), b.Kind()); err != nil {
		return Variable{}, errors.WithMessage(err, "cannot concatenate Variables")
	}
	if err := expectUnitEqual(a.Unit(), b.Unit()); err != nil {
		return Variable{}, errors.WithMessage(err, "cannot concatenate Variables")
	}
	if a.Name() != b.Name() {
		return Variable{}, errors.Errorf("cannot concatenate Variables: names %q and %q do not match", a.Name(), b.Name())
	}

	dimsA, dimsB := a.Dims(), b.Dims()
	if dimsA.SparseDim() == dim && dimsB.SparseDim() == dim {
		out := a.Clone()
		if err := out.data.InPlaceOp(b.data, OpAdd); err != nil {
			return Variable{}, err
		}
		return out, nil
	}
	if dimsA.SparseDim() != dimsB.SparseDim() {
		return Variable{}, errors.WithStack(&DimensionError{
			Expected: dimsA, Actual: dimsB,
			Msg: "cannot concatenate Variables: either both or neither must be sparse, and the sparse dimensions must be the same",
		})
	}

	for i, label := range dimsA.Labels() {
		if label == dim {
			continue
		}
		if !dimsB.Contains(label) || dimsB.Extent(label) != dimsA.Extents()[i] {
			return Variable{}, errors.WithStack(dimensionMismatch(dimsA, dimsB))
		}
	}
	rankA, rankB := dimsA.Rank(), dimsB.Rank()
	if dimsA.Contains(dim) {
		rankA--
	}
	if dimsB.Contains(dim) {
		rankB--
	}
	// Covers b having extra dimensions not present in a.
	if rankA != rankB {
		return Variable{}, errors.WithStack(dimensionMismatch(dimsA, dimsB))
	}

	extentA, extentB := 1, 1
	if dimsA.Contains(dim) {
		extentA = dimsA.Extent(dim)
	}
	if dimsB.Contains(dim) {
		extentB = dimsB.Extent(dim)
	}
	outDims := dimsA
	var err error
	if outDims.Contains(dim) {
		outDims, err = outDims.Resize(dim, extentA+extentB)
	} else {
		outDims, err = outDims.AddOuter(dim, extentA+extentB)
	}
	if err != nil {
		return Variable{}, err
	}

	out := Zeros(a.Kind(), a.Unit(), outDims).WithName(a.Name())
	if err := out.data.CopyFrom(a.data, dim, 0, 0, extentA); err != nil {
		return Variable{}, err
	}
	if err := out.data.CopyFrom(b.data, dim, extentA, 0, extentB); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Split partitions v along dim at the given sorted, unique, in-range
// indices. Empty indices return the whole Variable.
func Split(v Variable, dim dims.Dim, indices []int) ([]Variable, error) {
	if len(indices) == 0 {
		return []Variable{v.Clone()}, nil
	}
	if !v.Dims().Contains(dim) {
		return nil, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	extent := v.Dims().Extent(dim)
	bounds := make([]int, 0, len(indices)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, indices...)
	bounds = append(bounds, extent)
	out := make([]Variable, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		part, err := v.Slice(Slice{Dim: dim, Begin: bounds[i], End: bounds[i+1]})
		if err != nil {
			return nil, err
		}
		out = append(out, part.Clone())
	}
	return out, nil
}

// Filter keeps the rows of v along the mask's single dimension where
// the mask is true.
func Filter(v Variable, mask Variable) (Variable, error) {
	if mask.Dims().Rank() != 1 || mask.Kind() != Bool {
		return Variable{}, errors.Errorf("cannot filter variable: the filter must be a 1-dimensional mask")
	}
	dim := mask.Dims().Labels()[0]
	keep, err := Values[bool](mask)
	if err != nil {
		return Variable{}, err
	}
	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return v.Clone(), nil
	}
	if !v.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	outDims, err := v.Dims().Resize(dim, v.Dims().Extent(dim)-removed)
	if err != nil {
		return Variable{}, err
	}
	out := Zeros(v.Kind(), v.Unit(), outDims).WithName(v.Name())
	iOut := 0
	for iIn, k := range keep {
		if !k {
			continue
		}
		if err := out.data.CopyFrom(v.data, dim, iOut, iIn, iIn+1); err != nil {
			return Variable{}, err
		}
		iOut++
	}
	return out, nil
}

// Sum reduces v along dim: the result has dim erased, is
// zero-initialized, and accumulates every input element in the
// deterministic lexicographic order of v's dims. The unit is
// preserved.
func Sum(v Variable, dim dims.Dim) (Variable, error) {
	if !v.Kind().IsArithmetic() {
		return Variable{}, errors.WithStack(notArithmetic(v.Kind()))
	}
	outDims, err := v.Dims().Erase(dim)
	if err != nil {
		return Variable{}, err
	}
	out := Zeros(v.Kind(), v.Unit(), outDims).WithName(v.Name())
	// Reduction shape: RHS dims strictly contain the output's.
	if err := out.data.InPlaceOp(v.data, OpAdd); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Mean is Sum(v, dim) scaled by 1/extent. Only floating-point kinds
// can be averaged.
func Mean(v Variable, dim dims.Dim) (Variable, error) {
	if !v.Kind().IsFloat() {
		return Variable{}, errors.WithStack(&KindError{
			Actual: v.Kind(),
			Msg:    "mean requires a floating-point kind, got " + v.Kind().String(),
		})
	}
	if !v.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	n := v.Dims().Extent(dim)
	summed, err := Sum(v, dim)
	if err != nil {
		return Variable{}, err
	}
	var scale Variable
	switch v.Kind() {
	case Float64:
		scale, err = FromScalar(1.0/float64(n), units.Dimensionless)
	case Float32:
		scale, err = FromScalar(float32(1)/float32(n), units.Dimensionless)
	}
	if err != nil {
		return Variable{}, err
	}
	if err := summed.MulAssign(scale); err != nil {
		return Variable{}, err
	}
	return summed, nil
}

// Permute gathers rows of v along dim: element i of the result is the
// slice of v at indices[i].
func Permute(v Variable, dim dims.Dim, indices []int) (Variable, error) {
	if !v.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	outDims, err := v.Dims().Resize(dim, len(indices))
	if err != nil {
		return Variable{}, err
	}
	out := Zeros(v.Kind(), v.Unit(), outDims).WithName(v.Name())
	extent := v.Dims().Extent(dim)
	for i, idx := range indices {
		if idx < 0 || idx >= extent {
			return Variable{}, errors.WithStack(&SliceError{Dims: v.Dims(), Slice: Slice{Dim: dim, Begin: idx, End: idx + 1}})
		}
		if err := out.data.CopyFrom(v.data, dim, i, idx, idx+1); err != nil {
			return Variable{}, err
		}
	}
	return out, nil
}

// Broadcast returns v expanded to target: axes of target missing from
// v are added (outermost first) and filled by repetition. Extents of
// shared axes must match.
func Broadcast(v Variable, target dims.Dimensions) (Variable, error) {
	if v.Dims().ContainsAll(target) {
		return v.Clone(), nil
	}
	newDims := v.Dims()
	labels := target.Labels()
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		if newDims.Contains(label) {
			if newDims.Extent(label) != target.Extent(label) {
				return Variable{}, errors.WithStack(dimensionMismatch(newDims, target))
			}
			continue
		}
		var err error
		newDims, err = newDims.AddOuter(label, target.Extent(label))
		if err != nil {
			return Variable{}, err
		}
	}
	out := Zeros(v.Kind(), v.Unit(), newDims).WithName(v.Name())
	if err := out.data.CopyFrom(v.data, dims.Invalid, 0, 0, 1); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Swap exchanges the two single-index blocks a and b of v along dim.
func Swap(v *Variable, dim dims.Dim, a, b int) error {
	sliceA, err := v.Slice(Slice{Dim: dim, Begin: a, End: a + 1})
	if err != nil {
		return err
	}
	sliceB, err := v.Slice(Slice{Dim: dim, Begin: b, End: b + 1})
	if err != nil {
		return err
	}
	tmp := sliceA.Clone()
	if err := sliceA.Assign(sliceB); err != nil {
		return err
	}
	// tmp keeps a's original elements but b's dims position; align the
	// labels for assignment by copying raw.
	return sliceB.data.CopyFrom(tmp.data, dims.Invalid, 0, 0, 1)
}

// Reverse returns v with the order of indices along dim inverted.
func Reverse(v Variable, dim dims.Dim) (Variable, error) {
	if !v.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	out := v.Clone()
	size := v.Dims().Extent(dim)
	for i := 0; i < size/2; i++ {
		if err := Swap(&out, dim, i, size-i-1); err != nil {
			return Variable{}, err
		}
	}
	return out, nil
}

// ResizeDim returns a default-initialized Variable shaped as v with
// dim resized to size. The elements are not copied.
func ResizeDim(v Variable, dim dims.Dim, size int) (Variable, error) {
	newDims, err := v.Dims().Resize(dim, size)
	if err != nil {
		return Variable{}, err
	}
	return Zeros(v.Kind(), v.Unit(), newDims).WithName(v.Name()), nil
}

// Flatten collapses the dense axis dim of a sparse Variable,
// concatenating the event lists of all rows that differ only along
// dim, in index order.
func Flatten(v Variable, dim dims.Dim) (Variable, error) {
	if !v.Kind().IsSparse() {
		return Variable{}, errors.WithStack(&SparseError{
			Msg: "flatten requires sparse data, got " + v.Kind().String(),
		})
	}
	if !v.Dims().Dense().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	outDims, err := v.Dims().Erase(dim)
	if err != nil {
		return Variable{}, err
	}
	out := Zeros(v.Kind(), v.Unit(), outDims).WithName(v.Name())
	if err := out.data.InPlaceOp(v.data, OpAdd); err != nil {
		return Variable{}, err
	}
	return out, nil
}
