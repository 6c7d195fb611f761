package variable

import (
	"github.com/pkg/errors"

	"github.com/dimarray/dimarray/types/dims"
)

// BinOp selects the elementwise operation applied by InPlaceOp.
type BinOp int8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	// OpOr is the union of boolean masks; only valid for Bool storage.
	OpOr
)

var binOpNames = [...]string{OpAdd: "add", OpSub: "subtract", OpMul: "multiply", OpDiv: "divide", OpOr: "or"}

// String implements fmt.Stringer.
func (op BinOp) String() string {
	if op < 0 || int(op) >= len(binOpNames) {
		return "<unknown op>"
	}
	return binOpNames[op]
}

// InPlaceOp applies s[...] = s[...] ⊕ other[...] elementwise with
// label-based alignment:
//
//   - s.dims ⊇ other.dims: other is broadcast (and transposed when the
//     shared axes are ordered differently) to s's dims;
//   - other.dims ⊃ s.dims: the reduction shape — s is visited once per
//     element of other and accumulates (used by Sum);
//   - anything else is a DimensionError.
//
// No write happens before all precondition checks pass.
func (s *Storage) InPlaceOp(other *Storage, op BinOp) error {
	if s.readOnly {
		return errors.WithStack(errConstView())
	}
	if s.kind != other.kind {
		return errors.WithStack(kindMismatch(s.kind, other.kind))
	}

	switch {
	case s.kind.IsSparse():
		return s.sparseOp(other, op)
	case s.kind == DatasetKind:
		return s.nestedConcat(other, op)
	case s.kind == Bool:
		if op != OpOr {
			return errors.WithStack(notArithmetic(s.kind))
		}
	case !s.kind.IsArithmetic():
		return errors.WithStack(notArithmetic(s.kind))
	default:
		if op == OpOr {
			return errors.WithStack(notArithmetic(s.kind))
		}
	}

	var iterDims dims.Dimensions
	switch {
	case s.dims.ContainsAll(other.dims):
		iterDims = s.dims
	case other.dims.ContainsAll(s.dims):
		iterDims = other.dims
	default:
		return errors.WithStack(dimensionMismatch(s.dims, other.dims))
	}
	s.detach()

	switch s.kind {
	case Float64:
		return inPlaceOpT[float64](s, other, iterDims, op)
	case Float32:
		return inPlaceOpT[float32](s, other, iterDims, op)
	case Int32:
		return inPlaceOpT[int32](s, other, iterDims, op)
	case Int64:
		return inPlaceOpT[int64](s, other, iterDims, op)
	case Bool:
		return inPlaceOrBool(s, other, iterDims)
	}
	return errors.WithStack(notArithmetic(s.kind))
}

func inPlaceOpT[T number](s, other *Storage, iterDims dims.Dimensions, op BinOp) error {
	a, b := flat[T](s.buf), flat[T](other.buf)

	// Contiguous pairwise fast path: same dims in the same order and
	// both sides contiguous.
	if iterDims.Equal(s.dims) && iterDims.Equal(other.dims) &&
		s.IsContiguous() && other.IsContiguous() {
		dst, src := span[T](s), span[T](other)
		applyBinOp(dst, src, op)
		return nil
	}

	di, err := s.iter(iterDims)
	if err != nil {
		return err
	}
	si, err := other.iter(iterDims)
	if err != nil {
		return err
	}
	n := di.Length()
	switch op {
	case OpAdd:
		for i := 0; i < n; i++ {
			a[di.Next()] += b[si.Next()]
		}
	case OpSub:
		for i := 0; i < n; i++ {
			a[di.Next()] -= b[si.Next()]
		}
	case OpMul:
		for i := 0; i < n; i++ {
			a[di.Next()] *= b[si.Next()]
		}
	case OpDiv:
		for i := 0; i < n; i++ {
			a[di.Next()] /= b[si.Next()]
		}
	}
	return nil
}

func applyBinOp[T number](dst, src []T, op BinOp) {
	switch op {
	case OpAdd:
		for i := range dst {
			dst[i] += src[i]
		}
	case OpSub:
		for i := range dst {
			dst[i] -= src[i]
		}
	case OpMul:
		for i := range dst {
			dst[i] *= src[i]
		}
	case OpDiv:
		for i := range dst {
			dst[i] /= src[i]
		}
	}
}

func inPlaceOrBool(s, other *Storage, iterDims dims.Dimensions) error {
	di, err := s.iter(iterDims)
	if err != nil {
		return err
	}
	si, err := other.iter(iterDims)
	if err != nil {
		return err
	}
	a, b := flat[bool](s.buf), flat[bool](other.buf)
	n := di.Length()
	for i := 0; i < n; i++ {
		j, k := di.Next(), si.Next()
		a[j] = a[j] || b[k]
	}
	return nil
}

// sparseOp implements the event-list operations of sparse kinds:
// addition concatenates each row of other onto the matching row of s,
// multiplication and division act per event on rows of equal length
// (the weights produced by the fused sparse/dense path). Subtraction
// of event lists is not implemented.
func (s *Storage) sparseOp(other *Storage, op BinOp) error {
	if op != OpAdd && op != OpMul && op != OpDiv {
		return errors.WithStack(&SparseError{
			Msg: "cannot " + op.String() + " event lists",
		})
	}
	if s.dims.SparseDim() != other.dims.SparseDim() {
		return errors.WithStack(dimensionMismatch(s.dims, other.dims))
	}
	s.detach()
	switch s.kind {
	case SparseFloat64:
		return sparseOpT[float64](s, other, op)
	case SparseFloat32:
		return sparseOpT[float32](s, other, op)
	case SparseInt64:
		return sparseOpT[int64](s, other, op)
	}
	return errors.WithStack(notArithmetic(s.kind))
}

func sparseOpT[T number](s, other *Storage, op BinOp) error {
	// Same containment rule as dense arithmetic: the reduction shape
	// (other ⊃ s) concatenates many input rows into each output row,
	// in the deterministic lexicographic order of other's dims — this
	// is how Flatten collapses a dense axis of event lists.
	var iterDims dims.Dimensions
	switch {
	case s.dims.Dense().ContainsAll(other.dims.Dense()):
		iterDims = s.dims.Dense()
	case other.dims.Dense().ContainsAll(s.dims.Dense()):
		iterDims = other.dims.Dense()
	default:
		return errors.WithStack(dimensionMismatch(s.dims, other.dims))
	}
	di, err := s.iter(iterDims)
	if err != nil {
		return err
	}
	si, err := other.iter(iterDims)
	if err != nil {
		return err
	}
	a, b := flat[[]T](s.buf), flat[[]T](other.buf)
	n := di.Length()
	if op == OpAdd {
		for i := 0; i < n; i++ {
			j := di.Next()
			a[j] = append(a[j], b[si.Next()]...)
		}
		return nil
	}
	// Per-event multiply or divide; every pair of rows must hold the
	// same number of events.
	for i := 0; i < n; i++ {
		j, k := di.Next(), si.Next()
		if len(a[j]) != len(b[k]) {
			return errors.WithStack(&SparseError{
				Msg: "event list lengths do not match in elementwise operation",
			})
		}
	}
	di.Reset()
	si.Reset()
	for i := 0; i < n; i++ {
		dst, src := a[di.Next()], b[si.Next()]
		if op == OpMul {
			for e := range dst {
				dst[e] *= src[e]
			}
		} else {
			for e := range dst {
				dst[e] /= src[e]
			}
		}
	}
	return nil
}

// nestedConcat implements += for DatasetKind: per-row concatenation of
// the nested aggregations (the events path). Rows are processed in
// parallel; each task owns a disjoint output row.
func (s *Storage) nestedConcat(other *Storage, op BinOp) error {
	if op != OpAdd {
		return errors.WithStack(notArithmetic(s.kind))
	}
	if err := expectDimsEqual(s.dims, other.dims); err != nil {
		return err
	}
	s.detach()
	di, err := s.iter(s.dims)
	if err != nil {
		return err
	}
	si, err := other.iter(s.dims)
	if err != nil {
		return err
	}
	a, b := flat[Nested](s.buf), flat[Nested](other.buf)
	n := di.Length()
	dstIdx := make([]int, n)
	srcIdx := make([]int, n)
	for i := 0; i < n; i++ {
		dstIdx[i] = di.Next()
		srcIdx[i] = si.Next()
	}
	errs := make([]error, n)
	parallelFor(n, func(i int) {
		dst, src := a[dstIdx[i]], b[srcIdx[i]]
		if dst == nil || src == nil {
			errs[i] = errors.New("cannot concatenate nil nested aggregation")
			return
		}
		concatenater, ok := dst.(NestedConcatenater)
		if !ok {
			errs[i] = errors.WithStack(notArithmetic(DatasetKind))
			return
		}
		merged, err := concatenater.ConcatNested(src)
		if err != nil {
			errs[i] = err
			return
		}
		a[dstIdx[i]] = merged
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
