package variable

import (
	"slices"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/dimarray/dimarray/types/dims"
)

// number constrains the dense arithmetic element types.
type number interface {
	constraints.Integer | constraints.Float
}

// buffer is the shared, reference-counted backing store of owned
// storages. Cloning a Storage shares the buffer; the first mutation
// detaches it, so observed semantics stay deep-copy.
type buffer struct {
	data any // flat slice of the kind's element type
	refs atomic.Int32
}

func newBuffer(kind Kind, n int) *buffer {
	b := &buffer{}
	b.refs.Store(1)
	switch kind {
	case Float64:
		b.data = make([]float64, n)
	case Float32:
		b.data = make([]float32, n)
	case Int32:
		b.data = make([]int32, n)
	case Int64:
		b.data = make([]int64, n)
	case Bool:
		b.data = make([]bool, n)
	case String:
		b.data = make([]string, n)
	case Vector3Kind:
		b.data = make([]Vector3, n)
	case DatasetKind:
		b.data = make([]Nested, n)
	case SparseFloat64:
		b.data = make([][]float64, n)
	case SparseFloat32:
		b.data = make([][]float32, n)
	case SparseInt64:
		b.data = make([][]int64, n)
	default:
		exceptions.Panicf("newBuffer: unsupported kind %s", kind)
	}
	return b
}

// flat returns the typed flat slice of a buffer. It panics when T does
// not match the storage kind; public accessors check the kind first.
func flat[T any](b *buffer) []T {
	return b.data.([]T)
}

// Storage is the type-erased holder of a Variable's elements. Two
// forms inhabit it: an owned contiguous buffer, and a non-owning view
// that maps its visible dims onto a parent buffer through strides.
type Storage struct {
	kind Kind
	buf  *buffer

	// dims are the visible dimensions; for owned storage they also
	// describe the buffer layout.
	dims dims.Dimensions

	// parent is the layout of buf. Equal to dims for owned storage.
	parent dims.Dimensions

	// base is the flat element offset of the view into buf.
	base int

	view     bool
	readOnly bool
}

// elementCount returns the length of the flat buffer the dims need.
func elementCount(d dims.Dimensions) int {
	if d.Sparse() {
		return d.DenseVolume()
	}
	return d.Volume()
}

// newStorage allocates owned, zero-initialized storage for the dims.
func newStorage(kind Kind, d dims.Dimensions) *Storage {
	return &Storage{
		kind:   kind,
		buf:    newBuffer(kind, elementCount(d)),
		dims:   d,
		parent: d,
	}
}

// Kind returns the element kind tag.
func (s *Storage) Kind() Kind { return s.kind }

// Dims returns the visible dimensions.
func (s *Storage) Dims() dims.Dimensions { return s.dims }

// IsView reports whether s borrows a foreign buffer.
func (s *Storage) IsView() bool { return s.view }

// IsContiguous reports whether the visible elements form one
// contiguous block of the underlying buffer.
func (s *Storage) IsContiguous() bool {
	if !s.view {
		return true
	}
	return s.dims.Dense().IsContiguousIn(s.parent.Dense())
}

// ElementCount returns the number of (dense) elements, or the number
// of sparse rows for sparse kinds.
func (s *Storage) ElementCount() int { return elementCount(s.dims) }

// detach guarantees exclusive ownership of the buffer before a write,
// deep-copying it when it is still shared with clones.
func (s *Storage) detach() {
	if s.view {
		return
	}
	if s.buf.refs.Load() == 1 {
		return
	}
	s.buf.refs.Add(-1)
	s.buf = deepCopyBuffer(s.kind, s.buf)
}

func deepCopyBuffer(kind Kind, b *buffer) *buffer {
	out := &buffer{}
	out.refs.Store(1)
	switch kind {
	case Float64:
		out.data = slices.Clone(flat[float64](b))
	case Float32:
		out.data = slices.Clone(flat[float32](b))
	case Int32:
		out.data = slices.Clone(flat[int32](b))
	case Int64:
		out.data = slices.Clone(flat[int64](b))
	case Bool:
		out.data = slices.Clone(flat[bool](b))
	case String:
		out.data = slices.Clone(flat[string](b))
	case Vector3Kind:
		out.data = slices.Clone(flat[Vector3](b))
	case DatasetKind:
		src := flat[Nested](b)
		dst := make([]Nested, len(src))
		for i, nested := range src {
			if nested != nil {
				dst[i] = nested.CloneNested()
			}
		}
		out.data = dst
	case SparseFloat64:
		out.data = cloneRows(flat[[]float64](b))
	case SparseFloat32:
		out.data = cloneRows(flat[[]float32](b))
	case SparseInt64:
		out.data = cloneRows(flat[[]int64](b))
	default:
		exceptions.Panicf("deepCopyBuffer: unsupported kind %s", kind)
	}
	return out
}

func cloneRows[T any](rows [][]T) [][]T {
	out := make([][]T, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}

// Clone returns a deep copy with owned, contiguous storage. Cloning an
// owned storage is O(1) by sharing the buffer copy-on-write; cloning a
// view materializes the visible elements.
func (s *Storage) Clone() *Storage {
	if !s.view {
		s.buf.refs.Add(1)
		return &Storage{kind: s.kind, buf: s.buf, dims: s.dims, parent: s.parent}
	}
	out := newStorage(s.kind, s.dims)
	if err := out.CopyFrom(s, dims.Invalid, 0, 0, 1); err != nil {
		// The view's dims are by construction compatible with out's.
		exceptions.Panicf("Storage.Clone: %+v", err)
	}
	return out
}

// CloneView returns a lightweight non-owning view over s with the same
// visible dimensions.
func (s *Storage) CloneView(readOnly bool) *Storage {
	return &Storage{
		kind:     s.kind,
		buf:      s.buf,
		dims:     s.dims,
		parent:   s.parent,
		base:     s.base,
		view:     true,
		readOnly: s.readOnly || readOnly,
	}
}

// Resize returns fresh default-initialized owned storage shaped as d.
// Views cannot be resized.
func (s *Storage) Resize(d dims.Dimensions) (*Storage, error) {
	if s.view {
		return nil, errors.WithStack(errResizeView())
	}
	return newStorage(s.kind, d), nil
}

// sliceView returns a view of s restricted along dim. With end == -1
// the dimension is dropped and the view fixes index begin; otherwise
// the dimension's extent shrinks to end-begin.
func (s *Storage) sliceView(dim dims.Dim, begin, end int, readOnly bool) (*Storage, error) {
	if !readOnly && !s.readOnly {
		// A writable view writes through to the buffer: detach it from
		// copy-on-write clones before handing the borrow out.
		s.detach()
	}
	viewDims := s.dims
	var err error
	if end == -1 {
		viewDims, err = viewDims.Erase(dim)
	} else {
		viewDims, err = viewDims.Resize(dim, end-begin)
	}
	if err != nil {
		return nil, err
	}
	base := s.base
	if s.parent.Contains(dim) {
		base += begin * s.parent.Stride(dim)
	}
	return &Storage{
		kind:     s.kind,
		buf:      s.buf,
		dims:     viewDims,
		parent:   s.parent,
		base:     base,
		view:     true,
		readOnly: s.readOnly || readOnly,
	}, nil
}

// transposedView returns a view with the axes reordered.
func (s *Storage) transposedView(order []dims.Dim, readOnly bool) (*Storage, error) {
	if !readOnly && !s.readOnly {
		s.detach()
	}
	if len(order) != s.dims.Rank() {
		return nil, &DimensionError{
			Expected: s.dims,
			Msg:      "transpose order must name every axis exactly once of " + s.dims.String(),
		}
	}
	labels := make([]dims.Dim, len(order))
	extents := make([]int, len(order))
	for i, label := range order {
		j := s.dims.Index(label)
		if j < 0 {
			return nil, dimensionNotFound(s.dims, label)
		}
		labels[i] = label
		extents[i] = s.dims.Extents()[j]
	}
	viewDims, err := dims.Make(labels, extents)
	if err != nil {
		return nil, err
	}
	return &Storage{
		kind:     s.kind,
		buf:      s.buf,
		dims:     viewDims,
		parent:   s.parent,
		base:     s.base,
		view:     true,
		readOnly: s.readOnly || readOnly,
	}, nil
}

// iter returns a strided iterator over s's buffer in the order of the
// target dims (dense part only for sparse kinds).
func (s *Storage) iter(target dims.Dimensions) (*stridedIndex, error) {
	return newStridedIndex(s.parent.Dense(), target.Dense(), s.base)
}

// span returns the contiguous typed block of visible elements. Only
// valid when IsContiguous().
func span[T any](s *Storage) []T {
	data := flat[T](s.buf)
	n := elementCount(s.dims)
	return data[s.base : s.base+n]
}

// Equals compares elementwise under the iteration order given by
// iterDims. Kinds and visible dims must already match.
func (s *Storage) Equals(other *Storage, iterDims dims.Dimensions) bool {
	if s.kind != other.kind {
		return false
	}
	switch s.kind {
	case Float64:
		return equalsT[float64](s, other, iterDims)
	case Float32:
		return equalsT[float32](s, other, iterDims)
	case Int32:
		return equalsT[int32](s, other, iterDims)
	case Int64:
		return equalsT[int64](s, other, iterDims)
	case Bool:
		return equalsT[bool](s, other, iterDims)
	case String:
		return equalsT[string](s, other, iterDims)
	case Vector3Kind:
		return equalsT[Vector3](s, other, iterDims)
	case DatasetKind:
		return equalsFunc(s, other, iterDims, func(a, b Nested) bool {
			if a == nil || b == nil {
				return a == nil && b == nil
			}
			return a.EqualNested(b)
		})
	case SparseFloat64:
		return equalsFunc(s, other, iterDims, slices.Equal[[]float64])
	case SparseFloat32:
		return equalsFunc(s, other, iterDims, slices.Equal[[]float32])
	case SparseInt64:
		return equalsFunc(s, other, iterDims, slices.Equal[[]int64])
	}
	return false
}

func equalsT[T comparable](s, other *Storage, iterDims dims.Dimensions) bool {
	return equalsFunc(s, other, iterDims, func(a, b T) bool { return a == b })
}

func equalsFunc[T any](s, other *Storage, iterDims dims.Dimensions, eq func(a, b T) bool) bool {
	si, err := s.iter(iterDims)
	if err != nil {
		return false
	}
	oi, err := other.iter(iterDims)
	if err != nil {
		return false
	}
	a, b := flat[T](s.buf), flat[T](other.buf)
	for i := 0; i < si.Length(); i++ {
		if !eq(a[si.Next()], b[oi.Next()]) {
			return false
		}
	}
	return true
}

// CopyFrom copies the block [otherBegin, otherEnd) of other along dim
// into s starting at offset. With dim == dims.Invalid the whole of
// other is copied (broadcast or transposed to s's dims as needed).
func (s *Storage) CopyFrom(other *Storage, dim dims.Dim, offset, otherBegin, otherEnd int) error {
	if s.readOnly {
		return errors.WithStack(errConstView())
	}
	if err := expectKindEqual(s.kind, other.kind); err != nil {
		return err
	}
	s.detach()

	iterDims := s.dims
	selfBase := s.base
	otherBase := other.base
	if dim.Valid() {
		delta := otherEnd - otherBegin
		if iterDims.Contains(dim) {
			var err error
			iterDims, err = iterDims.Resize(dim, delta)
			if err != nil {
				return err
			}
			selfBase += offset * s.parent.Stride(dim)
		}
		if other.parent.Contains(dim) {
			otherBase += otherBegin * other.parent.Stride(dim)
		}
	}

	di, err := newStridedIndex(s.parent.Dense(), iterDims.Dense(), selfBase)
	if err != nil {
		return err
	}
	si, err := newStridedIndex(other.parent.Dense(), iterDims.Dense(), otherBase)
	if err != nil {
		return err
	}

	switch s.kind {
	case Float64:
		copyStrided(flat[float64](s.buf), di, flat[float64](other.buf), si, nil)
	case Float32:
		copyStrided(flat[float32](s.buf), di, flat[float32](other.buf), si, nil)
	case Int32:
		copyStrided(flat[int32](s.buf), di, flat[int32](other.buf), si, nil)
	case Int64:
		copyStrided(flat[int64](s.buf), di, flat[int64](other.buf), si, nil)
	case Bool:
		copyStrided(flat[bool](s.buf), di, flat[bool](other.buf), si, nil)
	case String:
		copyStrided(flat[string](s.buf), di, flat[string](other.buf), si, nil)
	case Vector3Kind:
		copyStrided(flat[Vector3](s.buf), di, flat[Vector3](other.buf), si, nil)
	case DatasetKind:
		copyStrided(flat[Nested](s.buf), di, flat[Nested](other.buf), si, func(n Nested) Nested {
			if n == nil {
				return nil
			}
			return n.CloneNested()
		})
	case SparseFloat64:
		copyStrided(flat[[]float64](s.buf), di, flat[[]float64](other.buf), si, slices.Clone[[]float64])
	case SparseFloat32:
		copyStrided(flat[[]float32](s.buf), di, flat[[]float32](other.buf), si, slices.Clone[[]float32])
	case SparseInt64:
		copyStrided(flat[[]int64](s.buf), di, flat[[]int64](other.buf), si, slices.Clone[[]int64])
	default:
		return errors.Errorf("CopyFrom: unsupported kind %s", s.kind)
	}
	return nil
}

// copyStrided copies src elements into dst in the shared iteration
// order. cloneFn, when non-nil, deep-copies each element.
func copyStrided[T any](dst []T, di *stridedIndex, src []T, si *stridedIndex, cloneFn func(T) T) {
	n := di.Length()
	if cloneFn == nil {
		for i := 0; i < n; i++ {
			dst[di.Next()] = src[si.Next()]
		}
		return
	}
	for i := 0; i < n; i++ {
		dst[di.Next()] = cloneFn(src[si.Next()])
	}
}
