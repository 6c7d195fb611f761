package variable

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

// Slice selects a range along one dimension. End == -1 takes the
// single index Begin and drops the dimension from the result; any
// other End keeps the dimension with extent End-Begin.
type Slice struct {
	Dim   dims.Dim
	Begin int
	End   int
}

// String implements fmt.Stringer.
func (s Slice) String() string {
	if s.End == -1 {
		return fmt.Sprintf("slice(%s, %d)", s.Dim, s.Begin)
	}
	return fmt.Sprintf("slice(%s, %d, %d)", s.Dim, s.Begin, s.End)
}

// Variable is a labeled multi-dimensional array: an element kind, a
// unit of measurement, named dimensions and the type-erased storage.
// A Variable is a value; Clone is cheap (copy-on-write) and mutation
// never leaks into clones. A Variable returned by Slice or Transpose
// is a borrowed view into its parent: it carries no data of its own
// and must not outlive the parent, and while a writable view exists
// the parent must not be mutated, cloned or dropped.
type Variable struct {
	name string
	unit units.Unit
	data *Storage
}

// New creates a Variable of the given kind, unit and dimensions.
// values must be a flat slice of the kind's element type in the
// lexicographic order of d (for sparse kinds, one inner slice per
// dense row); nil leaves the Variable zero-initialized.
func New(kind Kind, unit units.Unit, d dims.Dimensions, values any) (Variable, error) {
	if kind.IsSparse() != d.Sparse() {
		return Variable{}, errors.WithStack(&DimensionError{
			Actual: d,
			Msg:    fmt.Sprintf("kind %s requires matching sparse dimensions, got %s", kind, d),
		})
	}
	st := newStorage(kind, d)
	v := Variable{unit: unit, data: st}
	if values == nil {
		return v, nil
	}
	if err := setFlatValues(st, values); err != nil {
		return Variable{}, err
	}
	return v, nil
}

// MustNew is like New but panics on error.
func MustNew(kind Kind, unit units.Unit, d dims.Dimensions, values any) Variable {
	v, err := New(kind, unit, d, values)
	if err != nil {
		exceptions.Panicf("variable.MustNew: %+v", err)
	}
	return v
}

// Zeros creates a zero-initialized Variable.
func Zeros(kind Kind, unit units.Unit, d dims.Dimensions) Variable {
	return Variable{unit: unit, data: newStorage(kind, d)}
}

// FromScalar creates a rank-0 Variable holding a single value. The
// kind is derived from the value's type.
func FromScalar(value any, unit units.Unit) (Variable, error) {
	var kind Kind
	switch value.(type) {
	case float64:
		kind = Float64
	case float32:
		kind = Float32
	case int32:
		kind = Int32
	case int64:
		kind = Int64
	case bool:
		kind = Bool
	case string:
		kind = String
	case Vector3:
		kind = Vector3Kind
	default:
		return Variable{}, errors.Errorf("FromScalar: unsupported value type %T", value)
	}
	st := newStorage(kind, dims.Dimensions{})
	switch v := value.(type) {
	case float64:
		flat[float64](st.buf)[0] = v
	case float32:
		flat[float32](st.buf)[0] = v
	case int32:
		flat[int32](st.buf)[0] = v
	case int64:
		flat[int64](st.buf)[0] = v
	case bool:
		flat[bool](st.buf)[0] = v
	case string:
		flat[string](st.buf)[0] = v
	case Vector3:
		flat[Vector3](st.buf)[0] = v
	}
	return Variable{unit: unit, data: st}, nil
}

func setFlatValues(st *Storage, values any) error {
	n := st.ElementCount()
	set := func(got int) error {
		if got != n {
			return errors.Errorf("creating Variable: data size %d does not match volume %d given by dimension extents", got, n)
		}
		return nil
	}
	switch st.kind {
	case Float64:
		return assignFlat(st, values, set, func(v []float64) { copy(flat[float64](st.buf), v) })
	case Float32:
		return assignFlat(st, values, set, func(v []float32) { copy(flat[float32](st.buf), v) })
	case Int32:
		return assignFlat(st, values, set, func(v []int32) { copy(flat[int32](st.buf), v) })
	case Int64:
		return assignFlat(st, values, set, func(v []int64) { copy(flat[int64](st.buf), v) })
	case Bool:
		return assignFlat(st, values, set, func(v []bool) { copy(flat[bool](st.buf), v) })
	case String:
		return assignFlat(st, values, set, func(v []string) { copy(flat[string](st.buf), v) })
	case Vector3Kind:
		return assignFlat(st, values, set, func(v []Vector3) { copy(flat[Vector3](st.buf), v) })
	case DatasetKind:
		return assignFlat(st, values, set, func(v []Nested) {
			dst := flat[Nested](st.buf)
			for i, nested := range v {
				if nested != nil {
					dst[i] = nested.CloneNested()
				}
			}
		})
	case SparseFloat64:
		return assignFlat(st, values, set, func(v [][]float64) { copy(flat[[]float64](st.buf), cloneRows(v)) })
	case SparseFloat32:
		return assignFlat(st, values, set, func(v [][]float32) { copy(flat[[]float32](st.buf), cloneRows(v)) })
	case SparseInt64:
		return assignFlat(st, values, set, func(v [][]int64) { copy(flat[[]int64](st.buf), cloneRows(v)) })
	}
	return errors.Errorf("creating Variable: unsupported kind %s", st.kind)
}

func assignFlat[S any](st *Storage, values any, check func(int) error, assign func(S)) error {
	typed, ok := values.(S)
	if !ok {
		return errors.WithStack(&KindError{
			Actual: st.kind,
			Msg:    fmt.Sprintf("values type %T does not match element kind %s", values, st.kind),
		})
	}
	length := lenOf(typed)
	if err := check(length); err != nil {
		return err
	}
	assign(typed)
	return nil
}

func lenOf(v any) int {
	switch s := v.(type) {
	case []float64:
		return len(s)
	case []float32:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []bool:
		return len(s)
	case []string:
		return len(s)
	case []Vector3:
		return len(s)
	case []Nested:
		return len(s)
	case [][]float64:
		return len(s)
	case [][]float32:
		return len(s)
	case [][]int64:
		return len(s)
	}
	return -1
}

// Dims returns the Variable's dimensions.
func (v Variable) Dims() dims.Dimensions { return v.data.dims }

// Unit returns the unit of measurement.
func (v Variable) Unit() units.Unit { return v.unit }

// Kind returns the element kind.
func (v Variable) Kind() Kind { return v.data.kind }

// Name returns the optional name used by Dataset aggregation.
func (v Variable) Name() string { return v.name }

// WithName returns v carrying the given name.
func (v Variable) WithName(name string) Variable {
	v.name = name
	return v
}

// IsView reports whether v borrows another Variable's storage.
func (v Variable) IsView() bool { return v.data.IsView() }

// SetUnit replaces the unit. A view that exposes only part of its
// parent cannot change the unit: the hidden elements would silently
// change meaning.
func (v *Variable) SetUnit(unit units.Unit) error {
	if v.data.view && !v.data.dims.Equal(v.data.parent) {
		return errors.WithStack(&UnitError{
			A: v.unit, B: unit,
			Msg: "partial view on data of variable cannot be used to change the unit",
		})
	}
	v.unit = unit
	return nil
}

// SetDims replaces the dimensions, reinitializing the data when the
// volume changes (like the zero-filled output of Sum).
func (v *Variable) SetDims(d dims.Dimensions) error {
	if v.data.dims.Equal(d) {
		return nil
	}
	if !d.Sparse() && !v.data.dims.Sparse() && elementCount(d) == v.data.ElementCount() && !v.data.view {
		st := *v.data
		st.buf.refs.Add(1)
		st.dims = d
		st.parent = d
		v.data = &st
		return nil
	}
	st, err := v.data.Resize(d)
	if err != nil {
		return err
	}
	v.data = st
	return nil
}

// Clone returns a deep copy. For owned Variables this is O(1) until
// the first mutation of either copy; for views it materializes the
// visible elements into owned contiguous storage.
func (v Variable) Clone() Variable {
	return Variable{name: v.name, unit: v.unit, data: v.data.Clone()}
}

// Values returns the typed flat elements of a dense Variable as a
// span aliasing the storage. T must match the element kind, and the
// Variable must be contiguous (Clone a transposed or sub-block view
// first).
func Values[T any](v Variable) ([]T, error) {
	if err := checkValuesAccess[T](v); err != nil {
		return nil, err
	}
	if !v.data.readOnly {
		// The span is writable: detach from copy-on-write clones first.
		v.data.detach()
	}
	return span[T](v.data), nil
}

func checkValuesAccess[T any](v Variable) error {
	var zero T
	expected := kindOfElement(zero)
	if expected == InvalidKind || expected != v.Kind() {
		return errors.WithStack(&KindError{
			Actual: v.Kind(),
			Msg:    fmt.Sprintf("cannot access %s elements as %T", v.Kind(), zero),
		})
	}
	if !v.data.IsContiguous() {
		return errors.WithStack(&InvalidStateError{
			Msg: "view is not contiguous, cannot get contiguous range of data",
		})
	}
	return nil
}

func kindOfElement(zero any) Kind {
	switch zero.(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	case int32:
		return Int32
	case int64:
		return Int64
	case bool:
		return Bool
	case string:
		return String
	case Vector3:
		return Vector3Kind
	case Nested:
		return DatasetKind
	}
	return InvalidKind
}

// SparseValues returns the per-row event containers of a sparse
// Variable. The outer slice aliases the storage.
func SparseValues[T number](v Variable) ([][]T, error) {
	var zero T
	expected := InvalidKind
	switch any(zero).(type) {
	case float64:
		expected = SparseFloat64
	case float32:
		expected = SparseFloat32
	case int64:
		expected = SparseInt64
	}
	if expected != v.Kind() {
		return nil, errors.WithStack(&KindError{
			Actual: v.Kind(),
			Msg:    fmt.Sprintf("cannot access %s elements as sparse %T rows", v.Kind(), zero),
		})
	}
	if !v.data.IsContiguous() {
		return nil, errors.WithStack(&InvalidStateError{
			Msg: "view is not contiguous, cannot get contiguous range of data",
		})
	}
	if !v.data.readOnly {
		v.data.detach()
	}
	return span[[]T](v.data), nil
}

// NestedValues returns the nested aggregation elements of a
// DatasetKind Variable; the slice aliases the storage.
func NestedValues(v Variable) ([]Nested, error) {
	if v.Kind() != DatasetKind {
		return nil, errors.WithStack(&KindError{
			Expected: DatasetKind, Actual: v.Kind(),
		})
	}
	if !v.data.IsContiguous() {
		return nil, errors.WithStack(&InvalidStateError{
			Msg: "view is not contiguous, cannot get contiguous range of data",
		})
	}
	return span[Nested](v.data), nil
}

// validSlice checks the slice indices against d.
func validSlice(d dims.Dimensions, s Slice) error {
	if !d.Contains(s.Dim) {
		return errors.WithStack(&SliceError{Dims: d, Slice: s})
	}
	extent := d.Extent(s.Dim)
	if extent == dims.SparseExtent {
		return errors.WithStack(&SliceError{Dims: d, Slice: s})
	}
	if s.End == -1 {
		if s.Begin < 0 || s.Begin >= extent {
			return errors.WithStack(&SliceError{Dims: d, Slice: s})
		}
		return nil
	}
	if s.Begin < 0 || s.End < s.Begin || s.End > extent {
		return errors.WithStack(&SliceError{Dims: d, Slice: s})
	}
	return nil
}

// Slice returns a borrowed view restricted along one dimension. The
// view writes through to v when v is writable; it must not outlive v.
func (v Variable) Slice(s Slice) (Variable, error) {
	if err := validSlice(v.Dims(), s); err != nil {
		return Variable{}, err
	}
	end := s.End
	if end == -1 {
		// Single index: the storage drops the dimension.
		st, err := v.data.sliceView(s.Dim, s.Begin, -1, false)
		if err != nil {
			return Variable{}, err
		}
		return Variable{name: v.name, unit: v.unit, data: st}, nil
	}
	st, err := v.data.sliceView(s.Dim, s.Begin, end, false)
	if err != nil {
		return Variable{}, err
	}
	return Variable{name: v.name, unit: v.unit, data: st}, nil
}

// ConstSlice is like Slice but the returned view rejects mutation.
func (v Variable) ConstSlice(s Slice) (Variable, error) {
	out, err := v.Slice(s)
	if err != nil {
		return Variable{}, err
	}
	out.data.readOnly = true
	return out, nil
}

// MustSlice is like Slice but panics on error.
func (v Variable) MustSlice(s Slice) Variable {
	out, err := v.Slice(s)
	if err != nil {
		exceptions.Panicf("Variable.MustSlice: %+v", err)
	}
	return out
}

// Reshape returns v with new dimensions of equal volume. An owned
// Variable is relabeled in place (sharing the buffer); a view is first
// materialized into a contiguous copy.
func (v Variable) Reshape(d dims.Dimensions) (Variable, error) {
	if d.Sparse() || v.Dims().Sparse() {
		return Variable{}, errors.WithStack(&DimensionError{
			Expected: v.Dims(), Actual: d,
			Msg: "cannot reshape sparse dimensions " + v.Dims().String(),
		})
	}
	if d.Volume() != v.Dims().Volume() {
		return Variable{}, errors.WithStack(&DimensionError{
			Expected: v.Dims(), Actual: d,
			Msg: fmt.Sprintf("cannot reshape %s (volume %d) to %s (volume %d)",
				v.Dims(), v.Dims().Volume(), d, d.Volume()),
		})
	}
	out := v
	if v.data.view {
		out = v.Clone()
	}
	st := *out.data
	st.buf.refs.Add(1)
	st.dims = d
	st.parent = d
	return Variable{name: v.name, unit: v.unit, data: &st}, nil
}

// Transpose returns a borrowed view with the axes reordered. An empty
// order reverses the axes. The view is non-contiguous unless the order
// is the identity.
func (v Variable) Transpose(order []dims.Dim) (Variable, error) {
	if len(order) == 0 {
		labels := v.Dims().Labels()
		order = make([]dims.Dim, len(labels))
		for i, label := range labels {
			order[len(labels)-1-i] = label
		}
	}
	st, err := v.data.transposedView(order, false)
	if err != nil {
		return Variable{}, err
	}
	return Variable{name: v.name, unit: v.unit, data: st}, nil
}

// Rename relabels dimension from to to, keeping extent and layout.
func (v *Variable) Rename(from, to dims.Dim) error {
	i := v.Dims().Index(from)
	if i < 0 {
		return errors.WithStack(dimensionNotFound(v.Dims(), from))
	}
	newDims, err := v.Dims().Relabel(i, to)
	if err != nil {
		return err
	}
	st := *v.data
	st.buf.refs.Add(1)
	st.dims = newDims
	if !st.view {
		st.parent = newDims
	} else if j := st.parent.Index(from); j >= 0 {
		st.parent, err = st.parent.Relabel(j, to)
		if err != nil {
			return err
		}
	}
	v.data = &st
	return nil
}

// Assign copies the elements of other into v (slice assignment).
// Kinds, units and dimensions must match exactly.
func (v *Variable) Assign(other Variable) error {
	if v.data == other.data {
		return nil
	}
	if err := expectKindEqual(v.Kind(), other.Kind()); err != nil {
		return err
	}
	if err := expectUnitEqual(v.Unit(), other.Unit()); err != nil {
		return err
	}
	if err := expectDimsEqual(v.Dims(), other.Dims()); err != nil {
		return err
	}
	return v.data.CopyFrom(other.data, dims.Invalid, 0, 0, 1)
}

// Equal reports deep equality: names, units, kinds, dimensions (up to
// a permutation of axes) and all elements under v's iteration order.
func (v Variable) Equal(other Variable) bool {
	if v.name != other.name || v.unit != other.unit || v.Kind() != other.Kind() {
		return false
	}
	if !v.Dims().IsPermutationOf(other.Dims()) {
		return false
	}
	if v.data == other.data {
		return true
	}
	return v.data.Equals(other.data, v.Dims())
}

// String implements fmt.Stringer with a single-line summary.
func (v Variable) String() string {
	count := humanize.Comma(int64(v.data.ElementCount()))
	name := v.name
	if name != "" {
		name = " " + name
	}
	return fmt.Sprintf("<Variable%s> %s [%s] %s (%s elements)", name, v.Kind(), v.unit, v.Dims(), count)
}
