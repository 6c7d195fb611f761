package variable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

func TestNew(t *testing.T) {
	v, err := New(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, Float64, v.Kind())
	require.Equal(t, units.Meters, v.Unit())
	require.Equal(t, dims.Of(dims.Y, 2, dims.X, 3), v.Dims())

	vals, err := Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, vals)

	// Wrong element count.
	_, err = New(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2})
	require.Error(t, err)

	// Wrong value type for the kind.
	_, err = New(Float64, units.Meters, dims.Of(dims.X, 2), []int32{1, 2})
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)

	// Sparse kinds need a sparse dimension and vice versa.
	_, err = New(SparseFloat64, units.Counts, dims.Of(dims.X, 3), nil)
	require.Error(t, err)
	_, err = New(Float64, units.Counts, dims.MustMake([]dims.Dim{dims.X}, []int{dims.SparseExtent}), nil)
	require.Error(t, err)
}

func TestElementCountInvariant(t *testing.T) {
	v := Zeros(Float64, units.Dimensionless, dims.Of(dims.Z, 4, dims.Y, 2, dims.X, 3))
	require.Equal(t, v.Dims().Volume(), v.data.ElementCount())

	sparse := Zeros(SparseFloat64, units.Counts,
		dims.MustMake([]dims.Dim{dims.Y, dims.X}, []int{5, dims.SparseExtent}))
	require.Equal(t, 5, sparse.data.ElementCount())
}

func TestFromScalar(t *testing.T) {
	v, err := FromScalar(2.5, units.Seconds)
	require.NoError(t, err)
	require.Equal(t, Float64, v.Kind())
	require.Equal(t, 0, v.Dims().Rank())
	vals, err := Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{2.5}, vals)

	b, err := FromScalar(true, units.Dimensionless)
	require.NoError(t, err)
	require.Equal(t, Bool, b.Kind())
}

func TestValuesKindMismatch(t *testing.T) {
	v := Zeros(Float64, units.Dimensionless, dims.Of(dims.X, 2))
	_, err := Values[int32](v)
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)
}

func TestCloneIsDeep(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	w := v.Clone()
	vals, err := Values[float64](w)
	require.NoError(t, err)
	vals[0] = 42
	orig, err := Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, orig, "mutating a clone must not touch the original")
	require.False(t, v.Equal(w))
}

func TestSlice(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})

	row, err := v.Slice(Slice{Dim: dims.Y, Begin: 1, End: 2})
	require.NoError(t, err)
	require.True(t, row.IsView())
	require.Equal(t, dims.Of(dims.Y, 1, dims.X, 3), row.Dims())
	vals, err := Values[float64](row)
	require.NoError(t, err)
	require.Equal(t, []float64{4, 5, 6}, vals)

	// Rank-dropping slice.
	dropped, err := v.Slice(Slice{Dim: dims.Y, Begin: 1, End: -1})
	require.NoError(t, err)
	require.Equal(t, dims.Of(dims.X, 3), dropped.Dims())

	// Sub-block along the inner axis is not contiguous.
	inner, err := v.Slice(Slice{Dim: dims.X, Begin: 0, End: 2})
	require.NoError(t, err)
	require.False(t, inner.data.IsContiguous())
	_, err = Values[float64](inner)
	require.Error(t, err)
	materialized := inner.Clone()
	vals, err = Values[float64](materialized)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 4, 5}, vals)

	// Empty slice has zero volume.
	empty, err := v.Slice(Slice{Dim: dims.X, Begin: 1, End: 1})
	require.NoError(t, err)
	require.Equal(t, 0, empty.Dims().Volume())

	// Out of range.
	_, err = v.Slice(Slice{Dim: dims.X, Begin: 0, End: 4})
	var sliceErr *SliceError
	require.ErrorAs(t, err, &sliceErr)
	_, err = v.Slice(Slice{Dim: dims.Z, Begin: 0, End: 1})
	require.ErrorAs(t, err, &sliceErr)
}

func TestSliceAssign(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	row, err := v.Slice(Slice{Dim: dims.Y, Begin: 0, End: 1})
	require.NoError(t, err)
	src := MustNew(Float64, units.Meters, dims.Of(dims.Y, 1, dims.X, 3), []float64{7, 8, 9})
	require.NoError(t, row.Assign(src))
	vals, err := Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{7, 8, 9, 4, 5, 6}, vals, "assignment must write through the view")

	// Unit mismatch fails before any write.
	bad := MustNew(Float64, units.Seconds, dims.Of(dims.Y, 1, dims.X, 3), []float64{0, 0, 0})
	require.Error(t, row.Assign(bad))
	vals, err = Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{7, 8, 9, 4, 5, 6}, vals)
}

func TestConstSlice(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	view, err := v.ConstSlice(Slice{Dim: dims.X, Begin: 0, End: 3})
	require.NoError(t, err)
	src := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{9, 9, 9})
	err = view.Assign(src)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	require.Error(t, view.AddAssign(src))
}

func TestReshape(t *testing.T) {
	v := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	r, err := v.Reshape(dims.Of(dims.Z, 6))
	require.NoError(t, err)
	vals, err := Values[float64](r)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, vals)

	_, err = v.Reshape(dims.Of(dims.Z, 5))
	require.Error(t, err)

	// Reshaping a transposed view goes through a contiguous copy.
	tr, err := v.Transpose(nil)
	require.NoError(t, err)
	r2, err := tr.Reshape(dims.Of(dims.Z, 6))
	require.NoError(t, err)
	vals, err = Values[float64](r2)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, vals)
}

func TestTranspose(t *testing.T) {
	v := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	tr, err := v.Transpose(nil)
	require.NoError(t, err)
	require.Equal(t, dims.Of(dims.X, 3, dims.Y, 2), tr.Dims())
	require.True(t, tr.IsView())
	require.False(t, tr.data.IsContiguous())

	// Transposing back with the inverse order restores the original.
	back, err := tr.Transpose([]dims.Dim{dims.Y, dims.X})
	require.NoError(t, err)
	require.True(t, back.Equal(v))

	materialized := tr.Clone()
	vals, err := Values[float64](materialized)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, vals)

	_, err = v.Transpose([]dims.Dim{dims.X})
	require.Error(t, err)
	_, err = v.Transpose([]dims.Dim{dims.X, dims.Z})
	require.Error(t, err)
}

func TestRename(t *testing.T) {
	v := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, v.Rename(dims.Y, dims.Spectrum))
	require.Equal(t, dims.Of(dims.Spectrum, 2, dims.X, 3), v.Dims())
	require.Error(t, v.Rename(dims.Z, dims.Y))
}

func TestSetUnitOnPartialView(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	part, err := v.Slice(Slice{Dim: dims.X, Begin: 0, End: 2})
	require.NoError(t, err)
	err = part.SetUnit(units.Seconds)
	var unitErr *UnitError
	require.ErrorAs(t, err, &unitErr)

	whole, err := v.Slice(Slice{Dim: dims.X, Begin: 0, End: 3})
	require.NoError(t, err)
	require.NoError(t, whole.SetUnit(units.Seconds))
}

func TestEqual(t *testing.T) {
	a := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	b := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	require.True(t, a.Equal(b))

	// A transposed layout with the same logical content is equal.
	tr := MustNew(Float64, units.Meters, dims.Of(dims.X, 3, dims.Y, 2),
		[]float64{1, 4, 2, 5, 3, 6})
	require.True(t, a.Equal(tr))

	require.False(t, a.Equal(b.WithName("other")))
	c := b.Clone()
	require.NoError(t, c.SetUnit(units.Seconds))
	require.False(t, a.Equal(c))
	d := b.Clone()
	vals, err := Values[float64](d)
	require.NoError(t, err)
	vals[5] = -6
	require.False(t, a.Equal(d))
}

func TestStridedIndex(t *testing.T) {
	parent := dims.Of(dims.Y, 2, dims.X, 3)

	// Identity traversal.
	it, err := newStridedIndex(parent, parent, 0)
	require.NoError(t, err)
	require.Equal(t, 6, it.Length())
	var got []int
	for i := 0; i < it.Length(); i++ {
		got = append(got, it.Next())
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)

	// Transposed traversal.
	it, err = newStridedIndex(parent, dims.Of(dims.X, 3, dims.Y, 2), 0)
	require.NoError(t, err)
	got = got[:0]
	for i := 0; i < it.Length(); i++ {
		got = append(got, it.Next())
	}
	require.Equal(t, []int{0, 3, 1, 4, 2, 5}, got)

	// Broadcast traversal: X-only data viewed as (Y, X).
	it, err = newStridedIndex(dims.Of(dims.X, 3), parent, 0)
	require.NoError(t, err)
	got = got[:0]
	for i := 0; i < it.Length(); i++ {
		got = append(got, it.Next())
	}
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, got)

	// Sub-block with a base offset.
	it, err = newStridedIndex(parent, dims.Of(dims.Y, 2, dims.X, 2), 1)
	require.NoError(t, err)
	got = got[:0]
	for i := 0; i < it.Length(); i++ {
		got = append(got, it.Next())
	}
	require.Equal(t, []int{1, 2, 4, 5}, got)

	// Oversized non-broadcast extent is rejected.
	_, err = newStridedIndex(parent, dims.Of(dims.Y, 3, dims.X, 3), 0)
	require.Error(t, err)
}
