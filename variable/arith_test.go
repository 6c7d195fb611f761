package variable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

func TestAddSameDims(t *testing.T) {
	a := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	b := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{10, 20, 30})

	sum, err := Add(a, b)
	require.NoError(t, err)
	vals, err := Values[float64](sum)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 22, 33}, vals)

	// Commutativity.
	sum2, err := Add(b, a)
	require.NoError(t, err)
	require.True(t, sum.Equal(sum2))

	// (a + b) - b == a.
	diff, err := Sub(sum, b)
	require.NoError(t, err)
	require.True(t, diff.Equal(a))

	// Operands are untouched.
	vals, err = Values[float64](a)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, vals)
}

func TestBroadcastAdd(t *testing.T) {
	a := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	b := MustNew(Float64, units.Dimensionless, dims.Of(dims.X, 3), []float64{10, 20, 30})

	sum, err := Add(a, b)
	require.NoError(t, err)
	vals, err := Values[float64](sum)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 22, 33, 14, 25, 36}, vals)
}

func TestTransposedAdd(t *testing.T) {
	a := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	// b holds aᵀ: same logical values under transposed layout.
	b := MustNew(Float64, units.Dimensionless, dims.Of(dims.X, 3, dims.Y, 2),
		[]float64{1, 4, 2, 5, 3, 6})

	sum, err := Add(a, b)
	require.NoError(t, err)
	vals, err := Values[float64](sum)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 4, 6, 8, 10, 12}, vals, "a + aᵀ must equal 2a")
}

func TestAddErrors(t *testing.T) {
	a := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})

	// Unit mismatch.
	b := MustNew(Float64, units.Seconds, dims.Of(dims.X, 3), []float64{1, 2, 3})
	err := a.AddAssign(b)
	var unitErr *UnitError
	require.ErrorAs(t, err, &unitErr)

	// Kind mismatch.
	c := MustNew(Int64, units.Meters, dims.Of(dims.X, 3), []int64{1, 2, 3})
	err = a.AddAssign(c)
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)

	// Dims mismatch: neither contains the other.
	d := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2), []float64{1, 2})
	err = a.AddAssign(d)
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)

	// LHS must not grow: RHS with extra dims is rejected in +=.
	e := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	require.ErrorAs(t, a.AddAssign(e), &dimErr)

	// Failed preconditions leave the LHS untouched.
	vals, verr := Values[float64](a)
	require.NoError(t, verr)
	require.Equal(t, []float64{1, 2, 3}, vals)
}

func TestNonArithmeticKinds(t *testing.T) {
	a := MustNew(String, units.Dimensionless, dims.Of(dims.X, 2), []string{"a", "b"})
	b := MustNew(String, units.Dimensionless, dims.Of(dims.X, 2), []string{"c", "d"})
	err := a.AddAssign(b)
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)
	require.Contains(t, err.Error(), "string")

	v := Zeros(Vector3Kind, units.Meters, dims.Of(dims.X, 2))
	require.Error(t, v.MulAssign(v))
}

func TestMulDivUnits(t *testing.T) {
	a := MustNew(Float64, units.Meters, dims.Of(dims.X, 2), []float64{6, 8})
	b := MustNew(Float64, units.Seconds, dims.Of(dims.X, 2), []float64{2, 4})

	prod, err := Mul(a, b)
	require.NoError(t, err)
	require.True(t, prod.Unit().Equal(units.Meters.Mul(units.Seconds)))
	vals, err := Values[float64](prod)
	require.NoError(t, err)
	require.Equal(t, []float64{12, 32}, vals)

	quot, err := Div(a, b)
	require.NoError(t, err)
	require.True(t, quot.Unit().Equal(units.Meters.Div(units.Seconds)))
	vals, err = Values[float64](quot)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 2}, vals)
}

func TestScalarBroadcast(t *testing.T) {
	a := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	two, err := FromScalar(2.0, units.Dimensionless)
	require.NoError(t, err)
	scaled, err := Mul(a, two)
	require.NoError(t, err)
	vals, err := Values[float64](scaled)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 4, 6}, vals)
	require.True(t, scaled.Unit().Equal(units.Meters))
}

func TestZeroVolumeNoop(t *testing.T) {
	a := Zeros(Float64, units.Meters, dims.Of(dims.X, 0))
	b := Zeros(Float64, units.Meters, dims.Of(dims.X, 0))
	require.NoError(t, a.AddAssign(b))
	require.Equal(t, 0, a.Dims().Volume())
}

func TestIntegerArithmetic(t *testing.T) {
	a := MustNew(Int32, units.Dimensionless, dims.Of(dims.X, 3), []int32{7, 8, 9})
	b := MustNew(Int32, units.Dimensionless, dims.Of(dims.X, 3), []int32{2, 2, 2})
	quot, err := Div(a, b)
	require.NoError(t, err)
	vals, err := Values[int32](quot)
	require.NoError(t, err)
	require.Equal(t, []int32{3, 4, 4}, vals)
}

func TestMaskUnion(t *testing.T) {
	a := MustNew(Bool, units.Dimensionless, dims.Of(dims.X, 3), []bool{true, false, false})
	b := MustNew(Bool, units.Dimensionless, dims.Of(dims.X, 3), []bool{false, true, false})
	union, err := Or(a, b)
	require.NoError(t, err)
	vals, err := Values[bool](union)
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, false}, vals)

	// A scalar mask broadcasts against a wider one.
	scalar := Zeros(Bool, units.Dimensionless, dims.Dimensions{})
	union, err = Or(scalar, b)
	require.NoError(t, err)
	require.Equal(t, dims.Of(dims.X, 3), union.Dims())
}

func TestAddAssignThroughSliceView(t *testing.T) {
	v := MustNew(Float64, units.Dimensionless, dims.Of(dims.Y, 2, dims.X, 3),
		[]float64{1, 2, 3, 4, 5, 6})
	row, err := v.Slice(Slice{Dim: dims.Y, Begin: 0, End: 1})
	require.NoError(t, err)
	delta := MustNew(Float64, units.Dimensionless, dims.Of(dims.X, 3), []float64{10, 10, 10})
	require.NoError(t, row.AddAssign(delta))
	vals, err := Values[float64](v)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 12, 13, 4, 5, 6}, vals)
}
