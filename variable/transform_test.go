package variable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

func TestAbs(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{-1, 2, -3})
	out, err := Abs(v)
	require.NoError(t, err)
	require.True(t, out.Unit().Equal(units.Meters))
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, vals)

	// No closure registered for integer kinds.
	i := MustNew(Int64, units.Meters, dims.Of(dims.X, 1), []int64{-1})
	_, err = Abs(i)
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)
}

func TestSqrt(t *testing.T) {
	area := units.Meters.Mul(units.Meters)
	v := MustNew(Float64, area, dims.Of(dims.X, 3), []float64{4, 9, 16})
	out, err := Sqrt(v)
	require.NoError(t, err)
	require.True(t, out.Unit().Equal(units.Meters))
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3, 4}, vals)

	// Odd unit exponent has no square root.
	odd := MustNew(Float64, units.Meters, dims.Of(dims.X, 1), []float64{4})
	_, err = Sqrt(odd)
	require.Error(t, err)
}

func TestReciprocal(t *testing.T) {
	v := MustNew(Float64, units.Seconds, dims.Of(dims.X, 2), []float64{2, 4})
	out, err := Reciprocal(v)
	require.NoError(t, err)
	require.True(t, out.Unit().Equal(units.Dimensionless.Div(units.Seconds)))
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.25}, vals)
}

func TestNormAndDot(t *testing.T) {
	v := MustNew(Vector3Kind, units.Meters, dims.Of(dims.X, 2),
		[]Vector3{{3, 4, 0}, {1, 2, 2}})
	norm, err := Norm(v)
	require.NoError(t, err)
	require.Equal(t, Float64, norm.Kind())
	vals, err := Values[float64](norm)
	require.NoError(t, err)
	require.Equal(t, []float64{5, 3}, vals)

	w := MustNew(Vector3Kind, units.Seconds, dims.Of(dims.X, 2),
		[]Vector3{{1, 0, 0}, {0, 1, 0}})
	dot, err := Dot(v, w)
	require.NoError(t, err)
	require.Equal(t, Float64, dot.Kind())
	require.True(t, dot.Unit().Equal(units.Meters.Mul(units.Seconds)))
	vals, err = Values[float64](dot)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 2}, vals)
}

func TestReplaceNaN(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3),
		[]float64{1, math.NaN(), 3})
	out, err := ReplaceNaN(v, 0.0)
	require.NoError(t, err)
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0, 3}, vals)

	// Replacement type must match the element kind.
	f32 := Zeros(Float32, units.Meters, dims.Of(dims.X, 1))
	_, err = ReplaceNaN(f32, 0.0)
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)
	_, err = ReplaceNaN(v, int64(0))
	require.Error(t, err)
}

func TestTransformInPlace(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.X, 3), []float64{1, 2, 3})
	out := Zeros(Float64, units.Meters, dims.Of(dims.X, 3))
	err := TransformInPlace(&out, v, InPlaceOps{
		F64: func(dst *float64, src float64) { *dst = 2 * src },
		Unit: func(dst, src units.Unit) (units.Unit, error) {
			return src, nil
		},
	})
	require.NoError(t, err)
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 4, 6}, vals)

	// In-place transforms forbid promotion across kinds.
	out32 := Zeros(Float32, units.Meters, dims.Of(dims.X, 3))
	err = TransformInPlace(&out32, v, InPlaceOps{
		F32: func(dst *float32, src float32) { *dst = src },
	})
	var kindErr *KindError
	require.ErrorAs(t, err, &kindErr)
}

func TestTransformOnView(t *testing.T) {
	v := MustNew(Float64, units.Meters, dims.Of(dims.Y, 2, dims.X, 2),
		[]float64{1, -2, -3, 4})
	tr, err := v.Transpose(nil)
	require.NoError(t, err)
	out, err := Abs(tr)
	require.NoError(t, err)
	require.Equal(t, dims.Of(dims.X, 2, dims.Y, 2), out.Dims())
	vals, err := Values[float64](out)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 3, 2, 4}, vals, "transform follows the view's iteration order")
}
