package variable

import (
	"math"

	"github.com/pkg/errors"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

// The elementwise transform engine: a closure set keyed by concrete
// element kinds plus one closure for the unit arithmetic. The engine
// validates the input kinds against the registered closures, aligns
// strided cursors to the widest input dims and fans the closure out
// over the elements. A missing closure for the input's kind is a
// KindError naming it.

// UnaryOps registers the closures of a one-input transform. Exactly
// the closures for the kinds the operation supports are set; Unit
// (when non-nil) maps the input unit to the output unit and runs once.
type UnaryOps struct {
	F64     func(float64) float64
	F32     func(float32) float32
	V3      func(Vector3) Vector3
	V3ToF64 func(Vector3) float64
	Unit    func(units.Unit) (units.Unit, error)
}

// Transform applies ops elementwise to v, returning a fresh Variable
// of the same shape (and of the closure's result kind).
func Transform(v Variable, ops UnaryOps) (Variable, error) {
	outUnit := v.Unit()
	if ops.Unit != nil {
		var err error
		if outUnit, err = ops.Unit(v.Unit()); err != nil {
			return Variable{}, err
		}
	}
	switch v.Kind() {
	case Float64:
		if ops.F64 == nil {
			break
		}
		return transformT(v, outUnit, Float64, ops.F64)
	case Float32:
		if ops.F32 == nil {
			break
		}
		return transformT(v, outUnit, Float32, ops.F32)
	case Vector3Kind:
		if ops.V3ToF64 != nil {
			return transformT(v, outUnit, Float64, ops.V3ToF64)
		}
		if ops.V3 != nil {
			return transformT(v, outUnit, Vector3Kind, ops.V3)
		}
	}
	return Variable{}, errors.WithStack(&KindError{
		Actual: v.Kind(),
		Msg:    "no transform registered for kind " + v.Kind().String(),
	})
}

func transformT[In, Out any](v Variable, outUnit units.Unit, outKind Kind, fn func(In) Out) (Variable, error) {
	out := Zeros(outKind, outUnit, v.Dims()).WithName(v.Name())
	si, err := v.data.iter(v.Dims())
	if err != nil {
		return Variable{}, err
	}
	src := flat[In](v.data.buf)
	dst := flat[Out](out.data.buf)
	n := si.Length()
	for i := 0; i < n; i++ {
		dst[i] = fn(src[si.Next()])
	}
	return out, nil
}

// InPlaceOps registers the closures of a transform writing into an
// existing output. In-place transforms forbid type promotion: the
// output kind must equal the input kind. Unit receives the output and
// input units and returns the new output unit.
type InPlaceOps struct {
	F64  func(dst *float64, src float64)
	F32  func(dst *float32, src float32)
	Unit func(dst, src units.Unit) (units.Unit, error)
}

// TransformInPlace applies ops elementwise with v broadcast to out's
// dims. All precondition checks run before the first write.
func TransformInPlace(out *Variable, v Variable, ops InPlaceOps) error {
	if err := expectKindEqual(out.Kind(), v.Kind()); err != nil {
		return err
	}
	if !out.Dims().ContainsAll(v.Dims()) {
		return errors.WithStack(dimensionMismatch(out.Dims(), v.Dims()))
	}
	if ops.Unit != nil {
		newUnit, err := ops.Unit(out.Unit(), v.Unit())
		if err != nil {
			return err
		}
		if err := out.SetUnit(newUnit); err != nil {
			return err
		}
	}
	switch out.Kind() {
	case Float64:
		if ops.F64 == nil {
			break
		}
		return transformInPlaceT(out, v, ops.F64)
	case Float32:
		if ops.F32 == nil {
			break
		}
		return transformInPlaceT(out, v, ops.F32)
	}
	return errors.WithStack(&KindError{
		Actual: out.Kind(),
		Msg:    "no in-place transform registered for kind " + out.Kind().String(),
	})
}

func transformInPlaceT[T any](out *Variable, v Variable, fn func(dst *T, src T)) error {
	if out.data.readOnly {
		return errors.WithStack(errConstView())
	}
	out.data.detach()
	di, err := out.data.iter(out.Dims())
	if err != nil {
		return err
	}
	si, err := v.data.iter(out.Dims())
	if err != nil {
		return err
	}
	dst := flat[T](out.data.buf)
	src := flat[T](v.data.buf)
	n := di.Length()
	for i := 0; i < n; i++ {
		fn(&dst[di.Next()], src[si.Next()])
	}
	return nil
}

// BinaryOps registers the closures of a two-input transform.
type BinaryOps struct {
	F64   func(a, b float64) float64
	F32   func(a, b float32) float32
	V3Dot func(a, b Vector3) float64
	Unit  func(a, b units.Unit) (units.Unit, error)
}

// TransformBinary applies ops elementwise over a and b aligned to the
// wider of the two dims, returning a fresh Variable.
func TransformBinary(a, b Variable, ops BinaryOps) (Variable, error) {
	if err := expectKindEqual(a.Kind(), b.Kind()); err != nil {
		return Variable{}, err
	}
	var iterDims dims.Dimensions
	switch {
	case a.Dims().ContainsAll(b.Dims()):
		iterDims = a.Dims()
	case b.Dims().ContainsAll(a.Dims()):
		iterDims = b.Dims()
	default:
		return Variable{}, errors.WithStack(dimensionMismatch(a.Dims(), b.Dims()))
	}
	outUnit := a.Unit()
	if ops.Unit != nil {
		var err error
		if outUnit, err = ops.Unit(a.Unit(), b.Unit()); err != nil {
			return Variable{}, err
		}
	}
	switch a.Kind() {
	case Float64:
		if ops.F64 == nil {
			break
		}
		return transformBinaryT(a, b, iterDims, outUnit, Float64, ops.F64)
	case Float32:
		if ops.F32 == nil {
			break
		}
		return transformBinaryT(a, b, iterDims, outUnit, Float32, ops.F32)
	case Vector3Kind:
		if ops.V3Dot == nil {
			break
		}
		return transformBinaryT(a, b, iterDims, outUnit, Float64, ops.V3Dot)
	}
	return Variable{}, errors.WithStack(&KindError{
		Actual: a.Kind(),
		Msg:    "no transform registered for kind " + a.Kind().String(),
	})
}

func transformBinaryT[In, Out any](a, b Variable, iterDims dims.Dimensions, outUnit units.Unit, outKind Kind, fn func(In, In) Out) (Variable, error) {
	out := Zeros(outKind, outUnit, iterDims)
	ai, err := a.data.iter(iterDims)
	if err != nil {
		return Variable{}, err
	}
	bi, err := b.data.iter(iterDims)
	if err != nil {
		return Variable{}, err
	}
	va := flat[In](a.data.buf)
	vb := flat[In](b.data.buf)
	dst := flat[Out](out.data.buf)
	n := ai.Length()
	for i := 0; i < n; i++ {
		dst[i] = fn(va[ai.Next()], vb[bi.Next()])
	}
	return out, nil
}

// Abs returns |v| elementwise, unit unchanged.
func Abs(v Variable) (Variable, error) {
	return Transform(v, UnaryOps{
		F64:  math.Abs,
		F32:  func(x float32) float32 { return float32(math.Abs(float64(x))) },
		Unit: func(u units.Unit) (units.Unit, error) { return u, nil },
	})
}

// Sqrt returns the elementwise square root; the unit is halved (and
// must have even exponents).
func Sqrt(v Variable) (Variable, error) {
	return Transform(v, UnaryOps{
		F64:  math.Sqrt,
		F32:  func(x float32) float32 { return float32(math.Sqrt(float64(x))) },
		Unit: func(u units.Unit) (units.Unit, error) { return u.Sqrt() },
	})
}

// Reciprocal returns 1/v elementwise with the inverted unit.
func Reciprocal(v Variable) (Variable, error) {
	return Transform(v, UnaryOps{
		F64: func(x float64) float64 { return 1 / x },
		F32: func(x float32) float32 { return 1 / x },
		Unit: func(u units.Unit) (units.Unit, error) {
			return units.Dimensionless.Div(u), nil
		},
	})
}

// Norm returns the Euclidean norm of each Vector3 element.
func Norm(v Variable) (Variable, error) {
	return Transform(v, UnaryOps{
		V3ToF64: func(x Vector3) float64 {
			return math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		},
		Unit: func(u units.Unit) (units.Unit, error) { return u, nil },
	})
}

// Dot returns the elementwise dot product of two Vector3 Variables
// with the product unit.
func Dot(a, b Variable) (Variable, error) {
	return TransformBinary(a, b, BinaryOps{
		V3Dot: func(x, y Vector3) float64 {
			return x[0]*y[0] + x[1]*y[1] + x[2]*y[2]
		},
		Unit: func(ua, ub units.Unit) (units.Unit, error) { return ua.Mul(ub), nil },
	})
}

// ReplaceNaN returns v with NaN elements replaced by replacement,
// whose type must match v's element kind exactly.
func ReplaceNaN(v Variable, replacement any) (Variable, error) {
	switch repl := replacement.(type) {
	case float64:
		if v.Kind() != Float64 {
			return Variable{}, errors.WithStack(&KindError{
				Expected: Float64, Actual: v.Kind(),
				Msg: "replacement type does not match type of input",
			})
		}
		return Transform(v, UnaryOps{
			F64: func(x float64) float64 {
				if math.IsNaN(x) {
					return repl
				}
				return x
			},
			Unit: func(u units.Unit) (units.Unit, error) { return u, nil },
		})
	case float32:
		if v.Kind() != Float32 {
			return Variable{}, errors.WithStack(&KindError{
				Expected: Float32, Actual: v.Kind(),
				Msg: "replacement type does not match type of input",
			})
		}
		return Transform(v, UnaryOps{
			F32: func(x float32) float32 {
				if math.IsNaN(float64(x)) {
					return repl
				}
				return x
			},
			Unit: func(u units.Unit) (units.Unit, error) { return u, nil },
		})
	}
	return Variable{}, errors.Errorf("replace-nan: unsupported replacement type %T", replacement)
}
