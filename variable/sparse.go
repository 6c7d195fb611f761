package variable

import (
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

// The fused sparse/dense path: events (one ragged list of coordinate
// values per dense row) multiplied or divided by the histogram bin
// each event falls into. The implicit weight of an event is 1, so the
// result carries a factor of counts that dataset arithmetic divides
// out when appropriate.

// isLinspace reports whether the edge values are uniformly spaced
// (within a small relative tolerance) and increasing.
func isLinspace[T number](edges []T) bool {
	if len(edges) < 2 {
		return false
	}
	front := float64(edges[0])
	back := float64(edges[len(edges)-1])
	if back <= front {
		return false
	}
	spacing := (back - front) / float64(len(edges)-1)
	tolerance := 1e-9 * spacing
	for i := 1; i < len(edges); i++ {
		expected := front + float64(i)*spacing
		if math.Abs(float64(edges[i])-expected) > tolerance {
			return false
		}
	}
	return true
}

// SparseDenseOp multiplies (OpMul) or divides (OpDiv) the implicit
// unit weight of every event in sparseCoord by the bin of weights the
// event falls into, where edges gives the bin boundaries along the
// sparse dimension. Events outside the edge range get weight 0.
//
// Only uniformly spaced edges are supported. The result is a sparse
// Variable shaped as sparseCoord whose unit is op(counts, weights
// unit).
func SparseDenseOp(op BinOp, sparseCoord, edges, weights Variable) (Variable, error) {
	if op != OpMul && op != OpDiv {
		return Variable{}, errors.WithStack(&SparseError{
			Msg: "unsupported operation " + op.String() + " between sparse and dense data",
		})
	}
	if !sparseCoord.Kind().IsSparse() {
		return Variable{}, errors.WithStack(&SparseError{
			Msg: "expected sparse event coordinate, got " + sparseCoord.Kind().String(),
		})
	}
	dim := sparseCoord.Dims().SparseDim()
	scalarKind := sparseCoord.Kind().ScalarKind()
	if err := expectKindEqual(scalarKind, edges.Kind()); err != nil {
		return Variable{}, errors.WithMessage(err, "sparse-dense operation")
	}
	if err := expectKindEqual(scalarKind, weights.Kind()); err != nil {
		return Variable{}, errors.WithMessage(err, "sparse-dense operation")
	}
	if err := expectUnitEqual(sparseCoord.Unit(), edges.Unit()); err != nil {
		return Variable{}, errors.WithMessage(err, "sparse-dense operation")
	}
	if edges.Dims().Rank() != 1 || !edges.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(&SparseError{
			Msg: "expected 1-D bin edges along " + dim.String() + ", got " + edges.Dims().String(),
		})
	}
	nbin := edges.Dims().Extent(dim) - 1
	if !weights.Dims().Contains(dim) || weights.Dims().Extent(dim) != nbin {
		return Variable{}, errors.WithStack(&DimensionError{
			Expected: edges.Dims(), Actual: weights.Dims(),
			Msg: "sparse-dense operation: weights must have one value per bin of the edges along " + dim.String(),
		})
	}
	outerDims, err := weights.Dims().Erase(dim)
	if err != nil {
		return Variable{}, err
	}
	if !outerDims.Equal(sparseCoord.Dims().Dense()) {
		return Variable{}, errors.WithStack(dimensionMismatch(sparseCoord.Dims(), weights.Dims()))
	}

	// The kernels index the event rows and edges contiguously.
	if sparseCoord.data.IsView() {
		sparseCoord = sparseCoord.Clone()
	}
	if edges.data.IsView() {
		edges = edges.Clone()
	}

	// Implicit event weight of 1 count.
	outUnit := units.Counts.Mul(weights.Unit())
	if op == OpDiv {
		outUnit = units.Counts.Div(weights.Unit())
	}
	out := Zeros(sparseCoord.Kind(), outUnit, sparseCoord.Dims())

	switch sparseCoord.Kind() {
	case SparseFloat64:
		err = sparseDenseOpT[float64](op, out, sparseCoord, edges, weights, dim, nbin)
	case SparseFloat32:
		err = sparseDenseOpT[float32](op, out, sparseCoord, edges, weights, dim, nbin)
	case SparseInt64:
		err = sparseDenseOpT[int64](op, out, sparseCoord, edges, weights, dim, nbin)
	}
	if err != nil {
		return Variable{}, err
	}
	return out, nil
}

func sparseDenseOpT[T number](op BinOp, out, sparseCoord, edges, weights Variable, dim dims.Dim, nbin int) error {
	edgeVals := span[T](edges.data)
	if !isLinspace(edgeVals) {
		return errors.WithStack(&SparseError{
			Msg: "non-constant bin width not supported yet",
		})
	}
	offset := float64(edgeVals[0])
	scale := float64(nbin) / (float64(edgeVals[nbin]) - offset)

	coordRows := span[[]T](sparseCoord.data)
	outRows := span[[]T](out.data)
	weightVals := flat[T](weights.data.buf)

	// Row base offsets of the weights in the iteration order of the
	// sparse rows, so a transposed weights view still lines up.
	wi, err := weights.data.iter(sparseCoord.Dims().Dense())
	if err != nil {
		return err
	}
	rows := len(coordRows)
	weightBases := make([]int, rows)
	for i := 0; i < rows; i++ {
		weightBases[i] = wi.Next()
	}
	binStride := weights.data.parent.Stride(dim)

	// Division by an empty bin yields an infinite weight for floats
	// and zero for integer events.
	var zero T
	divZero := zero
	switch any(zero).(type) {
	case float64, float32:
		divZero = T(math.Inf(1))
	}

	klog.V(2).Infof("sparse-dense %s: %d rows, %d bins", op, rows, nbin)
	parallelFor(rows, func(p int) {
		events := coordRows[p]
		result := make([]T, len(events))
		base := weightBases[p]
		for i, event := range events {
			bin := int(math.Floor((float64(event) - offset) * scale))
			var w T
			if bin >= 0 && bin < nbin {
				w = weightVals[base+bin*binStride]
			}
			switch {
			case op == OpMul:
				result[i] = w // op(1, w)
			case w != 0:
				result[i] = 1 / w
			default:
				result[i] = divZero
			}
		}
		outRows[p] = result
	})
	return nil
}
