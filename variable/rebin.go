package variable

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/dimarray/dimarray/types/dims"
)

// Rebin resamples the histogram v along dim from the bin edges in
// oldCoord to those in newCoord: every output bin accumulates, from
// each overlapping input bin, the input value scaled by the fraction
// of the input bin covered by the overlap. Totals are conserved when
// the new edges cover the old range.
//
// The edge coordinates have one more value along dim than the data.
// Accumulation is deterministic (input axis, then input index), so
// results are reproducible for fixed inputs.
func Rebin(v Variable, dim dims.Dim, oldCoord, newCoord Variable) (Variable, error) {
	if !v.Kind().IsArithmetic() {
		return Variable{}, errors.WithStack(&KindError{
			Actual: v.Kind(),
			Msg:    v.Kind().String() + " is not an arithmetic type, cannot rebin",
		})
	}
	if err := expectKindEqual(v.Kind(), oldCoord.Kind()); err != nil {
		return Variable{}, errors.WithMessage(err, "cannot rebin")
	}
	if err := expectKindEqual(v.Kind(), newCoord.Kind()); err != nil {
		return Variable{}, errors.WithMessage(err, "cannot rebin")
	}
	if err := expectUnitEqual(oldCoord.Unit(), newCoord.Unit()); err != nil {
		return Variable{}, errors.WithMessage(err, "cannot rebin")
	}
	if !v.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(v.Dims(), dim))
	}
	if !oldCoord.Dims().Contains(dim) || !newCoord.Dims().Contains(dim) {
		return Variable{}, errors.WithStack(dimensionNotFound(newCoord.Dims(), dim))
	}
	oldSize := v.Dims().Extent(dim)
	if oldCoord.Dims().Extent(dim) != oldSize+1 {
		return Variable{}, errors.WithStack(&DimensionError{
			Expected: v.Dims(), Actual: oldCoord.Dims(),
			Msg: "cannot rebin: expected bin-edge coordinate with one more value than the data along " + dim.String(),
		})
	}
	newSize := newCoord.Dims().Extent(dim) - 1
	outDims, err := v.Dims().Resize(dim, newSize)
	if err != nil {
		return Variable{}, err
	}
	out := Zeros(v.Kind(), v.Unit(), outDims).WithName(v.Name())

	switch v.Kind() {
	case Float64:
		err = rebinT[float64](out, v, dim, oldCoord, newCoord)
	case Float32:
		err = rebinT[float32](out, v, dim, oldCoord, newCoord)
	case Int32:
		err = rebinT[int32](out, v, dim, oldCoord, newCoord)
	case Int64:
		err = rebinT[int64](out, v, dim, oldCoord, newCoord)
	}
	if err != nil {
		return Variable{}, err
	}
	return out, nil
}

func rebinT[T number](out Variable, v Variable, dim dims.Dim, oldCoord, newCoord Variable) error {
	innermost := v.Dims().Labels()[v.Dims().Rank()-1] == dim &&
		out.Dims().Labels()[out.Dims().Rank()-1] == dim
	if innermost && oldCoord.Dims().Rank() == 1 && newCoord.Dims().Rank() == 1 &&
		v.data.IsContiguous() && oldCoord.data.IsContiguous() && newCoord.data.IsContiguous() {
		return rebinInnerT[T](out, v, dim, oldCoord, newCoord)
	}
	return rebinGenericT[T](out, v, dim, oldCoord, newCoord)
}

// rebinInnerT rebins the innermost dimension against a single shared
// pair of edge arrays. Rows are independent contiguous sweeps, so the
// outer index range is processed in parallel.
func rebinInnerT[T number](out Variable, v Variable, dim dims.Dim, oldCoord, newCoord Variable) error {
	oldData := span[T](v.data)
	newData := span[T](out.data)
	xold := span[T](oldCoord.data)
	xnew := span[T](newCoord.data)
	oldSize := v.Dims().Extent(dim)
	newSize := out.Dims().Extent(dim)
	count := 1
	if oldSize > 0 {
		count = v.Dims().Volume() / oldSize
	}
	klog.V(2).Infof("rebin: inner kernel, %d rows of %d -> %d bins", count, oldSize, newSize)
	parallelFor(count, func(c int) {
		oldOffset := c * oldSize
		newOffset := c * newSize
		rebinRow(newData[newOffset:newOffset+newSize], oldData[oldOffset:oldOffset+oldSize], xold, xnew)
	})
	return nil
}

// rebinRow sweeps one contiguous 1-D sub-histogram.
func rebinRow[T number](newData, oldData []T, xold, xnew []T) {
	oldSize := len(oldData)
	newSize := len(newData)
	iold, inew := 0, 0
	for iold < oldSize && inew < newSize {
		xoLow := xold[iold]
		xoHigh := xold[iold+1]
		xnLow := xnew[inew]
		xnHigh := xnew[inew+1]
		switch {
		case xnHigh <= xoLow:
			inew++ // No overlap, go to next new bin.
		case xoHigh <= xnLow:
			iold++ // No overlap, go to next old bin.
		default:
			// delta is the overlap of the bins on the coordinate axis.
			delta := min(xoHigh, xnHigh) - max(xoLow, xnLow)
			owidth := xoHigh - xoLow
			newData[inew] += oldData[iold] * delta / owidth
			if xnHigh > xoHigh {
				iold++
			} else {
				inew++
			}
		}
	}
}

// rebinGenericT handles every other case: dim not innermost, per-row
// edge coordinates, or strided (view) inputs. It walks the outer
// index space sequentially, sweeping each 1-D sub-histogram through
// strided cursors.
func rebinGenericT[T number](out Variable, v Variable, dim dims.Dim, oldCoord, newCoord Variable) error {
	outerDims, err := v.Dims().Erase(dim)
	if err != nil {
		return err
	}
	oldIt, err := v.data.iter(outerDims)
	if err != nil {
		return err
	}
	newIt, err := out.data.iter(outerDims)
	if err != nil {
		return err
	}
	oldCoordIt, err := oldCoord.data.iter(outerDims)
	if err != nil {
		return err
	}
	newCoordIt, err := newCoord.data.iter(outerDims)
	if err != nil {
		return err
	}

	oldData := flat[T](v.data.buf)
	newData := flat[T](out.data.buf)
	xold := flat[T](oldCoord.data.buf)
	xnew := flat[T](newCoord.data.buf)

	oldStride := v.data.parent.Stride(dim)
	newStride := out.data.parent.Stride(dim)
	oldCoordStride := oldCoord.data.parent.Stride(dim)
	newCoordStride := newCoord.data.parent.Stride(dim)
	oldSize := v.Dims().Extent(dim)
	newSize := out.Dims().Extent(dim)

	rows := oldIt.Length()
	klog.V(2).Infof("rebin: generic kernel, %d rows of %d -> %d bins", rows, oldSize, newSize)
	for r := 0; r < rows; r++ {
		oldBase := oldIt.Next()
		newBase := newIt.Next()
		oldCoordBase := oldCoordIt.Next()
		newCoordBase := newCoordIt.Next()
		iold, inew := 0, 0
		for iold < oldSize && inew < newSize {
			xoLow := xold[oldCoordBase+iold*oldCoordStride]
			xoHigh := xold[oldCoordBase+(iold+1)*oldCoordStride]
			xnLow := xnew[newCoordBase+inew*newCoordStride]
			xnHigh := xnew[newCoordBase+(inew+1)*newCoordStride]
			switch {
			case xnHigh <= xoLow:
				inew++
			case xoHigh <= xnLow:
				iold++
			default:
				delta := min(xoHigh, xnHigh) - max(xoLow, xnLow)
				owidth := xoHigh - xoLow
				newData[newBase+inew*newStride] += oldData[oldBase+iold*oldStride] * delta / owidth
				if xnHigh > xoHigh {
					iold++
				} else {
					inew++
				}
			}
		}
	}
	return nil
}
