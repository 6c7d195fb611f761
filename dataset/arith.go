package dataset

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
	"github.com/dimarray/dimarray/variable"
)

// IsHistogram reports whether the data item carries histogram values
// along dim: a bin-edge coordinate exists for dim whose extent along
// it is one larger than the data's.
func (d *Dataset) IsHistogram(name string, dim dims.Dim) bool {
	item, ok := d.data[name]
	if !ok {
		return false
	}
	coord, ok := d.coords[dim]
	if !ok {
		return false
	}
	if !item.Dims().Contains(dim) || !coord.Dims().Contains(dim) {
		return false
	}
	return coord.Dims().Extent(dim) == item.Dims().Extent(dim)+1
}

// isSparseAndHistogram reports whether the named items of d and other
// form a sparse/histogram pair in either direction.
func (d *Dataset) isSparseAndHistogram(other *Dataset, name string) bool {
	mine, ok := d.data[name]
	if !ok {
		return false
	}
	theirs, ok := other.data[name]
	if !ok {
		return false
	}
	return (mine.Dims().Sparse() && other.IsHistogram(name, mine.Dims().SparseDim())) ||
		(theirs.Dims().Sparse() && d.IsHistogram(name, theirs.Dims().SparseDim()))
}

// AddAssign implements d += other: aligned coords and labels, masks
// OR-combined, matching data items added elementwise (event items
// concatenate their lists).
func (d *Dataset) AddAssign(other *Dataset) error {
	return d.applyInPlace(other, func(mine *variable.Variable, theirs variable.Variable) error {
		return mine.AddAssign(theirs)
	})
}

// SubAssign implements d -= other.
func (d *Dataset) SubAssign(other *Dataset) error {
	return d.applyInPlace(other, func(mine *variable.Variable, theirs variable.Variable) error {
		return mine.SubAssign(theirs)
	})
}

func (d *Dataset) applyInPlace(other *Dataset, op func(mine *variable.Variable, theirs variable.Variable) error) error {
	if err := d.expectAligned(other, dims.Invalid); err != nil {
		return err
	}
	if err := d.unionMasksInPlace(other); err != nil {
		return err
	}
	for _, name := range other.DataNames() {
		theirs := other.data[name]
		mine, ok := d.data[name]
		if !ok {
			return errors.Errorf("cannot operate on Datasets: missing data item %q", name)
		}
		if err := op(&mine, theirs); err != nil {
			return errors.WithMessagef(err, "data item %q", name)
		}
		d.data[name] = mine
	}
	return nil
}

// MulAssign implements d *= other, dispatching the fused sparse/dense
// path when one side holds events and the other a histogram over the
// events' dimension.
func (d *Dataset) MulAssign(other *Dataset) error {
	return d.sparseDenseInPlace(variable.OpMul, other)
}

// DivAssign implements d /= other with the same dispatch as MulAssign.
func (d *Dataset) DivAssign(other *Dataset) error {
	return d.sparseDenseInPlace(variable.OpDiv, other)
}

func (d *Dataset) sparseDenseInPlace(op variable.BinOp, other *Dataset) error {
	for _, name := range other.DataNames() {
		mine, ok := d.data[name]
		if !ok {
			return errors.Errorf("cannot operate on Datasets: missing data item %q", name)
		}
		theirs := other.data[name]

		if !d.isSparseAndHistogram(other, name) {
			if err := d.expectAligned(other, dims.Invalid); err != nil {
				return err
			}
			if err := d.unionMasksInPlace(other); err != nil {
				return err
			}
			var err error
			if op == variable.OpMul {
				err = mine.MulAssign(theirs)
			} else {
				err = mine.DivAssign(theirs)
			}
			if err != nil {
				return errors.WithMessagef(err, "data item %q", name)
			}
			d.data[name] = mine
			continue
		}

		if !mine.Dims().Sparse() {
			// Histogram divided by events would give a 1/counts unit,
			// which has no meaning here.
			return errors.New("unsupported combination of sparse and dense data in binary arithmetic operation")
		}
		dim := mine.Dims().SparseDim()
		// The coord for dim differs between the operands by definition
		// of the operation; exclude it from the alignment check.
		if err := d.expectAligned(other, dim); err != nil {
			return err
		}
		if err := d.unionMasksInPlace(other); err != nil {
			return err
		}
		sparseCoord, ok := d.coords[dim]
		if !ok {
			return errors.Errorf("missing event coordinate for dimension %s", dim)
		}
		edges, ok := other.coords[dim]
		if !ok {
			return errors.Errorf("missing bin-edge coordinate for dimension %s", dim)
		}
		klog.V(1).Infof("dataset %s: fused sparse-dense path for item %q over %s", op, name, dim)
		weights, err := variable.SparseDenseOp(op, sparseCoord, edges, theirs)
		if err != nil {
			return errors.WithMessagef(err, "data item %q", name)
		}
		// Undo the implicit factor of counts the fused operation adds:
		// the events already carry their own counts unit.
		if err := weights.SetUnit(weights.Unit().Div(units.Counts)); err != nil {
			return err
		}
		if err := mine.MulAssign(weights); err != nil {
			return errors.WithMessagef(err, "data item %q", name)
		}
		d.data[name] = mine
	}
	return nil
}

// Add returns a + b.
func Add(a, b *Dataset) (*Dataset, error) {
	out := a.Clone()
	if err := out.AddAssign(b); err != nil {
		return nil, err
	}
	return out, nil
}

// Sub returns a - b.
func Sub(a, b *Dataset) (*Dataset, error) {
	out := a.Clone()
	if err := out.SubAssign(b); err != nil {
		return nil, err
	}
	return out, nil
}

// Mul returns a * b.
func Mul(a, b *Dataset) (*Dataset, error) {
	out := a.Clone()
	if err := out.MulAssign(b); err != nil {
		return nil, err
	}
	return out, nil
}

// Div returns a / b.
func Div(a, b *Dataset) (*Dataset, error) {
	out := a.Clone()
	if err := out.DivAssign(b); err != nil {
		return nil, err
	}
	return out, nil
}
