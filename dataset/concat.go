package dataset

import (
	"github.com/pkg/errors"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/variable"
)

// Concatenate joins two Datasets along dim: data items, and coords and
// masks that have dim among their dimensions, are concatenated. The
// other coords and the labels must match and are copied; the other
// masks are OR-combined. Attributes are copied from a and are not
// compared with b's.
//
// Concatenating along a dimension whose coordinate holds bin edges is
// rejected: joining two edge arrays would either duplicate or drop
// the shared boundary, and neither behavior is well-defined here.
func Concatenate(a, b *Dataset, dim dims.Dim) (*Dataset, error) {
	for _, name := range a.DataNames() {
		if a.IsHistogram(name, dim) {
			return nil, errors.Errorf(
				"cannot concatenate along %s: coordinate holds bin edges for data item %q", dim, name)
		}
	}
	out := New()
	for coordDim, coord := range a.coords {
		theirs, ok := b.coords[coordDim]
		if !ok {
			return nil, errors.Errorf("cannot concatenate Datasets: missing coordinate for %s", coordDim)
		}
		if coordDim == dim || coord.Dims().Contains(dim) {
			merged, err := variable.Concatenate(coord, theirs, dim)
			if err != nil {
				return nil, errors.WithMessagef(err, "coordinate %s", coordDim)
			}
			out.coords[coordDim] = merged
			continue
		}
		if !coord.Equal(theirs) {
			return nil, errors.Errorf("cannot concatenate Datasets: coordinate for %s does not match", coordDim)
		}
		out.coords[coordDim] = coord.Clone()
	}
	for name, label := range a.labels {
		theirs, ok := b.labels[name]
		if !ok || !label.Equal(theirs) {
			return nil, errors.Errorf("cannot concatenate Datasets: labels %q do not match", name)
		}
		out.labels[name] = label.Clone()
	}
	for _, name := range a.DataNames() {
		theirs, ok := b.data[name]
		if !ok {
			return nil, errors.Errorf("cannot concatenate Datasets: missing data item %q", name)
		}
		merged, err := variable.Concatenate(a.data[name], theirs, dim)
		if err != nil {
			return nil, errors.WithMessagef(err, "data item %q", name)
		}
		out.data[name] = merged
	}
	for _, name := range a.MaskNames() {
		mine := a.masks[name]
		theirs, ok := b.masks[name]
		if !ok {
			return nil, errors.Errorf("cannot concatenate Datasets: missing mask %q", name)
		}
		if mine.Dims().Contains(dim) {
			merged, err := variable.Concatenate(mine, theirs, dim)
			if err != nil {
				return nil, errors.WithMessagef(err, "mask %q", name)
			}
			out.masks[name] = merged
			continue
		}
		merged, err := variable.Or(mine, theirs)
		if err != nil {
			return nil, errors.WithMessagef(err, "mask %q", name)
		}
		out.masks[name] = merged
	}
	for name, attr := range a.attrs {
		out.attrs[name] = attr.Clone()
	}
	return out, nil
}

// The Nested interface of variable: a Dataset can be stored as the
// element of a DatasetKind Variable, and += between such Variables
// concatenates each pair of nested aggregations along their single
// dimension (the events path).

var _ variable.NestedConcatenater = (*Dataset)(nil)

// CloneNested implements variable.Nested.
func (d *Dataset) CloneNested() variable.Nested { return d.Clone() }

// EqualNested implements variable.Nested.
func (d *Dataset) EqualNested(other variable.Nested) bool {
	o, ok := other.(*Dataset)
	return ok && d.Equal(o)
}

// ConcatNested implements variable.NestedConcatenater: the nested
// aggregation must be 1-dimensional, and concatenation runs along
// that dimension.
func (d *Dataset) ConcatNested(other variable.Nested) (variable.Nested, error) {
	o, ok := other.(*Dataset)
	if !ok {
		return nil, errors.Errorf("cannot concatenate nested aggregation of type %T", other)
	}
	dataDims := d.Dims()
	if dataDims.Rank() != 1 {
		return nil, errors.New("cannot concatenate: nested aggregation dimension count must be 1")
	}
	return Concatenate(d, o, dataDims.Labels()[0])
}
