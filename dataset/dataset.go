// Package dataset aggregates Variables by role: coordinates keyed by
// dimension label, plus named labels, data, masks and attributes.
// Arithmetic between Datasets aligns operands over their coordinates,
// OR-combines their masks and dispatches the fused sparse/dense path
// when one side holds events and the other a histogram over the
// events' dimension.
package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
	"github.com/dimarray/dimarray/variable"
)

// Role classifies the entries of a Dataset.
type Role int8

const (
	Coord Role = iota
	Label
	Data
	Mask
	Attr
)

var roleNames = [...]string{Coord: "coord", Label: "label", Data: "data", Mask: "mask", Attr: "attr"}

// String implements fmt.Stringer.
func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "<unknown role>"
	}
	return roleNames[r]
}

// Dataset maps (role, name) to Variables. Coordinates are keyed by
// dimension label; the other roles by name. The zero value is not
// usable, call New.
type Dataset struct {
	coords map[dims.Dim]variable.Variable
	labels map[string]variable.Variable
	data   map[string]variable.Variable
	masks  map[string]variable.Variable
	attrs  map[string]variable.Variable
}

// New returns an empty Dataset.
func New() *Dataset {
	return &Dataset{
		coords: map[dims.Dim]variable.Variable{},
		labels: map[string]variable.Variable{},
		data:   map[string]variable.Variable{},
		masks:  map[string]variable.Variable{},
		attrs:  map[string]variable.Variable{},
	}
}

// SetCoord stores the coordinate for the given dimension.
func (d *Dataset) SetCoord(dim dims.Dim, v variable.Variable) { d.coords[dim] = v }

// Coord returns the coordinate for dim.
func (d *Dataset) Coord(dim dims.Dim) (variable.Variable, bool) {
	v, ok := d.coords[dim]
	return v, ok
}

// SetLabel stores an auxiliary coordinate under name.
func (d *Dataset) SetLabel(name string, v variable.Variable) { d.labels[name] = v }

// Label returns the labels Variable under name.
func (d *Dataset) Label(name string) (variable.Variable, bool) {
	v, ok := d.labels[name]
	return v, ok
}

// SetData stores a data item under name.
func (d *Dataset) SetData(name string, v variable.Variable) {
	d.data[name] = v.WithName(name)
}

// Data returns the data item under name.
func (d *Dataset) Data(name string) (variable.Variable, bool) {
	v, ok := d.data[name]
	return v, ok
}

// SetMask stores a boolean mask under name.
func (d *Dataset) SetMask(name string, v variable.Variable) { d.masks[name] = v }

// Mask returns the mask under name.
func (d *Dataset) Mask(name string) (variable.Variable, bool) {
	v, ok := d.masks[name]
	return v, ok
}

// SetAttr stores an attribute under name.
func (d *Dataset) SetAttr(name string, v variable.Variable) { d.attrs[name] = v }

// Attr returns the attribute under name.
func (d *Dataset) Attr(name string) (variable.Variable, bool) {
	v, ok := d.attrs[name]
	return v, ok
}

// Del removes the entry with the given role and name (for coords,
// name is the dimension label's string form).
func (d *Dataset) Del(role Role, name string) {
	switch role {
	case Coord:
		for dim := range d.coords {
			if dim.String() == name {
				delete(d.coords, dim)
			}
		}
	case Label:
		delete(d.labels, name)
	case Data:
		delete(d.data, name)
	case Mask:
		delete(d.masks, name)
	case Attr:
		delete(d.attrs, name)
	}
}

// CoordDims returns the dimensions that have coordinates, sorted.
func (d *Dataset) CoordDims() []dims.Dim {
	ks := maps.Keys(d.coords)
	slices.Sort(ks)
	return ks
}

// DataNames returns the data item names, sorted.
func (d *Dataset) DataNames() []string {
	ks := maps.Keys(d.data)
	slices.Sort(ks)
	return ks
}

// MaskNames returns the mask names, sorted.
func (d *Dataset) MaskNames() []string {
	ks := maps.Keys(d.masks)
	slices.Sort(ks)
	return ks
}

// Dims returns the union of the dimensions of all data items, in
// first-seen order over the sorted item names.
func (d *Dataset) Dims() dims.Dimensions {
	var out dims.Dimensions
	for _, name := range d.DataNames() {
		itemDims := d.data[name].Dims()
		for i, label := range itemDims.Labels() {
			if out.Contains(label) {
				continue
			}
			extent := itemDims.Extents()[i]
			if extent == dims.SparseExtent {
				continue
			}
			var err error
			out, err = out.Add(label, extent)
			if err != nil {
				continue
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New()
	for dim, v := range d.coords {
		out.coords[dim] = v.Clone()
	}
	for name, v := range d.labels {
		out.labels[name] = v.Clone()
	}
	for name, v := range d.data {
		out.data[name] = v.Clone()
	}
	for name, v := range d.masks {
		out.masks[name] = v.Clone()
	}
	for name, v := range d.attrs {
		out.attrs[name] = v.Clone()
	}
	return out
}

// Equal reports deep equality of all entries of all roles.
func (d *Dataset) Equal(other *Dataset) bool {
	if len(d.coords) != len(other.coords) || len(d.labels) != len(other.labels) ||
		len(d.data) != len(other.data) || len(d.masks) != len(other.masks) ||
		len(d.attrs) != len(other.attrs) {
		return false
	}
	for dim, v := range d.coords {
		o, ok := other.coords[dim]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	for _, pair := range []struct{ a, b map[string]variable.Variable }{
		{d.labels, other.labels}, {d.data, other.data}, {d.masks, other.masks}, {d.attrs, other.attrs},
	} {
		for name, v := range pair.a {
			o, ok := pair.b[name]
			if !ok || !v.Equal(o) {
				return false
			}
		}
	}
	return true
}

// String implements fmt.Stringer with one line per entry.
func (d *Dataset) String() string {
	var b strings.Builder
	b.WriteString("<Dataset>\n")
	b.WriteString("Dimensions: " + d.Dims().String() + "\n")
	b.WriteString("Coordinates:\n")
	for _, dim := range d.CoordDims() {
		fmt.Fprintf(&b, "    %-12s%s\n", dim, d.coords[dim])
	}
	b.WriteString("Data:\n")
	for _, name := range d.DataNames() {
		fmt.Fprintf(&b, "    %-12s%s\n", name, d.data[name])
	}
	if len(d.masks) > 0 {
		b.WriteString("Masks:\n")
		for _, name := range d.MaskNames() {
			fmt.Fprintf(&b, "    %-12s%s\n", name, d.masks[name])
		}
	}
	return b.String()
}

// expectAligned verifies that every coordinate and label of other
// matches this dataset's: the alignment precondition of arithmetic.
// Coordinates of skipDim are exempted (the fused sparse path compares
// mismatching histogram edges by design of the operation).
func (d *Dataset) expectAligned(other *Dataset, skipDim dims.Dim) error {
	for dim, coord := range other.coords {
		if dim == skipDim {
			continue
		}
		mine, ok := d.coords[dim]
		if !ok || !mine.Equal(coord) {
			return errors.Errorf("expected coords to match for dimension %s", dim)
		}
	}
	for name, label := range other.labels {
		mine, ok := d.labels[name]
		if !ok || !mine.Equal(label) {
			return errors.Errorf("expected labels to match for %q", name)
		}
	}
	return nil
}

// unionMasksInPlace ORs other's masks into d's, adopting masks d does
// not have yet.
func (d *Dataset) unionMasksInPlace(other *Dataset) error {
	for _, name := range other.MaskNames() {
		theirs := other.masks[name]
		mine, ok := d.masks[name]
		if !ok {
			d.masks[name] = theirs.Clone()
			continue
		}
		merged, err := variable.Or(mine, theirs)
		if err != nil {
			return errors.WithMessagef(err, "cannot merge mask %q", name)
		}
		d.masks[name] = merged
	}
	return nil
}

// MergeMasksContaining returns the OR-union of all masks that have dim
// among their dimensions.
func (d *Dataset) MergeMasksContaining(dim dims.Dim) (variable.Variable, error) {
	union, err := variable.New(variable.Bool, units.Dimensionless, dims.Dimensions{}, nil)
	if err != nil {
		return variable.Variable{}, err
	}
	for _, name := range d.MaskNames() {
		mask := d.masks[name]
		if !mask.Dims().Contains(dim) {
			continue
		}
		if union, err = variable.Or(union, mask); err != nil {
			return variable.Variable{}, err
		}
	}
	return union, nil
}

// MergeMasksContainedIn returns the OR-union of all masks whose every
// dimension appears in the given dims.
func (d *Dataset) MergeMasksContainedIn(within dims.Dimensions) (variable.Variable, error) {
	union, err := variable.New(variable.Bool, units.Dimensionless, dims.Dimensions{}, nil)
	if err != nil {
		return variable.Variable{}, err
	}
	for _, name := range d.MaskNames() {
		mask := d.masks[name]
		if !within.ContainsAll(mask.Dims()) {
			continue
		}
		if union, err = variable.Or(union, mask); err != nil {
			return variable.Variable{}, err
		}
	}
	return union, nil
}
