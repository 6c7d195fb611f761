package variable

import (
	"github.com/pkg/errors"
)

// In-place arithmetic. Units are checked (addition and subtraction
// require equal units; multiplication and division combine them) and
// the RHS dims must be contained in the LHS dims; all checks happen
// before any element is written.

// AddAssign implements v += other.
func (v *Variable) AddAssign(other Variable) error {
	if err := expectUnitEqual(v.Unit(), other.Unit()); err != nil {
		return errors.WithMessage(err, "cannot add Variables")
	}
	if err := requireContains(v, other); err != nil {
		return errors.WithMessage(err, "cannot add Variables")
	}
	return v.data.InPlaceOp(other.data, OpAdd)
}

// SubAssign implements v -= other.
func (v *Variable) SubAssign(other Variable) error {
	if err := expectUnitEqual(v.Unit(), other.Unit()); err != nil {
		return errors.WithMessage(err, "cannot subtract Variables")
	}
	if err := requireContains(v, other); err != nil {
		return errors.WithMessage(err, "cannot subtract Variables")
	}
	return v.data.InPlaceOp(other.data, OpSub)
}

// MulAssign implements v *= other; the unit becomes the product.
func (v *Variable) MulAssign(other Variable) error {
	if err := requireContains(v, other); err != nil {
		return errors.WithMessage(err, "cannot multiply Variables")
	}
	// SetUnit catches illegal unit changes through a partial view
	// before any element is written.
	if err := v.SetUnit(v.Unit().Mul(other.Unit())); err != nil {
		return err
	}
	return v.data.InPlaceOp(other.data, OpMul)
}

// DivAssign implements v /= other; the unit becomes the quotient.
func (v *Variable) DivAssign(other Variable) error {
	if err := requireContains(v, other); err != nil {
		return errors.WithMessage(err, "cannot divide Variables")
	}
	if err := v.SetUnit(v.Unit().Div(other.Unit())); err != nil {
		return err
	}
	return v.data.InPlaceOp(other.data, OpDiv)
}

// OrAssign implements v |= other for boolean masks.
func (v *Variable) OrAssign(other Variable) error {
	if err := requireContains(v, other); err != nil {
		return errors.WithMessage(err, "cannot combine masks")
	}
	return v.data.InPlaceOp(other.data, OpOr)
}

func requireContains(v *Variable, other Variable) error {
	// Sparse/nested kinds align by their own rules in InPlaceOp.
	if v.Kind().IsSparse() || v.Kind() == DatasetKind {
		return nil
	}
	if !v.Dims().ContainsAll(other.Dims()) {
		return errors.WithStack(&DimensionError{
			Expected: v.Dims(),
			Actual:   other.Dims(),
			Msg:      "dimensions do not match: " + other.Dims().String() + " not contained in " + v.Dims().String(),
		})
	}
	return nil
}

// Add returns a + b. The result takes a's dims (which must contain
// b's) and name.
func Add(a, b Variable) (Variable, error) {
	out := a.Clone()
	if err := out.AddAssign(b); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Sub returns a - b.
func Sub(a, b Variable) (Variable, error) {
	out := a.Clone()
	if err := out.SubAssign(b); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Mul returns a * b with the product unit.
func Mul(a, b Variable) (Variable, error) {
	out := a.Clone()
	if err := out.MulAssign(b); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Div returns a / b with the quotient unit.
func Div(a, b Variable) (Variable, error) {
	out := a.Clone()
	if err := out.DivAssign(b); err != nil {
		return Variable{}, err
	}
	return out, nil
}

// Or returns the union of two boolean masks, broadcast to the wider
// of the two shapes.
func Or(a, b Variable) (Variable, error) {
	if b.Dims().ContainsAll(a.Dims()) && !a.Dims().ContainsAll(b.Dims()) {
		a, b = b, a
	}
	out := a.Clone()
	if err := out.OrAssign(b); err != nil {
		return Variable{}, err
	}
	return out, nil
}
