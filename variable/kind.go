// Package variable implements the labeled multi-dimensional array at
// the heart of dimarray: a value-typed container carrying an element
// kind, a unit of measurement and named dimensions, with strided views
// for slicing, broadcasting and transposition, elementwise arithmetic
// with automatic alignment over labels, histogram rebinning and fused
// sparse/dense event arithmetic.
package variable

// Kind identifies the concrete element type held by a Variable's
// storage. The set is closed; all type dispatch is a switch on Kind.
type Kind int8

const (
	InvalidKind Kind = iota
	Float64
	Float32
	Int32
	Int64
	Bool
	String
	// DatasetKind stores one nested aggregation per element (see the
	// Nested interface).
	DatasetKind
	// Vector3Kind stores a fixed-length vector of 3 doubles per element.
	Vector3Kind
	// Sparse kinds store one resizable container of scalars per dense
	// row; the innermost dimension of such a Variable is sparse.
	SparseFloat64
	SparseFloat32
	SparseInt64
)

var kindNames = [...]string{
	InvalidKind:   "<invalid>",
	Float64:       "float64",
	Float32:       "float32",
	Int32:         "int32",
	Int64:         "int64",
	Bool:          "bool",
	String:        "string",
	DatasetKind:   "dataset",
	Vector3Kind:   "vector3",
	SparseFloat64: "sparse-float64",
	SparseFloat32: "sparse-float32",
	SparseInt64:   "sparse-int64",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "<unregistered kind>"
	}
	return kindNames[k]
}

// IsArithmetic reports whether the kind admits numeric elementwise
// arithmetic. Strings, bools, vectors and nested datasets do not;
// sparse kinds have their own fused operations instead.
func (k Kind) IsArithmetic() bool {
	switch k {
	case Float64, Float32, Int32, Int64:
		return true
	}
	return false
}

// IsSparse reports whether the kind stores per-row event containers.
func (k Kind) IsSparse() bool {
	switch k {
	case SparseFloat64, SparseFloat32, SparseInt64:
		return true
	}
	return false
}

// IsFloat reports whether the kind is a dense floating-point kind.
func (k Kind) IsFloat() bool { return k == Float64 || k == Float32 }

// ScalarKind returns the dense kind of a sparse kind's events, or the
// kind itself when dense.
func (k Kind) ScalarKind() Kind {
	switch k {
	case SparseFloat64:
		return Float64
	case SparseFloat32:
		return Float32
	case SparseInt64:
		return Int64
	}
	return k
}

// Vector3 is the element of Vector3Kind variables.
type Vector3 [3]float64

// Nested is the element of DatasetKind variables: a nested aggregation
// stored by value. It is implemented by dataset.Dataset; variable only
// needs deep copy and equality.
type Nested interface {
	CloneNested() Nested
	EqualNested(other Nested) bool
}

// NestedConcatenater is the optional capability used by the events
// path: += between DatasetKind variables concatenates each pair of
// row aggregations instead of adding numerically.
type NestedConcatenater interface {
	Nested
	ConcatNested(other Nested) (Nested, error)
}
