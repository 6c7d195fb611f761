/*
 *	Copyright 2024 The dimarray Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package dims

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	d, err := Make([]Dim{Y, X}, []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, 2, d.Rank())
	require.Equal(t, 6, d.Volume())
	require.True(t, d.Contains(X))
	require.False(t, d.Contains(Z))
	require.Equal(t, 3, d.Extent(X))
	require.Equal(t, 2, d.Extent(Y))

	_, err = Make([]Dim{X, X}, []int{2, 3})
	require.Error(t, err)
	_, err = Make([]Dim{X}, []int{-2})
	require.Error(t, err)
	_, err = Make([]Dim{Invalid}, []int{2})
	require.Error(t, err)

	// Sparse marker only allowed on the last axis.
	_, err = Make([]Dim{X, Y}, []int{SparseExtent, 3})
	require.Error(t, err)
	sparse, err := Make([]Dim{Y, X}, []int{3, SparseExtent})
	require.NoError(t, err)
	require.True(t, sparse.Sparse())
	require.Equal(t, X, sparse.SparseDim())
	require.Equal(t, 3, sparse.DenseVolume())
	require.Panics(t, func() { sparse.Volume() })
}

func TestOf(t *testing.T) {
	d := Of(Y, 2, X, 3)
	require.Equal(t, []Dim{Y, X}, d.Labels())
	require.Equal(t, []int{2, 3}, d.Extents())
	require.Panics(t, func() { Of(Y) })
	require.Panics(t, func() { Of(1, 2) })
}

func TestStride(t *testing.T) {
	d := Of(Z, 4, Y, 2, X, 3)
	require.Equal(t, 1, d.Stride(X))
	require.Equal(t, 3, d.Stride(Y))
	require.Equal(t, 6, d.Stride(Z))
	require.Panics(t, func() { d.Stride(Time) })

	// The sparse axis has no stride; dense axes before it do.
	sparse := MustMake([]Dim{Y, X}, []int{3, SparseExtent})
	require.Equal(t, 1, sparse.Stride(Y))
	require.Panics(t, func() { sparse.Stride(X) })
}

func TestModifiers(t *testing.T) {
	d := Of(Y, 2, X, 3)

	added, err := d.Add(Z, 4)
	require.NoError(t, err)
	require.Equal(t, []Dim{Y, X, Z}, added.Labels())
	_, err = d.Add(X, 4)
	require.Error(t, err)

	outer, err := d.AddOuter(Z, 4)
	require.NoError(t, err)
	require.Equal(t, []Dim{Z, Y, X}, outer.Labels())

	resized, err := d.Resize(X, 7)
	require.NoError(t, err)
	require.Equal(t, 7, resized.Extent(X))
	require.Equal(t, 3, d.Extent(X), "Resize must not alias the receiver")
	_, err = d.Resize(Z, 1)
	require.Error(t, err)

	erased, err := d.Erase(Y)
	require.NoError(t, err)
	require.Equal(t, []Dim{X}, erased.Labels())

	relabeled, err := d.Relabel(0, Spectrum)
	require.NoError(t, err)
	require.Equal(t, []Dim{Spectrum, X}, relabeled.Labels())
	_, err = d.Relabel(1, Y)
	require.Error(t, err)
}

func TestContainsAll(t *testing.T) {
	d := Of(Y, 2, X, 3)
	require.True(t, d.ContainsAll(Of(X, 3)))
	require.True(t, d.ContainsAll(Of(X, 3, Y, 2)), "order must not matter")
	require.True(t, d.ContainsAll(Dimensions{}))
	require.False(t, d.ContainsAll(Of(X, 4)))
	require.False(t, d.ContainsAll(Of(Z, 1)))
	require.True(t, d.IsPermutationOf(Of(X, 3, Y, 2)))
	require.False(t, d.IsPermutationOf(Of(X, 3)))
}

func TestIsContiguousIn(t *testing.T) {
	parent := Of(Z, 4, Y, 2, X, 3)
	require.True(t, parent.IsContiguousIn(parent))
	require.True(t, Of(Y, 2, X, 3).IsContiguousIn(parent))
	require.True(t, Of(Z, 2, Y, 2, X, 3).IsContiguousIn(parent), "outermost may shrink")
	require.False(t, Of(Z, 4, Y, 1, X, 3).IsContiguousIn(parent), "inner may not shrink")
	require.False(t, Of(X, 3, Y, 2).IsContiguousIn(parent), "order matters")
	require.False(t, Of(Z, 4, X, 3).IsContiguousIn(parent))
}

func TestString(t *testing.T) {
	require.Equal(t, "[]", Dimensions{}.String())
	require.Equal(t, "[y:2 x:3]", Of(Y, 2, X, 3).String())
	require.Equal(t, "[spectrum:4 tof:*]", MustMake([]Dim{Spectrum, Tof}, []int{4, SparseExtent}).String())
}
