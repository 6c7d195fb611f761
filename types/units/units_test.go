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

package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	require.True(t, Meters.Mul(Meters).Div(Meters).Equal(Meters))
	require.True(t, Meters.Div(Meters).Equal(Dimensionless))
	require.True(t, Counts.Mul(Dimensionless).Equal(Counts))

	speed := Meters.Div(Seconds)
	require.False(t, speed.Equal(Meters))
	require.True(t, speed.Mul(Seconds).Equal(Meters))
}

func TestSqrt(t *testing.T) {
	area := Meters.Mul(Meters)
	side, err := area.Sqrt()
	require.NoError(t, err)
	require.True(t, side.Equal(Meters))

	root, err := Dimensionless.Sqrt()
	require.NoError(t, err)
	require.True(t, root.Equal(Dimensionless))

	_, err = Meters.Sqrt()
	require.Error(t, err)
}

func TestString(t *testing.T) {
	require.Equal(t, "dimensionless", Dimensionless.String())
	require.Equal(t, "m", Meters.String())
	require.Equal(t, "counts", Counts.String())
	require.Equal(t, "m^2", Meters.Mul(Meters).String())
	require.Equal(t, "m/s", Meters.Div(Seconds).String())
	require.Equal(t, "1/s", Dimensionless.Div(Seconds).String())
}
