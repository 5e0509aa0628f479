package bson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimal128StringRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"0.0",
		"-0",
		"1",
		"-1",
		"1.5",
		"3.14159",
		"1234567890123456789012345678901234",
		"1E+3",
		"9.999999999999999999999999999999999E+6144",
	}
	for _, s := range cases {
		s := s
		t.Run(s, func(t *testing.T) {
			d, err := ParseDecimal128(s)
			require.NoError(t, err)

			d2, err := ParseDecimal128(d.String())
			require.NoError(t, err)
			require.True(t, d.Equal(d2), "round trip through String() changed bits: %s -> %s -> %s", s, d.String(), d2.String())
		})
	}
}

func TestDecimal128SpecialValues(t *testing.T) {
	d, err := ParseDecimal128("NaN")
	require.NoError(t, err)
	require.True(t, d.IsNaN())
	require.Equal(t, "NaN", d.String())

	d, err = ParseDecimal128("Infinity")
	require.NoError(t, err)
	require.True(t, d.IsInf())
	require.Equal(t, "Infinity", d.String())

	d, err = ParseDecimal128("-Infinity")
	require.NoError(t, err)
	require.True(t, d.IsInf())
	require.Equal(t, "-Infinity", d.String())
}

func TestDecimal128BoundaryExamples(t *testing.T) {
	// See DESIGN.md #2: "1E6112" clamps up to "10E6111" rather than
	// overflowing, per a literal trace of the §4.C clamp-up algorithm.
	d, err := ParseDecimal128("1E6112")
	require.NoError(t, err)
	require.False(t, d.IsInf())
	require.False(t, d.IsNaN())

	_, err = ParseDecimal128("1E-6177")
	require.Error(t, err)

	d, err = ParseDecimal128("0E-6177")
	require.NoError(t, err)
	require.Equal(t, "0E-6176", d.String())
}

func TestDecimal128Overflow(t *testing.T) {
	// 34 significant digits leaves no room to clamp the exponent down.
	_, err := ParseDecimal128("9999999999999999999999999999999999E+6112")
	require.Error(t, err)
}

func TestDecimal128InvalidString(t *testing.T) {
	_, err := ParseDecimal128("not-a-number")
	require.Error(t, err)
}

func TestDecimal128Equal(t *testing.T) {
	a, _ := ParseDecimal128("1.0")
	b, _ := ParseDecimal128("1.0")
	c, _ := ParseDecimal128("2.0")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
