package bson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests pin the concrete end-to-end scenarios from the
// specification's worked-examples section: byte-exact where the
// scenario names exact bytes, property-level where it only names an
// invariant.

func TestScenarioS1HelloWorldBytes(t *testing.T) {
	d := buildDoc(t, Pair{Key: "hello", Value: NewString("world")})

	want := []byte{
		0x16, 0x00, 0x00, 0x00,
		0x02, 0x68, 0x65, 0x6C, 0x6C, 0x6F, 0x00,
		0x06, 0x00, 0x00, 0x00,
		0x77, 0x6F, 0x72, 0x6C, 0x64, 0x00,
		0x00,
	}
	require.Equal(t, want, d.Raw())
}

func TestScenarioS2ArrayOfMixedTypes(t *testing.T) {
	arr, err := NewArrayDocument([]Value{
		NewString("awesome"),
		NewDouble(5.05),
		NewInt32(1986),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1", "2"}, arr.Keys())

	d := buildDoc(t, Pair{Key: "BSON", Value: NewArray(arr)})
	raw := d.Raw()

	require.Equal(t, []byte{0x31, 0x00, 0x00, 0x00}, raw[:4])
	require.Len(t, raw, 0x31)

	pairs := arr.Pairs()
	require.Len(t, pairs, 3)
	require.Equal(t, TypeString, pairs[0].Value.typ)
	require.Equal(t, TypeDouble, pairs[1].Value.typ)
	require.Equal(t, TypeInt32, pairs[2].Value.typ)
}

func TestScenarioS3Decimal128FromExtJSON(t *testing.T) {
	v, err := UnmarshalExtJSON([]byte(`{"d":{"$numberDecimal":"1.2E+10"}}`))
	require.NoError(t, err)
	doc, ok := v.AsDocument()
	require.True(t, ok)

	field, ok := doc.Get("d")
	require.True(t, ok)
	require.Equal(t, TypeDecimal128, field.typ)

	dec, ok := field.AsDecimal128()
	require.True(t, ok)
	require.Equal(t, "1.2E+10", dec.String())
}

func TestScenarioS4ObjectIDCaseInsensitiveRoundTrip(t *testing.T) {
	id, err := ObjectIDFromHex("507F1F77BCF86CD799439011")
	require.NoError(t, err)
	require.Equal(t, "507f1f77bcf86cd799439011", id.Hex())
}

func TestScenarioS5RelaxedDateDecodesToExpectedEpochMillis(t *testing.T) {
	v, err := UnmarshalExtJSON([]byte(`{"$date":"2001-01-01T01:23:20Z"}`))
	require.NoError(t, err)
	ms, ok := v.AsDateTime()
	require.True(t, ok)
	require.Equal(t, int64(978312200000), ms)
}

func TestScenarioS6CanonicalBinaryRelaxedReencode(t *testing.T) {
	v, err := UnmarshalExtJSON([]byte(`{"$binary":{"base64":"//8=","subType":"00"}}`))
	require.NoError(t, err)
	bin, ok := v.AsBinary()
	require.True(t, ok)
	require.Equal(t, []byte{0xFF, 0xFF}, bin.Data)
	require.Equal(t, SubtypeGeneric, bin.Subtype)

	out, err := MarshalExtJSON(v, Relaxed)
	require.NoError(t, err)
	require.Equal(t, `{"$binary":{"base64":"//8=","subType":"00"}}`, string(out))
}
