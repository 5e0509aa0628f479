package bson

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func docValue(t *testing.T, pairs ...Pair) Value {
	t.Helper()
	b := NewDocumentBuilder()
	for _, p := range pairs {
		b.Append(p.Key, p.Value)
	}
	d, err := b.Build()
	require.NoError(t, err)
	return NewDocument(d)
}

func TestExtJSONCanonicalRoundTrip(t *testing.T) {
	id := NewObjectID()
	v := docValue(t,
		Pair{Key: "_id", Value: NewObjectIDValue(id)},
		Pair{Key: "n", Value: NewInt32(7)},
		Pair{Key: "big", Value: NewInt64(1 << 40)},
		Pair{Key: "pi", Value: NewDouble(3.5)},
		Pair{Key: "s", Value: NewString("hello")},
		Pair{Key: "t", Value: NewBool(true)},
		Pair{Key: "nil", Value: NewNull()},
		Pair{Key: "undef", Value: NewUndefined()},
		Pair{Key: "mink", Value: NewMinKey()},
		Pair{Key: "maxk", Value: NewMaxKey()},
	)

	out, err := MarshalExtJSON(v, Canonical)
	require.NoError(t, err)

	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, v.Equal(got), "canonical round trip changed the value:\n%s", out)
}

func TestExtJSONRelaxedRoundTrip(t *testing.T) {
	v := docValue(t,
		Pair{Key: "n", Value: NewInt32(7)},
		Pair{Key: "pi", Value: NewDouble(3.5)},
		Pair{Key: "s", Value: NewString("hi")},
	)

	out, err := MarshalExtJSON(v, Relaxed)
	require.NoError(t, err)
	require.NotContains(t, string(out), "$numberInt")
	require.NotContains(t, string(out), "$numberDouble")

	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestExtJSONRelaxedInt64MagnitudeGuard(t *testing.T) {
	small := NewInt64(42)
	out, err := MarshalExtJSON(small, Relaxed)
	require.NoError(t, err)
	require.Equal(t, "42", string(out))

	// A bare relaxed integer that fits 32 bits reads back as int32.
	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, NewInt32(42).Equal(got))

	big := NewInt64(1 << 60)
	out, err = MarshalExtJSON(big, Relaxed)
	require.NoError(t, err)
	require.Contains(t, string(out), "$numberLong")

	got, err = UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, big.Equal(got))
}

func TestExtJSONBinaryRoundTrip(t *testing.T) {
	v := NewBinary(Binary{Subtype: SubtypeGeneric, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	out, err := MarshalExtJSON(v, Canonical)
	require.NoError(t, err)

	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestExtJSONDecimal128RoundTrip(t *testing.T) {
	d, err := ParseDecimal128("3.14159")
	require.NoError(t, err)
	v := NewDecimal128Value(d)

	out, err := MarshalExtJSON(v, Canonical)
	require.NoError(t, err)
	require.Contains(t, string(out), "$numberDecimal")

	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	require.True(t, v.Equal(got))
}

func TestExtJSONLegacyBinaryType(t *testing.T) {
	got, err := UnmarshalExtJSON([]byte(`{"$binary":"3q2+7w==","$type":"00"}`))
	require.NoError(t, err)
	b, ok := got.AsBinary()
	require.True(t, ok)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, b.Data)
}

func TestExtJSONLegacyRegex(t *testing.T) {
	got, err := UnmarshalExtJSON([]byte(`{"$regex":"^abc","$options":"i"}`))
	require.NoError(t, err)
	r, ok := got.AsRegex()
	require.True(t, ok)
	require.Equal(t, "^abc", r.Pattern)
	require.Equal(t, "i", r.Options)
}

func TestExtJSONOrdinaryObjectNotAWrapper(t *testing.T) {
	got, err := UnmarshalExtJSON([]byte(`{"foo":"bar","baz":1}`))
	require.NoError(t, err)
	d, ok := got.AsDocument()
	require.True(t, ok)
	v, ok := d.Get("foo")
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "bar", s)
}

func TestExtJSONPreservesKeyOrder(t *testing.T) {
	got, err := UnmarshalExtJSON([]byte(`{"z":1,"a":2,"m":3}`))
	require.NoError(t, err)
	d, ok := got.AsDocument()
	require.True(t, ok)
	require.Equal(t, []string{"z", "a", "m"}, d.Keys())
}

func TestExtJSONInvalidWrapperShapeIsDataCorrupted(t *testing.T) {
	_, err := UnmarshalExtJSON([]byte(`{"$oid":123}`))
	require.Error(t, err)
	var dc *DataCorruptedError
	require.True(t, errors.As(err, &dc), "expected a DataCorruptedError, got %T", err)
}

func TestExtJSONArrayRoundTrip(t *testing.T) {
	vals := []Value{NewInt32(1), NewString("two"), NewBool(false)}
	d, err := NewArrayDocument(vals)
	require.NoError(t, err)
	v := NewArray(d)

	out, err := MarshalExtJSON(v, Canonical)
	require.NoError(t, err)

	got, err := UnmarshalExtJSON(out)
	require.NoError(t, err)
	gotArr, ok := got.AsArray()
	require.True(t, ok)
	gotVals, err := gotArr.ArrayValues()
	require.NoError(t, err)
	require.Len(t, gotVals, 3)
}
