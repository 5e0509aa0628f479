package bson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type customMarshaler struct{ n int }

func (c customMarshaler) MarshalBSONValue() (Value, error) {
	return NewInt32(int32(c.n)), nil
}

type customUnmarshaler struct{ n int }

func (c *customUnmarshaler) UnmarshalBSONValue(v Value) error {
	i, ok := v.AsInt32()
	if !ok {
		return newTypeMismatch("int32", v.Type().String())
	}
	c.n = int(i)
	return nil
}

func TestValueOfNativeScalars(t *testing.T) {
	v, ok := ValueOf(true)
	require.True(t, ok)
	require.Equal(t, TypeBool, v.Type())

	v, ok = ValueOf("hello")
	require.True(t, ok)
	require.Equal(t, TypeString, v.Type())

	v, ok = ValueOf(42)
	require.True(t, ok)
	require.Equal(t, TypeInt32, v.Type())

	v, ok = ValueOf(int64(1) << 40)
	require.True(t, ok)
	require.Equal(t, TypeInt64, v.Type())

	v, ok = ValueOf(3.14)
	require.True(t, ok)
	require.Equal(t, TypeDouble, v.Type())

	_, ok = ValueOf(struct{ X int }{1})
	require.False(t, ok, "arbitrary structs are out of scope for ValueOf")
}

func TestValueOfMarshaler(t *testing.T) {
	v, ok := ValueOf(customMarshaler{n: 5})
	require.True(t, ok)
	i, _ := v.AsInt32()
	require.Equal(t, int32(5), i)
}

func TestEncodeDecodeDocument(t *testing.T) {
	b := NewDocumentBuilder()
	b.Append("x", NewInt32(1))
	d, err := b.Build()
	require.NoError(t, err)

	got, err := Encode(d)
	require.NoError(t, err)
	require.True(t, d.Equal(got))

	var dst Document
	require.NoError(t, Decode(d, &dst))
	require.True(t, d.Equal(dst))
}

func TestEncodeRejectsNonDocumentTopLevel(t *testing.T) {
	_, err := Encode(42)
	require.Error(t, err)
}

func TestDecodeValueIntoScalarPointers(t *testing.T) {
	var s string
	require.NoError(t, DecodeValue(NewString("hi"), &s))
	require.Equal(t, "hi", s)

	var i64 int64
	require.NoError(t, DecodeValue(NewInt32(7), &i64), "int64 dst must accept an int32-typed Value")
	require.Equal(t, int64(7), i64)

	var tm time.Time
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, DecodeValue(NewDateTimeFromTime(now), &tm))
	require.True(t, now.Equal(tm))
}

func TestDecodeValueIntoUnmarshaler(t *testing.T) {
	dst := &customUnmarshaler{}
	require.NoError(t, DecodeValue(NewInt32(9), dst))
	require.Equal(t, 9, dst.n)
}

func TestDecodeValueTypeMismatch(t *testing.T) {
	var b bool
	err := DecodeValue(NewString("nope"), &b)
	require.Error(t, err)
}
