package bson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueAccessorsRoundTrip(t *testing.T) {
	require.Equal(t, TypeDouble, NewDouble(1.5).Type())
	f, ok := NewDouble(1.5).AsDouble()
	require.True(t, ok)
	require.Equal(t, 1.5, f)

	s, ok := NewString("hi").AsString()
	require.True(t, ok)
	require.Equal(t, "hi", s)

	_, ok = NewString("hi").AsDouble()
	require.False(t, ok, "AsDouble must reject a string-typed Value")

	id := NewObjectID()
	gotID, ok := NewObjectIDValue(id).AsObjectID()
	require.True(t, ok)
	require.Equal(t, id, gotID)

	now := time.Now().UTC().Truncate(time.Millisecond)
	v := NewDateTimeFromTime(now)
	gotTime, ok := v.AsTime()
	require.True(t, ok)
	require.True(t, now.Equal(gotTime))
}

func TestValueEqual(t *testing.T) {
	require.True(t, NewInt32(5).Equal(NewInt32(5)))
	require.False(t, NewInt32(5).Equal(NewInt32(6)))
	require.False(t, NewInt32(5).Equal(NewInt64(5)), "different types are never equal even with the same numeric value")

	require.True(t, NewNull().Equal(NewNull()))
	require.True(t, NewUndefined().Equal(NewUndefined()))

	b1 := NewBinary(Binary{Subtype: SubtypeGeneric, Data: []byte{1, 2, 3}})
	b2 := NewBinary(Binary{Subtype: SubtypeGeneric, Data: []byte{1, 2, 3}})
	b3 := NewBinary(Binary{Subtype: SubtypeGeneric, Data: []byte{1, 2, 4}})
	require.True(t, b1.Equal(b2))
	require.False(t, b1.Equal(b3))

	d1, _ := ParseDecimal128("1.50")
	d2, _ := ParseDecimal128("1.50")
	require.True(t, NewDecimal128Value(d1).Equal(NewDecimal128Value(d2)))
}

func TestValueHashConsistentWithEqual(t *testing.T) {
	a := NewString("same")
	b := NewString("same")
	require.Equal(t, a.Hash(), b.Hash())

	c := NewString("different")
	require.NotEqual(t, a.Hash(), c.Hash())
}

func TestValueIsHelpers(t *testing.T) {
	require.True(t, NewNull().IsNull())
	require.True(t, NewUndefined().IsUndefined())
	require.True(t, NewMinKey().IsMinKey())
	require.True(t, NewMaxKey().IsMaxKey())
	require.False(t, NewNull().IsUndefined())
}
