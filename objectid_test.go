package bson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewObjectIDUnique(t *testing.T) {
	seen := make(map[ObjectID]bool)
	for i := 0; i < 1000; i++ {
		id := NewObjectID()
		require.False(t, seen[id], "NewObjectID produced a duplicate")
		seen[id] = true
	}
}

func TestObjectIDHexRoundTrip(t *testing.T) {
	id := NewObjectID()
	hex := id.Hex()
	require.Len(t, hex, 24)

	id2, err := ObjectIDFromHex(hex)
	require.NoError(t, err)
	require.Equal(t, id, id2)
}

func TestObjectIDFromHexRejectsBadLength(t *testing.T) {
	_, err := ObjectIDFromHex("abc")
	require.Error(t, err)
}

func TestObjectIDFromHexRejectsBadHex(t *testing.T) {
	_, err := ObjectIDFromHex("zzzzzzzzzzzzzzzzzzzzzzzz")
	require.Error(t, err)
}

func TestObjectIDIsZero(t *testing.T) {
	var id ObjectID
	require.True(t, id.IsZero())
	require.False(t, NewObjectID().IsZero())
}
