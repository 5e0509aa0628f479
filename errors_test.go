package bson

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPrependKeyPathJoinsDotted(t *testing.T) {
	base := newDataCorrupted("inner", "boom")
	wrapped := prependKeyPath("outer", base)

	var dc *DataCorruptedError
	require.True(t, errors.As(wrapped, &dc))
	require.Equal(t, "outer.inner", dc.KeyPath)
	require.Contains(t, wrapped.Error(), "outer.inner")
}

func TestPrependKeyPathOnNonDataCorrupted(t *testing.T) {
	base := newInvalidArgument("bad input")
	wrapped := prependKeyPath("field", base)

	var dc *DataCorruptedError
	require.True(t, errors.As(wrapped, &dc))
	require.Equal(t, "field", dc.KeyPath)
}

func TestDocumentTooLargeError(t *testing.T) {
	err := newDocumentTooLarge(MaxDocumentLen + 1)
	var tooLarge *DocumentTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	require.Equal(t, MaxDocumentLen, tooLarge.Limit)
}

func TestTypeMismatchError(t *testing.T) {
	err := newTypeMismatch("string", "int32")
	require.Contains(t, err.Error(), "string")
	require.Contains(t, err.Error(), "int32")
}
