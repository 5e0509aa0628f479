package bson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryReservedSubtypeRejected(t *testing.T) {
	b := NewDocumentBuilder()
	b.Append("x", NewBinary(Binary{Subtype: 0x10, Data: []byte{1}}))
	_, err := b.Build()
	require.Error(t, err)
}

func TestBinaryUUIDSubtypeRequires16Bytes(t *testing.T) {
	b := NewDocumentBuilder()
	b.Append("u", NewBinary(Binary{Subtype: SubtypeUUID, Data: []byte{1, 2, 3}}))
	_, err := b.Build()
	require.Error(t, err)
}

func TestBinaryUUIDSubtypeRoundTrip(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	b := NewDocumentBuilder()
	b.Append("u", NewBinary(Binary{Subtype: SubtypeUUID, Data: data}))
	d, err := b.Build()
	require.NoError(t, err)

	d2, err := DocumentFromBytes(d.Raw())
	require.NoError(t, err)
	v, ok := d2.Get("u")
	require.True(t, ok)
	bin, ok := v.AsBinary()
	require.True(t, ok)
	require.Equal(t, data, bin.Data)
}

func TestBinaryDeprecatedSubtypeRoundTrip(t *testing.T) {
	b := NewDocumentBuilder()
	b.Append("old", NewBinary(Binary{Subtype: SubtypeBinaryDeprecated, Data: []byte("abc")}))
	d, err := b.Build()
	require.NoError(t, err)

	d2, err := DocumentFromBytes(d.Raw())
	require.NoError(t, err)
	v, ok := d2.Get("old")
	require.True(t, ok)
	bin, ok := v.AsBinary()
	require.True(t, ok)
	require.Equal(t, []byte("abc"), bin.Data)
}

func TestCodeWithScopeRoundTrip(t *testing.T) {
	scopeB := NewDocumentBuilder()
	scopeB.Append("x", NewInt32(1))
	scope, err := scopeB.Build()
	require.NoError(t, err)

	b := NewDocumentBuilder()
	b.Append("fn", NewCodeWithScope(CodeWithScope{Code: "function() {}", Scope: scope}))
	d, err := b.Build()
	require.NoError(t, err)

	d2, err := DocumentFromBytes(d.Raw())
	require.NoError(t, err)
	v, ok := d2.Get("fn")
	require.True(t, ok)
	c, ok := v.AsCodeWithScope()
	require.True(t, ok)
	require.Equal(t, "function() {}", c.Code)
	require.True(t, scope.Equal(c.Scope))
}

func TestDecimal128WireRoundTrip(t *testing.T) {
	dec, err := ParseDecimal128("123.456")
	require.NoError(t, err)

	b := NewDocumentBuilder()
	b.Append("d", NewDecimal128Value(dec))
	d, err := b.Build()
	require.NoError(t, err)

	d2, err := DocumentFromBytes(d.Raw())
	require.NoError(t, err)
	v, ok := d2.Get("d")
	require.True(t, ok)
	got, ok := v.AsDecimal128()
	require.True(t, ok)
	require.True(t, dec.Equal(got))
}

func TestDocumentTooLarge(t *testing.T) {
	b := NewDocumentBuilder()
	big := make([]byte, MaxDocumentLen)
	b.Append("big", NewBinary(Binary{Subtype: SubtypeGeneric, Data: big}))
	_, err := b.Build()
	require.Error(t, err)
	var tooLarge *DocumentTooLargeError
	require.ErrorAs(t, err, &tooLarge)
}
