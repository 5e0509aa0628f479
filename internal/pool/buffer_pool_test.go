package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsZeroLengthBuffer(t *testing.T) {
	b := Get()
	require.Equal(t, 0, b.Len())
	Put(b)
}

func TestWriteAppends(t *testing.T) {
	b := Get()
	defer Put(b)

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), b.Bytes())

	b.Reset()
	require.Equal(t, 0, b.Len())
}

func TestPutDropsOversizedBuffers(t *testing.T) {
	big := &Buffer{B: make([]byte, 0, 2*1024*1024)}
	Put(big) // must not panic; oversized buffers are simply discarded
}
