// Package pool provides a sync.Pool-backed scratch buffer for
// DocumentBuilder in package bson, so repeated document builds don't
// allocate a fresh backing array every time.
package pool

import "sync"

// DefaultSize is the capacity a freshly allocated buffer starts at.
const DefaultSize = 1024

var bufPool = sync.Pool{
	New: func() interface{} {
		return &Buffer{B: make([]byte, 0, DefaultSize)}
	},
}

// Buffer wraps a reusable byte slice.
type Buffer struct {
	B []byte
}

// Get returns a Buffer from the pool, truncated to zero length but
// retaining its prior capacity.
func Get() *Buffer {
	b := bufPool.Get().(*Buffer)
	b.B = b.B[:0]
	return b
}

// Put returns b to the pool. Buffers larger than 1 MiB are dropped
// rather than pooled, so one oversized document doesn't pin a large
// allocation in the pool indefinitely.
func Put(b *Buffer) {
	const maxPooled = 1024 * 1024
	if cap(b.B) > maxPooled {
		return
	}
	bufPool.Put(b)
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.B = append(b.B, p...)
	return len(p), nil
}

func (b *Buffer) Bytes() []byte { return b.B }
func (b *Buffer) Len() int      { return len(b.B) }
func (b *Buffer) Reset()        { b.B = b.B[:0] }
