package bson

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/bsonkit/bson/internal/pool"
)

// MaxDocumentLen is the 16 MiB (2^24 byte) document size limit (§4.D,
// invariant I1).
const MaxDocumentLen = 16 * 1024 * 1024

// Document is a BSON document held as its raw wire bytes (§4.D):
// length prefix, elements, trailing NUL. It is never a map — every
// accessor derives its answer from the bytes, so duplicate keys
// survive and insertion order is preserved.
type Document struct {
	buf []byte
}

// Pair is one (key, value) element of a Document, as produced by
// Pairs() or Iter().
type Pair struct {
	Key   string
	Value Value
}

func emptyDocumentBytes() []byte { return []byte{5, 0, 0, 0, 0} }

// EmptyDocument returns the canonical zero-element document.
func EmptyDocument() Document { return Document{buf: emptyDocumentBytes()} }

// DocumentFromBytes wraps b as a Document after validating the length
// prefix, trailing NUL, and every element in it (§4.D, §8 boundary
// behaviors: a malformed length or truncated element is rejected at
// construction, not deferred to first access).
func DocumentFromBytes(b []byte) (Document, error) {
	if len(b) < 5 {
		return Document{}, newInternal(0, "document too short: %d bytes", len(b))
	}
	length := int(int32(binary.LittleEndian.Uint32(b[0:4])))
	if length < 5 {
		return Document{}, newInternal(0, "invalid document length %d", length)
	}
	if length > MaxDocumentLen {
		return Document{}, newDocumentTooLarge(length)
	}
	if length != len(b) {
		return Document{}, newInternal(0, "document length %d does not match buffer of %d bytes", length, len(b))
	}
	if b[length-1] != 0x00 {
		return Document{}, newInternal(length-1, "document missing trailing NUL")
	}

	d := Document{buf: b}
	it := d.Iter()
	for {
		if _, _, ok := it.Next(); !ok {
			break
		}
	}
	if it.Err() != nil {
		return Document{}, it.Err()
	}
	return d, nil
}

// Raw returns the document's full wire bytes (length prefix through
// trailing NUL). The caller must not mutate the returned slice.
func (d Document) Raw() []byte { return d.buf }

// Iter returns a fresh single-pass iterator over d's top-level
// elements. Iterators are not restartable; call Iter again for
// another pass. Because Document is an immutable byte slice,
// independently created iterators over the same Document may be
// driven concurrently (§4.E).
func (d Document) Iter() *Iterator {
	return &Iterator{r: newReader(d.buf[4:])}
}

// Iterator is a forward, single-pass scan over a Document's elements.
// Once Next reports failure, the iterator is poisoned: every
// subsequent call also reports failure, and Err returns the cause.
type Iterator struct {
	r    *reader
	done bool
	err  error
}

// Next advances to the next element. ok is false at end of document
// or after an error; distinguish the two with Err.
func (it *Iterator) Next() (key string, val Value, ok bool) {
	if it.done {
		return "", Value{}, false
	}
	t, err := it.r.readU8()
	if err != nil {
		it.err, it.done = err, true
		return "", Value{}, false
	}
	if t == 0x00 {
		it.done = true
		return "", Value{}, false
	}
	key, err = it.r.readCString()
	if err != nil {
		it.err, it.done = err, true
		return "", Value{}, false
	}
	val, err = readPayload(it.r, Type(t))
	if err != nil {
		it.err, it.done = err, true
		return "", Value{}, false
	}
	return key, val, true
}

// Err returns the error that poisoned the iterator, or nil if it ran
// to completion (or hasn't failed yet).
func (it *Iterator) Err() error { return it.err }

// Get returns the first element with the given key (first-wins on
// duplicate keys, §4.D invariant I3). Linear in document size.
func (d Document) Get(key string) (Value, bool) {
	it := d.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			return Value{}, false
		}
		if k == key {
			return v, true
		}
	}
}

// Index returns the i-th element in insertion order. Linear in i.
func (d Document) Index(i int) (string, Value, bool) {
	if i < 0 {
		return "", Value{}, false
	}
	it := d.Iter()
	n := 0
	for {
		k, v, ok := it.Next()
		if !ok {
			return "", Value{}, false
		}
		if n == i {
			return k, v, true
		}
		n++
	}
}

// Len returns the number of top-level elements.
func (d Document) Len() int {
	n := 0
	it := d.Iter()
	for {
		if _, _, ok := it.Next(); !ok {
			return n
		}
		n++
	}
}

// Keys returns every key in insertion order, duplicates included.
func (d Document) Keys() []string {
	var ks []string
	it := d.Iter()
	for {
		k, _, ok := it.Next()
		if !ok {
			return ks
		}
		ks = append(ks, k)
	}
}

// Pairs materializes every element in insertion order.
func (d Document) Pairs() []Pair {
	var ps []Pair
	it := d.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			return ps
		}
		ps = append(ps, Pair{Key: k, Value: v})
	}
}

func (d Document) Equal(o Document) bool {
	return string(d.buf) == string(o.buf)
}

func (d Document) Hash() uint64 {
	return xxhash.Sum64(d.buf)
}

// DocumentBuilder assembles a Document one element at a time. Its
// scratch buffer is borrowed from the shared pool (component K) and
// returned once Build copies out the finished bytes, so repeated
// builder use doesn't allocate a fresh backing array every time.
type DocumentBuilder struct {
	w   *writer
	pb  *pool.Buffer
	err error
}

// NewDocumentBuilder starts a fresh builder.
func NewDocumentBuilder() *DocumentBuilder {
	pb := pool.Get()
	b := &DocumentBuilder{w: &writer{buf: pb.B}, pb: pb}
	b.w.writeI32(0) // length placeholder, patched in Build
	return b
}

// Append adds one element. Errors (an embedded NUL in key, an invalid
// binary subtype, …) are deferred until Build.
func (b *DocumentBuilder) Append(key string, v Value) *DocumentBuilder {
	if b.err != nil {
		return b
	}
	if strings.IndexByte(key, 0x00) >= 0 {
		b.err = newInvalidArgument("document key %q contains an embedded NUL", key)
		return b
	}
	b.w.writeU8(byte(v.typ))
	b.w.writeCString(key)
	if err := writePayload(b.w, v); err != nil {
		b.err = err
	}
	return b
}

// Build finalizes the document, backfilling its length prefix and
// enforcing the 16 MiB size limit (§4.D invariant I1). The finished
// bytes are copied out of the pooled scratch buffer before it's
// returned to the pool, so the returned Document never aliases pooled
// memory.
func (b *DocumentBuilder) Build() (Document, error) {
	defer func() {
		if b.pb != nil {
			pool.Put(b.pb)
			b.pb = nil
		}
	}()
	if b.err != nil {
		return Document{}, b.err
	}
	b.w.writeU8(0x00)
	total := b.w.Len()
	if total > MaxDocumentLen {
		return Document{}, newDocumentTooLarge(total)
	}
	b.w.patchU32At(0, uint32(total))
	out := make([]byte, total)
	copy(out, b.w.Bytes())
	return Document{buf: out}, nil
}

func buildFromPairs(pairs []Pair) (Document, error) {
	b := NewDocumentBuilder()
	for _, p := range pairs {
		b.Append(p.Key, p.Value)
	}
	return b.Build()
}

// Set returns a new Document with key's value replaced in place if it
// already exists (preserving its position in insertion order), or
// appended at the end otherwise. See DESIGN.md for why replacement
// preserves position rather than moving the key to the end.
func (d Document) Set(key string, v Value) (Document, error) {
	pairs := d.Pairs()
	found := false
	for i := range pairs {
		if pairs[i].Key == key {
			pairs[i].Value = v
			found = true
			break
		}
	}
	if !found {
		pairs = append(pairs, Pair{Key: key, Value: v})
	}
	return buildFromPairs(pairs)
}

// Remove returns a new Document with every element matching key
// dropped.
func (d Document) Remove(key string) (Document, error) {
	pairs := d.Pairs()
	out := pairs[:0]
	for _, p := range pairs {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return buildFromPairs(out)
}

// Map returns a new Document with f applied to every pair.
func (d Document) Map(f func(Pair) Pair) (Document, error) {
	pairs := d.Pairs()
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		out[i] = f(p)
	}
	return buildFromPairs(out)
}

// Filter returns a new Document keeping only pairs for which f
// reports true.
func (d Document) Filter(f func(Pair) bool) (Document, error) {
	var out []Pair
	for _, p := range d.Pairs() {
		if f(p) {
			out = append(out, p)
		}
	}
	return buildFromPairs(out)
}

func clampCount(n, max int) (int, error) {
	if n < 0 {
		return 0, newLogic("negative count %d", n)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// DropFirst returns a new Document without its first n elements.
func (d Document) DropFirst(n int) (Document, error) {
	pairs := d.Pairs()
	n, err := clampCount(n, len(pairs))
	if err != nil {
		return Document{}, err
	}
	return buildFromPairs(pairs[n:])
}

// DropLast returns a new Document without its last n elements.
func (d Document) DropLast(n int) (Document, error) {
	pairs := d.Pairs()
	n, err := clampCount(n, len(pairs))
	if err != nil {
		return Document{}, err
	}
	return buildFromPairs(pairs[:len(pairs)-n])
}

// Prefix returns a new Document containing only its first n elements.
func (d Document) Prefix(n int) (Document, error) {
	pairs := d.Pairs()
	n, err := clampCount(n, len(pairs))
	if err != nil {
		return Document{}, err
	}
	return buildFromPairs(pairs[:n])
}

// Suffix returns a new Document containing only its last n elements.
func (d Document) Suffix(n int) (Document, error) {
	pairs := d.Pairs()
	n, err := clampCount(n, len(pairs))
	if err != nil {
		return Document{}, err
	}
	return buildFromPairs(pairs[len(pairs)-n:])
}

// Subsequence returns a new Document containing the pairs at index
// positions [start, end). Bounds past the document's length clamp to
// it rather than erroring; a negative bound is a LogicError. A start
// past end (after clamping) yields an empty Document.
func (d Document) Subsequence(start, end int) (Document, error) {
	pairs := d.Pairs()
	start, err := clampCount(start, len(pairs))
	if err != nil {
		return Document{}, err
	}
	end, err = clampCount(end, len(pairs))
	if err != nil {
		return Document{}, err
	}
	if start > end {
		start = end
	}
	return buildFromPairs(pairs[start:end])
}

// DropWhile returns a new Document without the longest leading run of
// elements satisfying f.
func (d Document) DropWhile(f func(Pair) bool) (Document, error) {
	pairs := d.Pairs()
	i := 0
	for i < len(pairs) && f(pairs[i]) {
		i++
	}
	return buildFromPairs(pairs[i:])
}

// PrefixWhile returns a new Document containing only the longest
// leading run of elements satisfying f.
func (d Document) PrefixWhile(f func(Pair) bool) (Document, error) {
	pairs := d.Pairs()
	i := 0
	for i < len(pairs) && f(pairs[i]) {
		i++
	}
	return buildFromPairs(pairs[:i])
}

// Split partitions d's elements into groups wherever isSeparator
// reports true, stopping after maxSplits separators have been
// consumed (a negative maxSplits means unlimited). When
// omittingEmpty is true, empty groups are dropped from the result.
func (d Document) Split(maxSplits int, omittingEmpty bool, isSeparator func(Pair) bool) ([]Document, error) {
	pairs := d.Pairs()
	var groups [][]Pair
	var cur []Pair
	splits := 0
	for _, p := range pairs {
		if (maxSplits < 0 || splits < maxSplits) && isSeparator(p) {
			groups = append(groups, cur)
			cur = nil
			splits++
			continue
		}
		cur = append(cur, p)
	}
	groups = append(groups, cur)

	if omittingEmpty {
		filtered := groups[:0]
		for _, g := range groups {
			if len(g) > 0 {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}

	docs := make([]Document, 0, len(groups))
	for _, g := range groups {
		doc, err := buildFromPairs(g)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IsArrayShaped reports whether d's keys are exactly "0", "1", "2", …
// in order — the numeric-key projection an array uses (§4.D).
func (d Document) IsArrayShaped() bool {
	for i, p := range d.Pairs() {
		if p.Key != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// ArrayValues returns d's values if it is array-shaped, or an
// InvalidArgumentError describing the first non-sequential key.
func (d Document) ArrayValues() ([]Value, error) {
	pairs := d.Pairs()
	vals := make([]Value, len(pairs))
	for i, p := range pairs {
		if p.Key != strconv.Itoa(i) {
			return nil, newInvalidArgument("array document has non-sequential key %q at index %d", p.Key, i)
		}
		vals[i] = p.Value
	}
	return vals, nil
}

// NewArrayDocument builds the array-shaped Document for vals, keyed
// "0", "1", "2", ….
func NewArrayDocument(vals []Value) (Document, error) {
	b := NewDocumentBuilder()
	for i, v := range vals {
		b.Append(strconv.Itoa(i), v)
	}
	return b.Build()
}
