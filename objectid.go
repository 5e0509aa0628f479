package bson

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// ObjectID is the 12-byte unique identifier described in §3: a 4-byte
// big-endian seconds-since-epoch timestamp, a 5-byte per-process
// random value, and a 3-byte big-endian counter that wraps at 2^24.
type ObjectID [12]byte

// objectIDGen is the process-wide state from §5: an atomic
// 24-bit counter seeded from crypto/rand, and a 5-byte random value
// captured once at first use. Both fields are set lazily so that a
// process that never calls NewObjectID never touches crypto/rand.
var objectIDGen struct {
	counter uint32 // only the low 24 bits are meaningful
	random  [5]byte
	ready   uint32 // 0 = uninitialized, 1 = initialized
	once    sync.Once
}

func ensureObjectIDGenReady() {
	if atomic.LoadUint32(&objectIDGen.ready) == 1 {
		return
	}
	objectIDGen.once.Do(func() {
		var seed [8]byte
		if _, err := rand.Read(seed[:]); err != nil {
			// crypto/rand failure is an environment problem, not a
			// malformed-input one.
			panic(newInternal(-1, "objectID generator: %v", err))
		}
		copy(objectIDGen.random[:], seed[:5])
		atomic.StoreUint32(&objectIDGen.counter, binary.BigEndian.Uint32(seed[4:8])&0x00FFFFFF)
		atomic.StoreUint32(&objectIDGen.ready, 1)
	})
}

// NewObjectID generates a fresh ObjectID. Concurrent callers observe
// strictly distinct, monotonically increasing (mod 2^24) counter
// values; the increment is atomic (§5).
func NewObjectID() ObjectID {
	ensureObjectIDGenReady()

	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	copy(id[4:9], objectIDGen.random[:])

	c := atomic.AddUint32(&objectIDGen.counter, 1) & 0x00FFFFFF
	var cbuf [4]byte
	binary.BigEndian.PutUint32(cbuf[:], c)
	copy(id[9:12], cbuf[1:4])

	return id
}

// ObjectIDFromHex parses a 24-character hex string, case-insensitively,
// into an ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	if len(s) != 24 {
		return ObjectID{}, newInvalidArgument("objectID hex must be 24 characters, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ObjectID{}, newInvalidArgument("objectID hex %q: %v", s, err)
	}
	var id ObjectID
	copy(id[:], b)
	return id, nil
}

// Hex returns the lowercase 24-character hex encoding of the ID.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return "ObjectID(" + id.Hex() + ")"
}

// Timestamp returns the 4-byte seconds-since-epoch component.
func (id ObjectID) Timestamp() time.Time {
	sec := binary.BigEndian.Uint32(id[0:4])
	return time.Unix(int64(sec), 0).UTC()
}

func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}
