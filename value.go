package bson

import (
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Value is the tagged union described in §4.F: every BSON scalar and
// container collapses to one Type tag plus a type-appropriate payload.
// Zero Value is not meaningful; use one of the New* constructors.
type Value struct {
	typ     Type
	payload interface{}
}

func NewDouble(f float64) Value        { return Value{typ: TypeDouble, payload: f} }
func NewString(s string) Value         { return Value{typ: TypeString, payload: s} }
func NewDocument(d Document) Value     { return Value{typ: TypeDocument, payload: d} }
func NewArray(d Document) Value        { return Value{typ: TypeArray, payload: d} }
func NewBinary(b Binary) Value         { return Value{typ: TypeBinary, payload: b} }
func NewUndefined() Value              { return Value{typ: TypeUndefined} }
func NewObjectIDValue(id ObjectID) Value { return Value{typ: TypeObjectID, payload: id} }
func NewBool(b bool) Value             { return Value{typ: TypeBool, payload: b} }
func NewNull() Value                   { return Value{typ: TypeNull} }
func NewRegex(r Regex) Value           { return Value{typ: TypeRegex, payload: r} }
func NewDBPointer(p DBPointer) Value   { return Value{typ: TypeDBPointer, payload: p} }
func NewCode(code string) Value        { return Value{typ: TypeCode, payload: code} }
func NewSymbol(sym string) Value       { return Value{typ: TypeSymbol, payload: sym} }
func NewCodeWithScope(c CodeWithScope) Value { return Value{typ: TypeCodeWithScope, payload: c} }
func NewInt32(v int32) Value           { return Value{typ: TypeInt32, payload: v} }
func NewTimestamp(t Timestamp) Value   { return Value{typ: TypeTimestamp, payload: t} }
func NewInt64(v int64) Value           { return Value{typ: TypeInt64, payload: v} }
func NewDecimal128Value(d Decimal128) Value { return Value{typ: TypeDecimal128, payload: d} }
func NewMinKey() Value                 { return Value{typ: TypeMinKey} }
func NewMaxKey() Value                 { return Value{typ: TypeMaxKey} }

// NewDateTime stores a UTC datetime as milliseconds since the Unix
// epoch, the BSON wire representation (§3).
func NewDateTime(millis int64) Value { return Value{typ: TypeDateTime, payload: millis} }

// NewDateTimeFromTime is a convenience constructor truncating to
// millisecond precision, matching the wire format's resolution.
func NewDateTimeFromTime(t time.Time) Value {
	return NewDateTime(t.UnixNano() / int64(time.Millisecond))
}

func (v Value) Type() Type { return v.typ }

func (v Value) AsDouble() (float64, bool) {
	f, ok := v.payload.(float64)
	return f, ok && v.typ == TypeDouble
}

func (v Value) AsString() (string, bool) {
	s, ok := v.payload.(string)
	return s, ok && v.typ == TypeString
}

func (v Value) AsDocument() (Document, bool) {
	d, ok := v.payload.(Document)
	return d, ok && v.typ == TypeDocument
}

func (v Value) AsArray() (Document, bool) {
	d, ok := v.payload.(Document)
	return d, ok && v.typ == TypeArray
}

func (v Value) AsBinary() (Binary, bool) {
	b, ok := v.payload.(Binary)
	return b, ok && v.typ == TypeBinary
}

func (v Value) AsObjectID() (ObjectID, bool) {
	id, ok := v.payload.(ObjectID)
	return id, ok && v.typ == TypeObjectID
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.payload.(bool)
	return b, ok && v.typ == TypeBool
}

// AsDateTime returns the millisecond-since-epoch wire value.
func (v Value) AsDateTime() (int64, bool) {
	ms, ok := v.payload.(int64)
	return ms, ok && v.typ == TypeDateTime
}

func (v Value) AsTime() (time.Time, bool) {
	ms, ok := v.AsDateTime()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (v Value) AsRegex() (Regex, bool) {
	r, ok := v.payload.(Regex)
	return r, ok && v.typ == TypeRegex
}

func (v Value) AsDBPointer() (DBPointer, bool) {
	p, ok := v.payload.(DBPointer)
	return p, ok && v.typ == TypeDBPointer
}

func (v Value) AsCode() (string, bool) {
	s, ok := v.payload.(string)
	return s, ok && v.typ == TypeCode
}

func (v Value) AsSymbol() (string, bool) {
	s, ok := v.payload.(string)
	return s, ok && v.typ == TypeSymbol
}

func (v Value) AsCodeWithScope() (CodeWithScope, bool) {
	c, ok := v.payload.(CodeWithScope)
	return c, ok && v.typ == TypeCodeWithScope
}

func (v Value) AsInt32() (int32, bool) {
	i, ok := v.payload.(int32)
	return i, ok && v.typ == TypeInt32
}

func (v Value) AsTimestamp() (Timestamp, bool) {
	t, ok := v.payload.(Timestamp)
	return t, ok && v.typ == TypeTimestamp
}

func (v Value) AsInt64() (int64, bool) {
	i, ok := v.payload.(int64)
	return i, ok && v.typ == TypeInt64
}

func (v Value) AsDecimal128() (Decimal128, bool) {
	d, ok := v.payload.(Decimal128)
	return d, ok && v.typ == TypeDecimal128
}

func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsMinKey() bool    { return v.typ == TypeMinKey }
func (v Value) IsMaxKey() bool    { return v.typ == TypeMaxKey }

// Equal reports structural equality: same type tag, same payload bytes.
// Two documents are equal iff their raw encodings are byte-identical
// (duplicate keys and insertion order included).
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeDouble:
		vf, _ := v.payload.(float64)
		of, _ := o.payload.(float64)
		return math.Float64bits(vf) == math.Float64bits(of)
	case TypeDocument, TypeArray:
		vd, _ := v.payload.(Document)
		od, _ := o.payload.(Document)
		return string(vd.Raw()) == string(od.Raw())
	case TypeBinary:
		vb, _ := v.payload.(Binary)
		ob, _ := o.payload.(Binary)
		return vb.Subtype == ob.Subtype && string(vb.Data) == string(ob.Data)
	case TypeDecimal128:
		vdec, _ := v.payload.(Decimal128)
		odec, _ := o.payload.(Decimal128)
		return vdec.Equal(odec)
	case TypeCodeWithScope:
		vc, _ := v.payload.(CodeWithScope)
		oc, _ := o.payload.(CodeWithScope)
		return vc.Code == oc.Code && string(vc.Scope.Raw()) == string(oc.Scope.Raw())
	case TypeNull, TypeUndefined, TypeMinKey, TypeMaxKey:
		return true
	default:
		return v.payload == o.payload
	}
}

// Hash returns a structural hash consistent with Equal: equal values
// always hash equal (§4.J).
func (v Value) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{byte(v.typ)})
	writeValueHash(h, v)
	return h.Sum64()
}

func writeValueHash(h *xxhash.Digest, v Value) {
	switch v.typ {
	case TypeDouble:
		f, _ := v.AsDouble()
		w := newWriter()
		w.writeF64(f)
		_, _ = h.Write(w.Bytes())
	case TypeString, TypeCode, TypeSymbol:
		s, _ := v.payload.(string)
		_, _ = h.Write([]byte(s))
	case TypeDocument, TypeArray:
		d, _ := v.payload.(Document)
		_, _ = h.Write(d.Raw())
	case TypeBinary:
		b, _ := v.AsBinary()
		_, _ = h.Write([]byte{b.Subtype})
		_, _ = h.Write(b.Data)
	case TypeObjectID:
		id, _ := v.AsObjectID()
		_, _ = h.Write(id[:])
	case TypeBool:
		b, _ := v.AsBool()
		if b {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	case TypeDateTime:
		ms, _ := v.AsDateTime()
		w := newWriter()
		w.writeI64(ms)
		_, _ = h.Write(w.Bytes())
	case TypeRegex:
		r, _ := v.AsRegex()
		_, _ = h.Write([]byte(r.Pattern))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(r.Options))
	case TypeDBPointer:
		p, _ := v.AsDBPointer()
		_, _ = h.Write([]byte(p.Namespace))
		_, _ = h.Write(p.ID[:])
	case TypeCodeWithScope:
		c, _ := v.AsCodeWithScope()
		_, _ = h.Write([]byte(c.Code))
		_, _ = h.Write(c.Scope.Raw())
	case TypeInt32:
		i, _ := v.AsInt32()
		w := newWriter()
		w.writeI32(i)
		_, _ = h.Write(w.Bytes())
	case TypeTimestamp:
		t, _ := v.AsTimestamp()
		w := newWriter()
		w.writeU32(t.Increment)
		w.writeU32(t.Seconds)
		_, _ = h.Write(w.Bytes())
	case TypeInt64:
		i, _ := v.AsInt64()
		w := newWriter()
		w.writeI64(i)
		_, _ = h.Write(w.Bytes())
	case TypeDecimal128:
		d, _ := v.AsDecimal128()
		hi, lo := d.Bits()
		w := newWriter()
		w.writeU64(hi)
		w.writeU64(lo)
		_, _ = h.Write(w.Bytes())
	}
}
