package bson

import "strings"

// This file implements component B: the per-type binary read/write
// dispatch for a single element's payload, given its type tag. It is
// used by Document's iterator and builder; it never reads or writes
// the element's leading type byte or key cstring — the caller does
// that (§4.B/§4.D).

// readPayload reads the payload bytes for a value of type t, starting
// immediately after the element's key cstring.
func readPayload(r *reader, t Type) (Value, error) {
	switch t {
	case TypeDouble:
		f, err := r.readF64()
		if err != nil {
			return Value{}, err
		}
		return NewDouble(f), nil

	case TypeString, TypeCode, TypeSymbol:
		s, err := readLenString(r)
		if err != nil {
			return Value{}, err
		}
		switch t {
		case TypeCode:
			return NewCode(s), nil
		case TypeSymbol:
			return NewSymbol(s), nil
		default:
			return NewString(s), nil
		}

	case TypeDocument, TypeArray:
		raw, err := readRawDocument(r)
		if err != nil {
			return Value{}, err
		}
		d, err := DocumentFromBytes(raw)
		if err != nil {
			return Value{}, err
		}
		if t == TypeArray {
			return NewArray(d), nil
		}
		return NewDocument(d), nil

	case TypeBinary:
		return readBinaryPayload(r)

	case TypeUndefined:
		return NewUndefined(), nil

	case TypeObjectID:
		b, err := r.readBytes(12)
		if err != nil {
			return Value{}, err
		}
		var id ObjectID
		copy(id[:], b)
		return NewObjectIDValue(id), nil

	case TypeBool:
		b, err := r.readU8()
		if err != nil {
			return Value{}, err
		}
		if b != 0 && b != 1 {
			return Value{}, newInternal(r.offset()-1, "invalid bool byte 0x%02x", b)
		}
		return NewBool(b == 1), nil

	case TypeDateTime:
		ms, err := r.readI64()
		if err != nil {
			return Value{}, err
		}
		return NewDateTime(ms), nil

	case TypeNull:
		return NewNull(), nil

	case TypeRegex:
		pattern, err := r.readCString()
		if err != nil {
			return Value{}, err
		}
		opts, err := r.readCString()
		if err != nil {
			return Value{}, err
		}
		return NewRegex(Regex{Pattern: pattern, Options: opts}), nil

	case TypeDBPointer:
		ns, err := readLenString(r)
		if err != nil {
			return Value{}, err
		}
		idBytes, err := r.readBytes(12)
		if err != nil {
			return Value{}, err
		}
		var id ObjectID
		copy(id[:], idBytes)
		return NewDBPointer(DBPointer{Namespace: ns, ID: id}), nil

	case TypeCodeWithScope:
		return readCodeWithScopePayload(r)

	case TypeInt32:
		v, err := r.readI32()
		if err != nil {
			return Value{}, err
		}
		return NewInt32(v), nil

	case TypeTimestamp:
		inc, err := r.readU32()
		if err != nil {
			return Value{}, err
		}
		sec, err := r.readU32()
		if err != nil {
			return Value{}, err
		}
		return NewTimestamp(Timestamp{Increment: inc, Seconds: sec}), nil

	case TypeInt64:
		v, err := r.readI64()
		if err != nil {
			return Value{}, err
		}
		return NewInt64(v), nil

	case TypeDecimal128:
		lo, err := r.readU64()
		if err != nil {
			return Value{}, err
		}
		hi, err := r.readU64()
		if err != nil {
			return Value{}, err
		}
		return NewDecimal128Value(NewDecimal128(hi, lo)), nil

	case TypeMinKey:
		return NewMinKey(), nil

	case TypeMaxKey:
		return NewMaxKey(), nil

	default:
		return Value{}, newInternal(r.offset(), "unknown BSON type 0x%02x", byte(t))
	}
}

// readLenString reads the BSON string format: int32 length (including
// the trailing NUL) followed by that many bytes, the last of which
// must be NUL.
func readLenString(r *reader) (string, error) {
	n, err := r.readI32()
	if err != nil {
		return "", err
	}
	if n < 1 {
		return "", newInternal(r.offset()-4, "invalid string length %d", n)
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if b[len(b)-1] != 0x00 {
		return "", newInternal(r.offset()-1, "string not NUL-terminated")
	}
	return string(b[:len(b)-1]), nil
}

// readRawDocument reads a nested document's full raw bytes: the int32
// self-inclusive length, already-consumed, plus the remaining bytes.
func readRawDocument(r *reader) ([]byte, error) {
	start := r.offset()
	n, err := r.readI32()
	if err != nil {
		return nil, err
	}
	if n < 5 {
		return nil, newInternal(start, "invalid document length %d", n)
	}
	// Rewind so the full length-prefixed region can be sliced in one piece.
	r.pos = start
	return r.readBytes(int(n))
}

func readBinaryPayload(r *reader) (Value, error) {
	start := r.offset()
	n, err := r.readI32()
	if err != nil {
		return Value{}, err
	}
	if n < 0 {
		return Value{}, newInternal(start, "invalid binary length %d", n)
	}
	subtype, err := r.readU8()
	if err != nil {
		return Value{}, err
	}
	if isReservedSubtype(subtype) {
		return Value{}, newInternal(start, "reserved binary subtype 0x%02x", subtype)
	}

	if subtype == SubtypeBinaryDeprecated {
		innerStart := r.offset()
		inner, err := r.readI32()
		if err != nil {
			return Value{}, err
		}
		if inner != n-4 {
			return Value{}, newInternal(innerStart, "binary subtype 0x02 inner length %d does not match outer length %d", inner, n-4)
		}
		data, err := r.readBytes(int(inner))
		if err != nil {
			return Value{}, err
		}
		return NewBinary(Binary{Subtype: subtype, Data: append([]byte(nil), data...)}), nil
	}

	data, err := r.readBytes(int(n))
	if err != nil {
		return Value{}, err
	}
	if subtype == SubtypeUUID && len(data) != 16 {
		return Value{}, newInternal(start, "UUID binary subtype must be exactly 16 bytes, got %d", len(data))
	}
	return NewBinary(Binary{Subtype: subtype, Data: append([]byte(nil), data...)}), nil
}

func readCodeWithScopePayload(r *reader) (Value, error) {
	start := r.offset()
	total, err := r.readI32()
	if err != nil {
		return Value{}, err
	}
	if total < 5+4+1 {
		return Value{}, newInternal(start, "invalid codeWithScope length %d", total)
	}
	code, err := readLenString(r)
	if err != nil {
		return Value{}, err
	}
	raw, err := readRawDocument(r)
	if err != nil {
		return Value{}, err
	}
	scope, err := DocumentFromBytes(raw)
	if err != nil {
		return Value{}, err
	}
	if r.offset()-start != int(total) {
		return Value{}, newInternal(start, "codeWithScope length %d does not match actual encoded size %d", total, r.offset()-start)
	}
	return NewCodeWithScope(CodeWithScope{Code: code, Scope: scope}), nil
}

// writePayload writes the payload bytes for v, matching readPayload's
// wire layout exactly.
func writePayload(w *writer, v Value) error {
	switch v.typ {
	case TypeDouble:
		f, _ := v.AsDouble()
		w.writeF64(f)

	case TypeString:
		s, _ := v.AsString()
		writeLenString(w, s)

	case TypeCode:
		s, _ := v.AsCode()
		writeLenString(w, s)

	case TypeSymbol:
		s, _ := v.AsSymbol()
		writeLenString(w, s)

	case TypeDocument:
		d, _ := v.AsDocument()
		w.writeBytes(d.Raw())

	case TypeArray:
		d, _ := v.AsArray()
		w.writeBytes(d.Raw())

	case TypeBinary:
		b, _ := v.AsBinary()
		if isReservedSubtype(b.Subtype) {
			return newInvalidArgument("reserved binary subtype 0x%02x", b.Subtype)
		}
		if b.Subtype == SubtypeUUID && len(b.Data) != 16 {
			return newInvalidArgument("UUID binary subtype must be exactly 16 bytes, got %d", len(b.Data))
		}
		if b.Subtype == SubtypeBinaryDeprecated {
			w.writeI32(int32(len(b.Data) + 4))
			w.writeU8(b.Subtype)
			w.writeI32(int32(len(b.Data)))
			w.writeBytes(b.Data)
		} else {
			w.writeI32(int32(len(b.Data)))
			w.writeU8(b.Subtype)
			w.writeBytes(b.Data)
		}

	case TypeUndefined, TypeNull, TypeMinKey, TypeMaxKey:
		// No payload.

	case TypeObjectID:
		id, _ := v.AsObjectID()
		w.writeBytes(id[:])

	case TypeBool:
		b, _ := v.AsBool()
		if b {
			w.writeU8(1)
		} else {
			w.writeU8(0)
		}

	case TypeDateTime:
		ms, _ := v.AsDateTime()
		w.writeI64(ms)

	case TypeRegex:
		r, _ := v.AsRegex()
		if strings.IndexByte(r.Pattern, 0x00) >= 0 || strings.IndexByte(r.Options, 0x00) >= 0 {
			return newInvalidArgument("regex pattern or options contain an embedded NUL")
		}
		w.writeCString(r.Pattern)
		w.writeCString(r.Options)

	case TypeDBPointer:
		p, _ := v.AsDBPointer()
		writeLenString(w, p.Namespace)
		w.writeBytes(p.ID[:])

	case TypeCodeWithScope:
		c, _ := v.AsCodeWithScope()
		scopeRaw := c.Scope.Raw()
		codeLen := int32(len(c.Code) + 1)
		total := int32(4+4) + codeLen + int32(len(scopeRaw))
		w.writeI32(total)
		writeLenString(w, c.Code)
		w.writeBytes(scopeRaw)

	case TypeInt32:
		i, _ := v.AsInt32()
		w.writeI32(i)

	case TypeTimestamp:
		t, _ := v.AsTimestamp()
		w.writeU32(t.Increment)
		w.writeU32(t.Seconds)

	case TypeInt64:
		i, _ := v.AsInt64()
		w.writeI64(i)

	case TypeDecimal128:
		d, _ := v.AsDecimal128()
		hi, lo := d.Bits()
		w.writeU64(lo)
		w.writeU64(hi)

	default:
		return newInvalidArgument("unknown value type 0x%02x", byte(v.typ))
	}
	return nil
}

func writeLenString(w *writer, s string) {
	w.writeI32(int32(len(s) + 1))
	w.writeBytes([]byte(s))
	w.writeU8(0x00)
}
