package bson

import (
	"reflect"
	"time"
)

// This file implements component M (the adapter contract) and the
// external entry points of component §6: Encode/EncodeFragment marshal
// a Go value that is either a Value itself, implements Marshaler, or is
// one of the library's native scalar kinds; Decode/DecodeValue are the
// mirror-image unmarshal. Neither walks an arbitrary struct or map via
// reflection — that is explicitly out of scope (§1) and left to a host
// adapter built on top of Marshaler/Unmarshaler.

// Marshaler is implemented by types that know how to turn themselves
// into a Value.
type Marshaler interface {
	MarshalBSONValue() (Value, error)
}

// Unmarshaler is implemented by types that know how to populate
// themselves from a Value.
type Unmarshaler interface {
	UnmarshalBSONValue(Value) error
}

// ValueOf recognizes the library's native Go scalar types directly:
// bool, int, int8, int16, int32, int64, uint32, uint64, float32,
// float64, string, time.Time, []byte, ObjectID, Decimal128, Document,
// nil, Value itself, and anything implementing Marshaler. uint8,
// uint16 and uint are not recognized. Anything else
// reports ok == false — recursing into arbitrary structs or maps via
// reflection is a host adapter's job, not this library's (§1).
func ValueOf(x any) (v Value, ok bool) {
	switch t := x.(type) {
	case Value:
		return t, true
	case Marshaler:
		v, err := t.MarshalBSONValue()
		if err != nil {
			return Value{}, false
		}
		return v, true
	case bool:
		return NewBool(t), true
	case int32:
		return NewInt32(t), true
	case int64:
		return NewInt64(t), true
	case int:
		return valueOfInt(int64(t)), true
	case int8:
		return NewInt32(int32(t)), true
	case int16:
		return NewInt32(int32(t)), true
	case uint32:
		return valueOfInt(int64(t)), true
	case uint64:
		return NewInt64(int64(t)), true
	case float64:
		return NewDouble(t), true
	case float32:
		return NewDouble(float64(t)), true
	case string:
		return NewString(t), true
	case []byte:
		return NewBinary(Binary{Subtype: SubtypeGeneric, Data: t}), true
	case time.Time:
		return NewDateTimeFromTime(t), true
	case ObjectID:
		return NewObjectIDValue(t), true
	case Decimal128:
		return NewDecimal128Value(t), true
	case Document:
		return NewDocument(t), true
	case nil:
		return NewNull(), true
	default:
		return Value{}, false
	}
}

func valueOfInt(i int64) Value {
	if i >= minInt32 && i <= maxInt32 {
		return NewInt32(int32(i))
	}
	return NewInt64(i)
}

const (
	minInt32 = -1 << 31
	maxInt32 = 1<<31 - 1
)

// EncodeFragment converts v to a Value using ValueOf, after first
// trying Marshaler. It does not accept arbitrary structs or maps.
func EncodeFragment(v any) (Value, error) {
	val, ok := ValueOf(v)
	if !ok {
		return Value{}, newTypeMismatch("a native scalar, Value, Document, or Marshaler", reflectTypeName(v))
	}
	return val, nil
}

// Encode converts v to a Document. v must be a Document, a Marshaler
// whose MarshalBSONValue returns a document-typed Value, or a Value
// wrapping a document; any other native scalar is rejected, since a
// top-level BSON encoding must be a document (§4.D).
func Encode(v any) (Document, error) {
	val, err := EncodeFragment(v)
	if err != nil {
		return Document{}, err
	}
	d, ok := val.AsDocument()
	if !ok {
		return Document{}, newTypeMismatch("document", val.Type().String())
	}
	return d, nil
}

// DecodeValue converts v into dst. dst must implement Unmarshaler or
// be a non-nil *Value, *Document, *bool, *int32, *int64, *int,
// *float64, *string, *[]byte, *time.Time, *ObjectID or *Decimal128.
// Pointers to int8, int16, uint32, uint64 and float32 are not
// supported and report a TypeMismatchError.
func DecodeValue(v Value, dst any) error {
	if u, ok := dst.(Unmarshaler); ok {
		return u.UnmarshalBSONValue(v)
	}
	switch p := dst.(type) {
	case *Value:
		*p = v
		return nil
	case *Document:
		d, ok := v.AsDocument()
		if !ok {
			d, ok = v.AsArray()
		}
		if !ok {
			return newTypeMismatch("document", v.Type().String())
		}
		*p = d
		return nil
	case *bool:
		b, ok := v.AsBool()
		if !ok {
			return newTypeMismatch("bool", v.Type().String())
		}
		*p = b
		return nil
	case *int32:
		i, ok := v.AsInt32()
		if !ok {
			return newTypeMismatch("int32", v.Type().String())
		}
		*p = i
		return nil
	case *int64:
		i, ok := decodeToInt64(v)
		if !ok {
			return newTypeMismatch("int64", v.Type().String())
		}
		*p = i
		return nil
	case *int:
		i, ok := decodeToInt64(v)
		if !ok {
			return newTypeMismatch("int", v.Type().String())
		}
		*p = int(i)
		return nil
	case *float64:
		f, ok := v.AsDouble()
		if !ok {
			return newTypeMismatch("float64", v.Type().String())
		}
		*p = f
		return nil
	case *string:
		s, ok := v.AsString()
		if !ok {
			return newTypeMismatch("string", v.Type().String())
		}
		*p = s
		return nil
	case *[]byte:
		b, ok := v.AsBinary()
		if !ok {
			return newTypeMismatch("binary", v.Type().String())
		}
		*p = b.Data
		return nil
	case *time.Time:
		t, ok := v.AsTime()
		if !ok {
			return newTypeMismatch("datetime", v.Type().String())
		}
		*p = t
		return nil
	case *ObjectID:
		id, ok := v.AsObjectID()
		if !ok {
			return newTypeMismatch("objectID", v.Type().String())
		}
		*p = id
		return nil
	case *Decimal128:
		d, ok := v.AsDecimal128()
		if !ok {
			return newTypeMismatch("decimal128", v.Type().String())
		}
		*p = d
		return nil
	default:
		return newTypeMismatch("a supported pointer type or Unmarshaler", reflectTypeName(dst))
	}
}

func decodeToInt64(v Value) (int64, bool) {
	switch v.Type() {
	case TypeInt32:
		i, _ := v.AsInt32()
		return int64(i), true
	case TypeInt64:
		return v.AsInt64()
	default:
		return 0, false
	}
}

// Decode converts d into dst, delegating to DecodeValue with d wrapped
// as a document-typed Value.
func Decode(d Document, dst any) error {
	return DecodeValue(NewDocument(d), dst)
}

func reflectTypeName(x any) string {
	if x == nil {
		return "nil"
	}
	return reflect.TypeOf(x).String()
}
