package bson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// This file implements component G: MongoDB Extended JSON, both the
// canonical profile (every value explicitly type-wrapped) and the
// relaxed profile (plain JSON literals where that's lossless), plus
// the reverse direction, which accepts either profile and a handful
// of legacy shorthand forms. The parser is hand-rolled rather than
// built on encoding/json's map-based decoding because object key
// order must survive the round trip, which a Go map cannot preserve.

// ExtJSONFormat selects which Extended JSON profile MarshalExtJSON
// renders (§4.G): Canonical type-wraps every value; Relaxed leaves
// finite doubles, int32s, and int64s within ±2^53 as bare JSON
// numbers, and renders in-range dates as {"$date": "<ISO-8601>"}.
type ExtJSONFormat int

const (
	Canonical ExtJSONFormat = iota
	Relaxed
)

// MarshalExtJSON renders v as Extended JSON text in the given profile.
func MarshalExtJSON(v Value, format ExtJSONFormat) ([]byte, error) {
	var sb strings.Builder
	if err := writeExtJSONValue(&sb, v, format == Canonical); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// UnmarshalExtJSON parses Extended JSON text (canonical, relaxed, or a
// mix of both, plus legacy $binary/$type and $uuid shorthand) into a
// Value.
func UnmarshalExtJSON(data []byte) (Value, error) {
	p := &extJSONParser{s: string(data)}
	jv, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipWS()
	if p.pos != len(p.s) {
		return Value{}, newDataCorrupted("", "trailing data after JSON value")
	}
	return jsonValueToBSON(jv)
}

// --- encode: Value -> Extended JSON text ---

func writeExtJSONDocument(sb *strings.Builder, d Document, canonical bool) error {
	sb.WriteByte('{')
	for i, p := range d.Pairs() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsonStringLiteral(p.Key))
		sb.WriteByte(':')
		if err := writeExtJSONValue(sb, p.Value, canonical); err != nil {
			return prependKeyPath(p.Key, err)
		}
	}
	sb.WriteByte('}')
	return nil
}

func writeExtJSONArray(sb *strings.Builder, d Document, canonical bool) error {
	vals, err := d.ArrayValues()
	if err != nil {
		return err
	}
	sb.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeExtJSONValue(sb, v, canonical); err != nil {
			return prependKeyPath(strconv.Itoa(i), err)
		}
	}
	sb.WriteByte(']')
	return nil
}

func writeExtJSONValue(sb *strings.Builder, v Value, canonical bool) error {
	switch v.typ {
	case TypeDouble:
		f, _ := v.AsDouble()
		if canonical || math.IsNaN(f) || math.IsInf(f, 0) {
			fmt.Fprintf(sb, `{"$numberDouble":%s}`, jsonStringLiteral(formatExtJSONDouble(f)))
		} else {
			sb.WriteString(formatExtJSONDouble(f))
		}

	case TypeString:
		s, _ := v.AsString()
		sb.WriteString(jsonStringLiteral(s))

	case TypeDocument:
		d, _ := v.AsDocument()
		return writeExtJSONDocument(sb, d, canonical)

	case TypeArray:
		d, _ := v.AsArray()
		return writeExtJSONArray(sb, d, canonical)

	case TypeBinary:
		b, _ := v.AsBinary()
		fmt.Fprintf(sb, `{"$binary":{"base64":%s,"subType":%s}}`,
			jsonStringLiteral(base64.StdEncoding.EncodeToString(b.Data)),
			jsonStringLiteral(fmt.Sprintf("%02x", b.Subtype)))

	case TypeUndefined:
		sb.WriteString(`{"$undefined":true}`)

	case TypeObjectID:
		id, _ := v.AsObjectID()
		fmt.Fprintf(sb, `{"$oid":%s}`, jsonStringLiteral(id.Hex()))

	case TypeBool:
		b, _ := v.AsBool()
		if b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}

	case TypeDateTime:
		ms, _ := v.AsDateTime()
		writeExtJSONDate(sb, ms, canonical)

	case TypeNull:
		sb.WriteString("null")

	case TypeRegex:
		r, _ := v.AsRegex()
		fmt.Fprintf(sb, `{"$regularExpression":{"pattern":%s,"options":%s}}`,
			jsonStringLiteral(r.Pattern), jsonStringLiteral(r.Options))

	case TypeDBPointer:
		p, _ := v.AsDBPointer()
		fmt.Fprintf(sb, `{"$dbPointer":{"$ref":%s,"$id":{"$oid":%s}}}`,
			jsonStringLiteral(p.Namespace), jsonStringLiteral(p.ID.Hex()))

	case TypeCode:
		c, _ := v.AsCode()
		fmt.Fprintf(sb, `{"$code":%s}`, jsonStringLiteral(c))

	case TypeSymbol:
		s, _ := v.AsSymbol()
		fmt.Fprintf(sb, `{"$symbol":%s}`, jsonStringLiteral(s))

	case TypeCodeWithScope:
		c, _ := v.AsCodeWithScope()
		sb.WriteString(`{"$code":`)
		sb.WriteString(jsonStringLiteral(c.Code))
		sb.WriteString(`,"$scope":`)
		if err := writeExtJSONDocument(sb, c.Scope, canonical); err != nil {
			return err
		}
		sb.WriteByte('}')

	case TypeInt32:
		i, _ := v.AsInt32()
		if canonical {
			fmt.Fprintf(sb, `{"$numberInt":%s}`, jsonStringLiteral(strconv.Itoa(int(i))))
		} else {
			sb.WriteString(strconv.Itoa(int(i)))
		}

	case TypeTimestamp:
		t, _ := v.AsTimestamp()
		fmt.Fprintf(sb, `{"$timestamp":{"t":%d,"i":%d}}`, t.Seconds, t.Increment)

	case TypeInt64:
		i, _ := v.AsInt64()
		if !canonical && i >= relaxedInt64Min && i <= relaxedInt64Max {
			sb.WriteString(strconv.FormatInt(i, 10))
		} else {
			fmt.Fprintf(sb, `{"$numberLong":%s}`, jsonStringLiteral(strconv.FormatInt(i, 10)))
		}

	case TypeDecimal128:
		d, _ := v.AsDecimal128()
		fmt.Fprintf(sb, `{"$numberDecimal":%s}`, jsonStringLiteral(d.String()))

	case TypeMinKey:
		sb.WriteString(`{"$minKey":1}`)

	case TypeMaxKey:
		sb.WriteString(`{"$maxKey":1}`)

	default:
		return newInvalidArgument("unknown value type 0x%02x", byte(v.typ))
	}
	return nil
}

// extJSONDateMinMillis/MaxMillis bound the range the relaxed profile renders as an
// ISO-8601 string; outside it, even relaxed mode falls back to the
// canonical $numberLong form (matching the official Extended JSON
// rule that relaxed dates only cover 1970-9999).
const (
	extJSONDateMinMillis = 0
	extJSONDateMaxMillis = 253402300799999 // 9999-12-31T23:59:59.999Z
)

// relaxedInt64Min/Max bound the int64 magnitudes the relaxed profile
// renders as a bare JSON number; outside that range a double can't
// represent the value exactly, so relaxed mode falls back to the
// canonical $numberLong form too (spec.md: "int32/int64 become plain
// JSON numbers when they fit in a double without loss").
const (
	relaxedInt64Min = -(int64(1) << 53)
	relaxedInt64Max = int64(1) << 53
)

func writeExtJSONDate(sb *strings.Builder, ms int64, canonical bool) {
	if !canonical && ms >= extJSONDateMinMillis && ms <= extJSONDateMaxMillis {
		t := time.UnixMilli(ms).UTC()
		layout := "2006-01-02T15:04:05Z"
		if t.Nanosecond() != 0 {
			layout = "2006-01-02T15:04:05.000Z"
		}
		fmt.Fprintf(sb, `{"$date":%s}`, jsonStringLiteral(t.Format(layout)))
		return
	}
	fmt.Fprintf(sb, `{"$date":{"$numberLong":%s}}`, jsonStringLiteral(strconv.FormatInt(ms, 10)))
}

// formatExtJSONDouble renders f so that an integral value keeps a
// visible decimal point (canonical and relaxed both require "10.0",
// never "10", so a reader can't mistake it for an integer type).
func formatExtJSONDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func jsonStringLiteral(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal(string) only fails on invalid UTF-8, which BSON
		// strings are guaranteed not to contain by construction.
		return `""`
	}
	return string(b)
}
