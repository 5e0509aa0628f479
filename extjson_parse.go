package bson

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// jsonKind distinguishes the shapes a parsed JSON token tree can take.
type jsonKind int

const (
	jsonObject jsonKind = iota
	jsonArray
	jsonString
	jsonNumber
	jsonBool
	jsonNull
)

// jsonValue is a parsed JSON value that preserves object member order,
// which encoding/json's map-based decoding cannot do.
type jsonValue struct {
	kind jsonKind
	obj  []jsonKV
	arr  []jsonValue
	str  string // also holds the raw literal text for jsonNumber
	b    bool
}

type jsonKV struct {
	Key string
	Val jsonValue
}

func (jv jsonValue) field(key string) (jsonValue, bool) {
	for _, kv := range jv.obj {
		if kv.Key == key {
			return kv.Val, true
		}
	}
	return jsonValue{}, false
}

// keySet returns jv's member keys, used to match an object's shape
// against a known Extended JSON type wrapper.
func (jv jsonValue) keySet() map[string]bool {
	m := make(map[string]bool, len(jv.obj))
	for _, kv := range jv.obj {
		m[kv.Key] = true
	}
	return m
}

type extJSONParser struct {
	s   string
	pos int
}

func (p *extJSONParser) skipWS() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *extJSONParser) errf(format string, args ...interface{}) error {
	return newDataCorrupted("", format, args...)
}

func (p *extJSONParser) parseValue() (jsonValue, error) {
	p.skipWS()
	if p.pos >= len(p.s) {
		return jsonValue{}, p.errf("unexpected end of JSON input")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return jsonValue{}, err
		}
		return jsonValue{kind: jsonString, str: s}, nil
	case c == 't':
		return p.parseLiteral("true", jsonValue{kind: jsonBool, b: true})
	case c == 'f':
		return p.parseLiteral("false", jsonValue{kind: jsonBool, b: false})
	case c == 'n':
		return p.parseLiteral("null", jsonValue{kind: jsonNull})
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return jsonValue{}, p.errf("unexpected character %q", c)
	}
}

func (p *extJSONParser) parseLiteral(lit string, val jsonValue) (jsonValue, error) {
	if !strings.HasPrefix(p.s[p.pos:], lit) {
		return jsonValue{}, p.errf("invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	return val, nil
}

func (p *extJSONParser) parseObject() (jsonValue, error) {
	p.pos++ // consume '{'
	jv := jsonValue{kind: jsonObject}
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return jv, nil
	}
	for {
		p.skipWS()
		if p.pos >= len(p.s) || p.s[p.pos] != '"' {
			return jsonValue{}, p.errf("expected object key at offset %d", p.pos)
		}
		key, err := p.parseString()
		if err != nil {
			return jsonValue{}, err
		}
		p.skipWS()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return jsonValue{}, p.errf("expected ':' after key %q", key)
		}
		p.pos++
		val, err := p.parseValue()
		if err != nil {
			return jsonValue{}, err
		}
		jv.obj = append(jv.obj, jsonKV{Key: key, Val: val})
		p.skipWS()
		if p.pos >= len(p.s) {
			return jsonValue{}, p.errf("unterminated object")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return jv, nil
		}
		return jsonValue{}, p.errf("expected ',' or '}' at offset %d", p.pos)
	}
}

func (p *extJSONParser) parseArray() (jsonValue, error) {
	p.pos++ // consume '['
	jv := jsonValue{kind: jsonArray}
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return jv, nil
	}
	for {
		val, err := p.parseValue()
		if err != nil {
			return jsonValue{}, err
		}
		jv.arr = append(jv.arr, val)
		p.skipWS()
		if p.pos >= len(p.s) {
			return jsonValue{}, p.errf("unterminated array")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return jv, nil
		}
		return jsonValue{}, p.errf("expected ',' or ']' at offset %d", p.pos)
	}
}

func (p *extJSONParser) parseString() (string, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '"':
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return "", p.errf("unterminated escape sequence")
			}
			switch esc := p.s[p.pos]; esc {
			case '"', '\\', '/':
				sb.WriteByte(esc)
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", p.errf("invalid escape character %q", esc)
			}
		default:
			r, size := utf8.DecodeRuneInString(p.s[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errf("unterminated string")
}

func (p *extJSONParser) parseUnicodeEscape() (rune, error) {
	p.pos++ // consume 'u'
	hi, err := p.parseHex4()
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(hi)) && strings.HasPrefix(p.s[p.pos:], `\u`) {
		save := p.pos
		p.pos += 2
		lo, err := p.parseHex4()
		if err != nil {
			p.pos = save
			return rune(hi), nil
		}
		if r := utf16.DecodeRune(rune(hi), rune(lo)); r != utf8.RuneError {
			return r, nil
		}
		p.pos = save
	}
	return rune(hi), nil
}

func (p *extJSONParser) parseHex4() (uint16, error) {
	if p.pos+4 > len(p.s) {
		return 0, p.errf("truncated \\u escape")
	}
	v, err := strconv.ParseUint(p.s[p.pos:p.pos+4], 16, 16)
	if err != nil {
		return 0, p.errf("invalid \\u escape: %v", err)
	}
	p.pos += 4
	return uint16(v), nil
}

func (p *extJSONParser) parseNumber() (jsonValue, error) {
	start := p.pos
	if p.pos < len(p.s) && p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos == start {
		return jsonValue{}, p.errf("invalid number at offset %d", start)
	}
	return jsonValue{kind: jsonNumber, str: p.s[start:p.pos]}, nil
}

// --- convert: parsed JSON tree -> Value ---

// jsonValueToBSON converts a parsed JSON tree to a Value. Objects go
// through jsonObjectToBSON, which matches each object's member key set
// against the recognized type wrappers. A JSON object whose member keys
// exactly match one of those sets is "applicable" for that wrapper: it
// is parsed as that
// BSON type, and any internal inconsistency is a DataCorruptedError,
// not a silent fallback to an ordinary document.
func jsonValueToBSON(jv jsonValue) (Value, error) {
	switch jv.kind {
	case jsonNull:
		return NewNull(), nil
	case jsonBool:
		return NewBool(jv.b), nil
	case jsonString:
		return NewString(jv.str), nil
	case jsonNumber:
		return parseRelaxedNumber(jv.str)
	case jsonArray:
		vals := make([]Value, len(jv.arr))
		for i, elt := range jv.arr {
			v, err := jsonValueToBSON(elt)
			if err != nil {
				return Value{}, prependKeyPath(strconv.Itoa(i), err)
			}
			vals[i] = v
		}
		d, err := NewArrayDocument(vals)
		if err != nil {
			return Value{}, err
		}
		return NewArray(d), nil
	case jsonObject:
		return jsonObjectToBSON(jv)
	default:
		return Value{}, newDataCorrupted("", "unrecognized JSON value")
	}
}

func parseRelaxedNumber(raw string) (Value, error) {
	if !strings.ContainsAny(raw, ".eE") {
		if i32, err := strconv.ParseInt(raw, 10, 32); err == nil {
			return NewInt32(int32(i32)), nil
		}
		if i64, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return NewInt64(i64), nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, newDataCorrupted("", "invalid number literal %q", raw)
	}
	return NewDouble(f), nil
}

func jsonObjectToBSON(jv jsonValue) (Value, error) {
	keys := jv.keySet()

	switch {
	case len(keys) == 1 && keys["$oid"]:
		s, err := wrapperStringField(jv, "$oid")
		if err != nil {
			return Value{}, err
		}
		id, err := ObjectIDFromHex(s)
		if err != nil {
			return Value{}, newDataCorrupted("$oid", "%v", err)
		}
		return NewObjectIDValue(id), nil

	case len(keys) == 1 && keys["$numberInt"]:
		s, err := wrapperStringField(jv, "$numberInt")
		if err != nil {
			return Value{}, err
		}
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, newDataCorrupted("$numberInt", "invalid int32 %q", s)
		}
		return NewInt32(int32(i)), nil

	case len(keys) == 1 && keys["$numberLong"]:
		s, err := wrapperStringField(jv, "$numberLong")
		if err != nil {
			return Value{}, err
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, newDataCorrupted("$numberLong", "invalid int64 %q", s)
		}
		return NewInt64(i), nil

	case len(keys) == 1 && keys["$numberDouble"]:
		s, err := wrapperStringField(jv, "$numberDouble")
		if err != nil {
			return Value{}, err
		}
		f, err := parseExtJSONDoubleLiteral(s)
		if err != nil {
			return Value{}, newDataCorrupted("$numberDouble", "%v", err)
		}
		return NewDouble(f), nil

	case len(keys) == 1 && keys["$numberDecimal"]:
		s, err := wrapperStringField(jv, "$numberDecimal")
		if err != nil {
			return Value{}, err
		}
		d, err := ParseDecimal128(s)
		if err != nil {
			return Value{}, newDataCorrupted("$numberDecimal", "%v", err)
		}
		return NewDecimal128Value(d), nil

	case len(keys) == 1 && keys["$undefined"]:
		return NewUndefined(), nil

	case len(keys) == 1 && keys["$minKey"]:
		return NewMinKey(), nil

	case len(keys) == 1 && keys["$maxKey"]:
		return NewMaxKey(), nil

	case len(keys) == 1 && keys["$symbol"]:
		s, err := wrapperStringField(jv, "$symbol")
		if err != nil {
			return Value{}, err
		}
		return NewSymbol(s), nil

	case len(keys) == 1 && keys["$code"]:
		s, err := wrapperStringField(jv, "$code")
		if err != nil {
			return Value{}, err
		}
		return NewCode(s), nil

	case len(keys) == 2 && keys["$code"] && keys["$scope"]:
		code, err := wrapperStringField(jv, "$code")
		if err != nil {
			return Value{}, err
		}
		scopeJV, _ := jv.field("$scope")
		scopeVal, err := jsonValueToBSON(scopeJV)
		if err != nil {
			return Value{}, prependKeyPath("$scope", err)
		}
		scope, ok := scopeVal.AsDocument()
		if !ok {
			return Value{}, newDataCorrupted("$scope", "must be an object")
		}
		return NewCodeWithScope(CodeWithScope{Code: code, Scope: scope}), nil

	case len(keys) == 1 && keys["$date"]:
		return jsonDateToBSON(jv)

	case len(keys) == 1 && keys["$binary"]:
		return jsonBinaryToBSON(jv)

	case len(keys) == 2 && keys["$binary"] && keys["$type"]:
		return jsonLegacyBinaryToBSON(jv)

	case len(keys) == 1 && keys["$uuid"]:
		s, err := wrapperStringField(jv, "$uuid")
		if err != nil {
			return Value{}, err
		}
		data, err := parseUUIDString(s)
		if err != nil {
			return Value{}, newDataCorrupted("$uuid", "%v", err)
		}
		return NewBinary(Binary{Subtype: SubtypeUUID, Data: data}), nil

	case len(keys) == 1 && keys["$regularExpression"]:
		return jsonRegexToBSON(jv)

	case len(keys) == 2 && keys["$regex"] && keys["$options"]:
		return jsonLegacyRegexToBSON(jv)

	case len(keys) == 1 && keys["$timestamp"]:
		return jsonTimestampToBSON(jv)

	case len(keys) == 1 && keys["$dbPointer"]:
		return jsonDBPointerToBSON(jv)

	default:
		b := NewDocumentBuilder()
		for _, kv := range jv.obj {
			v, err := jsonValueToBSON(kv.Val)
			if err != nil {
				return Value{}, prependKeyPath(kv.Key, err)
			}
			b.Append(kv.Key, v)
		}
		d, err := b.Build()
		if err != nil {
			return Value{}, err
		}
		return NewDocument(d), nil
	}
}

func wrapperStringField(jv jsonValue, key string) (string, error) {
	field, _ := jv.field(key)
	if field.kind != jsonString {
		return "", newDataCorrupted(key, "must be a string")
	}
	return field.str, nil
}

func parseExtJSONDoubleLiteral(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func jsonDateToBSON(jv jsonValue) (Value, error) {
	field, _ := jv.field("$date")
	switch field.kind {
	case jsonString:
		t, err := parseExtJSONDateString(field.str)
		if err != nil {
			return Value{}, newDataCorrupted("$date", "%v", err)
		}
		return NewDateTimeFromTime(t), nil
	case jsonObject:
		inner, err := jsonValueToBSON(field)
		if err != nil {
			return Value{}, prependKeyPath("$date", err)
		}
		ms, ok := inner.AsInt64()
		if !ok {
			return Value{}, newDataCorrupted("$date", "canonical $date must wrap $numberLong")
		}
		return NewDateTime(ms), nil
	default:
		return Value{}, newDataCorrupted("$date", "must be a string or {$numberLong}")
	}
}

// parseExtJSONDateString accepts the relaxed profile's ISO-8601 forms:
// with or without fractional seconds, 'Z' or a numeric offset.
func parseExtJSONDateString(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02T15:04:05.999Z07:00",
		"2006-01-02T15:04:05Z07:00",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newInvalidArgument("invalid ISO-8601 datetime %q", s)
}

func jsonBinaryToBSON(jv jsonValue) (Value, error) {
	field, _ := jv.field("$binary")
	if field.kind != jsonObject {
		return Value{}, newDataCorrupted("$binary", "must be an object with base64/subType")
	}
	b64, err := wrapperStringField(field, "base64")
	if err != nil {
		return Value{}, err
	}
	sub, err := wrapperStringField(field, "subType")
	if err != nil {
		return Value{}, err
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Value{}, newDataCorrupted("$binary.base64", "%v", err)
	}
	subtype, err := strconv.ParseUint(sub, 16, 8)
	if err != nil {
		return Value{}, newDataCorrupted("$binary.subType", "invalid hex subtype %q", sub)
	}
	if isReservedSubtype(byte(subtype)) {
		return Value{}, newDataCorrupted("$binary.subType", "reserved subtype 0x%02x", subtype)
	}
	return NewBinary(Binary{Subtype: byte(subtype), Data: data}), nil
}

// jsonLegacyBinaryToBSON accepts the v1 legacy form:
// {"$binary": "<base64>", "$type": "<hex>"}.
func jsonLegacyBinaryToBSON(jv jsonValue) (Value, error) {
	b64, err := wrapperStringField(jv, "$binary")
	if err != nil {
		return Value{}, err
	}
	sub, err := wrapperStringField(jv, "$type")
	if err != nil {
		return Value{}, err
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Value{}, newDataCorrupted("$binary", "%v", err)
	}
	subtype, err := strconv.ParseUint(strings.TrimPrefix(sub, "0x"), 16, 8)
	if err != nil {
		return Value{}, newDataCorrupted("$type", "invalid hex subtype %q", sub)
	}
	if isReservedSubtype(byte(subtype)) {
		return Value{}, newDataCorrupted("$type", "reserved subtype 0x%02x", subtype)
	}
	return NewBinary(Binary{Subtype: byte(subtype), Data: data}), nil
}

func parseUUIDString(s string) ([]byte, error) {
	hexPart := strings.ReplaceAll(s, "-", "")
	if len(hexPart) != 32 {
		return nil, newInvalidArgument("UUID string %q must have 32 hex digits", s)
	}
	data := make([]byte, 16)
	for i := 0; i < 16; i++ {
		b, err := strconv.ParseUint(hexPart[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, newInvalidArgument("UUID string %q contains invalid hex", s)
		}
		data[i] = byte(b)
	}
	return data, nil
}

func jsonRegexToBSON(jv jsonValue) (Value, error) {
	field, _ := jv.field("$regularExpression")
	if field.kind != jsonObject {
		return Value{}, newDataCorrupted("$regularExpression", "must be an object with pattern/options")
	}
	pattern, err := wrapperStringField(field, "pattern")
	if err != nil {
		return Value{}, err
	}
	opts, err := wrapperStringField(field, "options")
	if err != nil {
		return Value{}, err
	}
	return NewRegex(Regex{Pattern: pattern, Options: opts}), nil
}

// jsonLegacyRegexToBSON accepts the legacy {"$regex": "...", "$options": "..."} form.
func jsonLegacyRegexToBSON(jv jsonValue) (Value, error) {
	pattern, err := wrapperStringField(jv, "$regex")
	if err != nil {
		return Value{}, err
	}
	opts, err := wrapperStringField(jv, "$options")
	if err != nil {
		return Value{}, err
	}
	return NewRegex(Regex{Pattern: pattern, Options: opts}), nil
}

func jsonTimestampToBSON(jv jsonValue) (Value, error) {
	field, _ := jv.field("$timestamp")
	if field.kind != jsonObject {
		return Value{}, newDataCorrupted("$timestamp", "must be an object with t/i")
	}
	tField, ok := field.field("t")
	if !ok || tField.kind != jsonNumber {
		return Value{}, newDataCorrupted("$timestamp.t", "must be a number")
	}
	iField, ok := field.field("i")
	if !ok || iField.kind != jsonNumber {
		return Value{}, newDataCorrupted("$timestamp.i", "must be a number")
	}
	t, err := strconv.ParseUint(tField.str, 10, 32)
	if err != nil {
		return Value{}, newDataCorrupted("$timestamp.t", "invalid uint32 %q", tField.str)
	}
	i, err := strconv.ParseUint(iField.str, 10, 32)
	if err != nil {
		return Value{}, newDataCorrupted("$timestamp.i", "invalid uint32 %q", iField.str)
	}
	return NewTimestamp(Timestamp{Seconds: uint32(t), Increment: uint32(i)}), nil
}

func jsonDBPointerToBSON(jv jsonValue) (Value, error) {
	field, _ := jv.field("$dbPointer")
	if field.kind != jsonObject {
		return Value{}, newDataCorrupted("$dbPointer", "must be an object with $ref/$id")
	}
	ref, err := wrapperStringField(field, "$ref")
	if err != nil {
		return Value{}, err
	}
	idField, ok := field.field("$id")
	if !ok {
		return Value{}, newDataCorrupted("$dbPointer.$id", "missing")
	}
	idVal, err := jsonValueToBSON(idField)
	if err != nil {
		return Value{}, prependKeyPath("$dbPointer.$id", err)
	}
	id, ok := idVal.AsObjectID()
	if !ok {
		return Value{}, newDataCorrupted("$dbPointer.$id", "must be an $oid")
	}
	return NewDBPointer(DBPointer{Namespace: ref, ID: id}), nil
}
