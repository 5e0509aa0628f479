package bson

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/bsonkit/bson/internal/option"
)

// DateEncoding selects how EncodeDateTime represents a time.Time
// (component L). ValueOf does not consult it; it always produces a
// BSON datetime.
type DateEncoding int

const (
	DateAsDateTime DateEncoding = iota
	DateAsMillis
	DateAsSecondsDouble
	DateAsISO8601
	DateCustom
)

// DataEncoding selects how EncodeBinaryData represents a []byte.
// ValueOf does not consult it; it always produces generic binary.
type DataEncoding int

const (
	DataAsBinaryGeneric DataEncoding = iota
	DataAsBase64
	DataAsBinarySubtype
	DataCustom
)

// UUIDEncoding selects how a 16-byte UUID value is represented.
type UUIDEncoding int

const (
	UUIDAsBinarySubtype4 UUIDEncoding = iota
	UUIDDeferToData
)

// KeyStrategy selects how a field name is transformed into a document
// key.
type KeyStrategy int

const (
	KeyDefault KeyStrategy = iota
	KeySnakeCase
	KeyCustom
)

// EncodeOptions collects the four encoding knobs. Encode and
// EncodeFragment take no options and do not read it; the knobs take
// effect when passed to EncodeDateTime, EncodeBinaryData, EncodeUUID
// and ApplyKeyStrategy. The zero value selects DateAsDateTime,
// DataAsBinaryGeneric, UUIDAsBinarySubtype4, KeyDefault.
type EncodeOptions struct {
	DateEncoding    DateEncoding
	DataEncoding    DataEncoding
	DataSubtype     byte // used when DataEncoding == DataAsBinarySubtype
	DataCustomFn    func([]byte) (Value, error)
	UUIDEncoding    UUIDEncoding
	KeyStrategy     KeyStrategy
	KeyCustomFn     func(string) string
	DateCustomFn    func(time.Time) (Value, error)
}

// DecodeOptions carries the decoding-side KeyStrategy and nothing
// else. Decode and DecodeValue take no options and do not read it.
type DecodeOptions struct {
	KeyStrategy KeyStrategy
	KeyCustomFn func(string) string
}

// EncodeOption configures an EncodeOptions.
type EncodeOption = option.Option[*EncodeOptions]

// DecodeOption configures a DecodeOptions.
type DecodeOption = option.Option[*DecodeOptions]

func WithDateEncoding(e DateEncoding) EncodeOption {
	return option.New(func(o *EncodeOptions) { o.DateEncoding = e })
}

func WithDateCustomFn(fn func(time.Time) (Value, error)) EncodeOption {
	return option.New(func(o *EncodeOptions) {
		o.DateEncoding = DateCustom
		o.DateCustomFn = fn
	})
}

func WithDataEncoding(e DataEncoding) EncodeOption {
	return option.New(func(o *EncodeOptions) { o.DataEncoding = e })
}

func WithDataSubtype(subtype byte) EncodeOption {
	return option.New(func(o *EncodeOptions) {
		o.DataEncoding = DataAsBinarySubtype
		o.DataSubtype = subtype
	})
}

func WithDataCustomFn(fn func([]byte) (Value, error)) EncodeOption {
	return option.New(func(o *EncodeOptions) {
		o.DataEncoding = DataCustom
		o.DataCustomFn = fn
	})
}

func WithUUIDEncoding(e UUIDEncoding) EncodeOption {
	return option.New(func(o *EncodeOptions) { o.UUIDEncoding = e })
}

func WithKeyStrategy(s KeyStrategy) EncodeOption {
	return option.New(func(o *EncodeOptions) { o.KeyStrategy = s })
}

func WithKeyCustomFn(fn func(string) string) EncodeOption {
	return option.New(func(o *EncodeOptions) {
		o.KeyStrategy = KeyCustom
		o.KeyCustomFn = fn
	})
}

func newEncodeOptions(opts ...EncodeOption) *EncodeOptions {
	o := &EncodeOptions{}
	option.Apply(o, opts...)
	return o
}

func newDecodeOptions(opts ...DecodeOption) *DecodeOptions {
	o := &DecodeOptions{}
	option.Apply(o, opts...)
	return o
}

// EncodeDateTime renders t per the given DateEncoding. Encode does not
// call it; it is exported so a caller doing manual field-by-field
// conversion can apply the rule without reflection (§4 component L).
func EncodeDateTime(t time.Time, enc DateEncoding, custom func(time.Time) (Value, error)) (Value, error) {
	switch enc {
	case DateAsDateTime:
		return NewDateTimeFromTime(t), nil
	case DateAsMillis:
		return NewInt64(t.UnixNano() / int64(time.Millisecond)), nil
	case DateAsSecondsDouble:
		return NewDouble(float64(t.UnixNano()) / float64(time.Second)), nil
	case DateAsISO8601:
		return NewString(t.UTC().Format("2006-01-02T15:04:05.000Z")), nil
	case DateCustom:
		if custom == nil {
			return Value{}, newLogic("DateCustom encoding selected with no DateCustomFn")
		}
		return custom(t)
	default:
		return Value{}, newLogic("unknown DateEncoding %d", enc)
	}
}

// EncodeBinaryData renders b per the given DataEncoding.
func EncodeBinaryData(b []byte, enc DataEncoding, subtype byte, custom func([]byte) (Value, error)) (Value, error) {
	switch enc {
	case DataAsBinaryGeneric:
		return NewBinary(Binary{Subtype: SubtypeGeneric, Data: b}), nil
	case DataAsBase64:
		return NewString(base64.StdEncoding.EncodeToString(b)), nil
	case DataAsBinarySubtype:
		if isReservedSubtype(subtype) {
			return Value{}, newInvalidArgument("reserved binary subtype 0x%02x", subtype)
		}
		return NewBinary(Binary{Subtype: subtype, Data: b}), nil
	case DataCustom:
		if custom == nil {
			return Value{}, newLogic("DataCustom encoding selected with no DataCustomFn")
		}
		return custom(b)
	default:
		return Value{}, newLogic("unknown DataEncoding %d", enc)
	}
}

// EncodeUUID renders a 16-byte UUID per the given UUIDEncoding.
func EncodeUUID(data []byte, enc UUIDEncoding) (Value, error) {
	if len(data) != 16 {
		return Value{}, newInvalidArgument("UUID must be exactly 16 bytes, got %d", len(data))
	}
	switch enc {
	case UUIDAsBinarySubtype4:
		return NewBinary(Binary{Subtype: SubtypeUUID, Data: data}), nil
	case UUIDDeferToData:
		return NewBinary(Binary{Subtype: SubtypeGeneric, Data: data}), nil
	default:
		return Value{}, newLogic("unknown UUIDEncoding %d", enc)
	}
}

// ApplyKeyStrategy transforms a Go field name into a document key per
// the given KeyStrategy.
func ApplyKeyStrategy(name string, s KeyStrategy, custom func(string) string) (string, error) {
	switch s {
	case KeyDefault:
		return name, nil
	case KeySnakeCase:
		return toSnakeCase(name), nil
	case KeyCustom:
		if custom == nil {
			return "", newLogic("KeyCustom strategy selected with no KeyCustomFn")
		}
		return custom(name), nil
	default:
		return "", newLogic("unknown KeyStrategy %d", s)
	}
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
