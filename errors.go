package bson

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidArgumentError reports malformed user input: bad hex, bad base64,
// an out-of-range Decimal128 string, an unknown binary subtype, and the
// like. The message names the offending input literally.
type InvalidArgumentError struct {
	msg string
	err error
}

func newInvalidArgument(format string, args ...interface{}) error {
	return errors.WithStack(&InvalidArgumentError{msg: fmt.Sprintf(format, args...)})
}

func (e *InvalidArgumentError) Error() string { return e.msg }
func (e *InvalidArgumentError) Unwrap() error { return e.err }

// InternalError reports wire bytes that are internally inconsistent: a
// short read, a length mismatch, an unknown type tag. The message names
// the failing byte offset when one is available.
type InternalError struct {
	msg    string
	offset int
	err    error
}

func newInternal(offset int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if offset >= 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, offset)
	}
	return errors.WithStack(&InternalError{msg: msg, offset: offset})
}

func (e *InternalError) Error() string { return e.msg }
func (e *InternalError) Unwrap() error { return e.err }

// LogicError reports misuse of the API: an out-of-range index, a
// negative drop count, and similar caller mistakes.
type LogicError struct {
	msg string
}

func newLogic(format string, args ...interface{}) error {
	return errors.WithStack(&LogicError{msg: fmt.Sprintf(format, args...)})
}

func (e *LogicError) Error() string { return e.msg }

// DocumentTooLargeError reports a document that would exceed the 16 MiB
// size limit.
type DocumentTooLargeError struct {
	Size  int
	Limit int
}

func newDocumentTooLarge(size int) error {
	return errors.WithStack(&DocumentTooLargeError{Size: size, Limit: MaxDocumentLen})
}

func (e *DocumentTooLargeError) Error() string {
	return fmt.Sprintf("document of %d bytes exceeds %d byte limit", e.Size, e.Limit)
}

// DataCorruptedError is raised by the Extended JSON reader. It carries
// the dotted key path of the failing sub-value, joined per §7/§4.G.
type DataCorruptedError struct {
	KeyPath string
	msg     string
}

func newDataCorrupted(keyPath, format string, args ...interface{}) error {
	return errors.WithStack(&DataCorruptedError{
		KeyPath: keyPath,
		msg:     fmt.Sprintf(format, args...),
	})
}

func (e *DataCorruptedError) Error() string {
	if e.KeyPath == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.KeyPath, e.msg)
}

// prependKeyPath returns a DataCorruptedError with name prepended to
// the existing key path, or wraps err as a fresh one if it isn't
// already a DataCorruptedError.
func prependKeyPath(name string, err error) error {
	var dc *DataCorruptedError
	if errors.As(err, &dc) {
		path := name
		if dc.KeyPath != "" {
			path = name + "." + dc.KeyPath
		}
		return newDataCorrupted(path, "%s", dc.msg)
	}
	return newDataCorrupted(name, "%s", err.Error())
}

// TypeMismatchError is raised at the adapter boundary (component M)
// when a BSON value's type is not the one the caller requested.
type TypeMismatchError struct {
	Want string
	Got  string
}

func newTypeMismatch(want, got string) error {
	return errors.WithStack(&TypeMismatchError{Want: want, Got: got})
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}
