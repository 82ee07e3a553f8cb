package container

import (
	"errors"
	"fmt"
)

var (
	ErrTooShort          = errors.New("container: buffer shorter than minimum container size")
	ErrBadMagic          = errors.New("container: bad magic")
	ErrLengthOutOfRange  = errors.New("container: length out of range")
	ErrChecksumMismatch  = errors.New("container: checksum mismatch")
	ErrPayloadMalformed  = errors.New("container: payload malformed")
	ErrIdentifierTooLong = errors.New("container: identifier too long")
)

// TooShortError reports the buffer length against MinContainerSize.
type TooShortError struct {
	Length int
}

func (e TooShortError) Error() string {
	return fmt.Sprintf("container: buffer is %d bytes, need at least %d", e.Length, MinContainerSize)
}

func (e TooShortError) Is(target error) bool { return target == ErrTooShort }

// BadMagicError names the offset of the first byte that differs from the
// layout template.
type BadMagicError struct {
	Offset int
}

func (e BadMagicError) Error() string {
	return fmt.Sprintf("container: bad magic at offset %d (0x%x)", e.Offset, e.Offset)
}

func (e BadMagicError) Is(target error) bool { return target == ErrBadMagic }

// LengthOutOfRangeError names a length field whose declared value does not
// fit the buffer or disagrees with the recomputed value.
type LengthOutOfRangeError struct {
	Field    string
	Declared uint64
	Limit    uint64
}

func (e LengthOutOfRangeError) Error() string {
	return fmt.Sprintf("container: %s out of range: declared %d, limit %d", e.Field, e.Declared, e.Limit)
}

func (e LengthOutOfRangeError) Is(target error) bool { return target == ErrLengthOutOfRange }

// ChecksumMismatchError carries the stored and recomputed values.
type ChecksumMismatchError struct {
	Field    string
	Expected uint32
	Actual   uint32
}

func (e ChecksumMismatchError) Error() string {
	return fmt.Sprintf("container: %s checksum mismatch: stored 0x%08x, computed 0x%08x", e.Field, e.Expected, e.Actual)
}

func (e ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }

// PayloadMalformedError wraps the decoder error that rejected the payload.
type PayloadMalformedError struct {
	Reason string
	Err    error
}

func (e PayloadMalformedError) Error() string {
	if e.Err == nil {
		return "container: payload malformed: " + e.Reason
	}
	return fmt.Sprintf("container: payload malformed: %s: %v", e.Reason, e.Err)
}

func (e PayloadMalformedError) Is(target error) bool { return target == ErrPayloadMalformed }

func (e PayloadMalformedError) Unwrap() error { return e.Err }

// IdentifierTooLongError is returned by Build.
type IdentifierTooLongError struct {
	Length int
	Width  int
}

func (e IdentifierTooLongError) Error() string {
	return fmt.Sprintf("container: identifier is %d bytes, field width is %d", e.Length, e.Width)
}

func (e IdentifierTooLongError) Is(target error) bool { return target == ErrIdentifierTooLong }

// IdentifierPaddedError is returned by Build for an identifier whose last
// byte is IdentifierPad.
type IdentifierPaddedError struct {
	Length int
}

func (e IdentifierPaddedError) Error() string {
	return fmt.Sprintf("container: %d-byte identifier ends in pad byte 0x%02x", e.Length, IdentifierPad)
}

func (e IdentifierPaddedError) Is(target error) bool { return target == ErrIdentifierTooLong }
