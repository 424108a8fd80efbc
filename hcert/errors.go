package hcert

import (
	"errors"
	"fmt"
)

// Positional COSE_Sign1 shape errors, checked in this fixed order by
// ExtractEnvelope. The first mismatch wins.
var (
	ErrContentMissing              = errors.New("cose: content is not a tagged array of at least 4 elements")
	ErrProtectedParameterMissing   = errors.New("cose: protected header parameter missing or not a byte string")
	ErrUnprotectedParameterMissing = errors.New("cose: unprotected header parameter missing or not a map")
	ErrPayloadParameterMissing     = errors.New("cose: payload parameter missing or not a byte string")
	ErrSignatureParameterMissing   = errors.New("cose: signature parameter missing or not a byte string")
)

// Base45DecodingError reports that the textual body is not valid Base45.
type Base45DecodingError struct {
	Cause error
}

func (e *Base45DecodingError) Error() string {
	return fmt.Sprintf("base45 decoding failed: %v", e.Cause)
}

func (e *Base45DecodingError) Unwrap() error { return e.Cause }

// DecompressionError reports bytes that carry a zlib header but fail to
// inflate. Bytes without a zlib header bypass decompression entirely and can
// never produce this error.
type DecompressionError struct {
	Cause error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("zlib decompression failed: %v", e.Cause)
}

func (e *DecompressionError) Unwrap() error { return e.Cause }

// CBORDecodingError reports that the outer COSE bytes are not parseable CBOR.
type CBORDecodingError struct {
	Cause error
}

func (e *CBORDecodingError) Error() string {
	return fmt.Sprintf("cbor decoding failed: %v", e.Cause)
}

func (e *CBORDecodingError) Unwrap() error { return e.Cause }

// MalformedCBORError reports input that parsed without error but yielded no
// CBOR item. It carries the offending bytes for diagnostics.
type MalformedCBORError struct {
	Bytes []byte
}

func (e *MalformedCBORError) Error() string {
	return fmt.Sprintf("cbor input yielded no item (%d bytes: %x)", len(e.Bytes), e.Bytes)
}

// COSEPayloadDecodingError reports a failure to decode the envelope payload
// as a CBOR item. A nil Cause means the payload was absent.
type COSEPayloadDecodingError struct {
	Cause error
}

func (e *COSEPayloadDecodingError) Error() string {
	if e.Cause == nil {
		return "cose payload is absent"
	}
	return fmt.Sprintf("cose payload decoding failed: %v", e.Cause)
}

func (e *COSEPayloadDecodingError) Unwrap() error { return e.Cause }

// PayloadConversionError reports that the payload CBOR item could not be
// converted to a generic key-value structure. A nil Cause means the item was
// not a map at all.
type PayloadConversionError struct {
	Cause error
}

func (e *PayloadConversionError) Error() string {
	if e.Cause == nil {
		return "payload conversion failed: item is not a map"
	}
	return fmt.Sprintf("payload conversion failed: %v", e.Cause)
}

func (e *PayloadConversionError) Unwrap() error { return e.Cause }

// SchemaDecodingError reports a generic payload structure that does not
// satisfy the certificate schema: a required field is missing, a scalar has
// the wrong type, or a date is malformed.
type SchemaDecodingError struct {
	Cause error
}

func (e *SchemaDecodingError) Error() string {
	return fmt.Sprintf("certificate schema decoding failed: %v", e.Cause)
}

func (e *SchemaDecodingError) Unwrap() error { return e.Cause }

// InputTooLargeError reports input rejected by the pre-decode size guard.
type InputTooLargeError struct {
	Size  int
	Limit int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("input of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}
