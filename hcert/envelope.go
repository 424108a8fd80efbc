package hcert

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR major types, from the initial byte of an encoded item.
const (
	majorByteString = 2
	majorMap        = 5
)

// Envelope is the COSE_Sign1 structure a certificate is carried in:
// [protected: bstr, unprotected: map, payload: bstr, signature: bstr].
//
// The unprotected header is preserved twice: UnprotectedRaw holds the exact
// encoded map bytes as they appeared on the wire, Unprotected maps each
// re-encoded key to its raw encoded value for lookup. Header values are never
// reinterpreted beyond that. An Envelope is constructed once by
// ExtractEnvelope and not mutated afterwards.
type Envelope struct {
	Protected      []byte
	UnprotectedRaw []byte
	Unprotected    map[string][]byte
	Payload        []byte
	Signature      []byte
}

// protectedHeader covers the two COSE header parameters this module cares
// about: algorithm (label 1) and key identifier (label 4).
type protectedHeader struct {
	Alg int64  `cbor:"1,keyasint,omitempty"`
	Kid []byte `cbor:"4,keyasint,omitempty"`
}

// ExtractEnvelope matches a decoded CBOR item against the COSE_Sign1 shape.
//
// The item must be a tagged value (the tag number itself is not checked)
// wrapping an array of at least 4 elements. The elements are checked
// positionally, in order, and the first mismatch determines the error:
// ErrContentMissing for the outer shape, then the four parameter-missing
// errors for indexes 0 through 3.
func ExtractEnvelope(item cbor.RawMessage) (*Envelope, error) {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(item, &tagged); err != nil {
		return nil, ErrContentMissing
	}

	var elements []cbor.RawMessage
	if err := cbor.Unmarshal(tagged.Content, &elements); err != nil {
		return nil, ErrContentMissing
	}
	if len(elements) < 4 {
		return nil, ErrContentMissing
	}

	var protected []byte
	if majorType(elements[0]) != majorByteString {
		return nil, ErrProtectedParameterMissing
	}
	if err := cbor.Unmarshal(elements[0], &protected); err != nil {
		return nil, ErrProtectedParameterMissing
	}

	if majorType(elements[1]) != majorMap {
		return nil, ErrUnprotectedParameterMissing
	}
	unprotected, err := decodeRawHeaderMap(elements[1])
	if err != nil {
		return nil, ErrUnprotectedParameterMissing
	}

	var payload []byte
	if majorType(elements[2]) != majorByteString {
		return nil, ErrPayloadParameterMissing
	}
	if err := cbor.Unmarshal(elements[2], &payload); err != nil {
		return nil, ErrPayloadParameterMissing
	}

	var signature []byte
	if majorType(elements[3]) != majorByteString {
		return nil, ErrSignatureParameterMissing
	}
	if err := cbor.Unmarshal(elements[3], &signature); err != nil {
		return nil, ErrSignatureParameterMissing
	}

	return &Envelope{
		Protected:      protected,
		UnprotectedRaw: elements[1],
		Unprotected:    unprotected,
		Payload:        payload,
		Signature:      signature,
	}, nil
}

// decodeRawHeaderMap converts a CBOR map to encoded-key -> encoded-value
// pairs. Keys are unique by their encoded bytes; a duplicate key in the
// source map follows last-write-wins.
func decodeRawHeaderMap(raw cbor.RawMessage) (map[string][]byte, error) {
	var entries map[any]cbor.RawMessage
	if err := cbor.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	pairs := make(map[string][]byte, len(entries))
	for key, value := range entries {
		encodedKey, err := cbor.Marshal(key)
		if err != nil {
			return nil, err
		}
		pairs[string(encodedKey)] = value
	}
	return pairs, nil
}

func majorType(encoded []byte) byte {
	if len(encoded) == 0 {
		return 0xff
	}
	return encoded[0] >> 5
}

// Algorithm returns the COSE algorithm identifier from the protected header.
func (e *Envelope) Algorithm() (int64, error) {
	var header protectedHeader
	if err := cbor.Unmarshal(e.Protected, &header); err != nil {
		return 0, err
	}
	return header.Alg, nil
}

// KeyID returns the signing key identifier, taken from the protected header
// or, failing that, from the unprotected header. Nil when neither carries one.
func (e *Envelope) KeyID() []byte {
	var header protectedHeader
	if err := cbor.Unmarshal(e.Protected, &header); err == nil && len(header.Kid) > 0 {
		return header.Kid
	}

	encodedLabel, err := cbor.Marshal(4)
	if err != nil {
		return nil
	}
	rawKid, ok := e.Unprotected[string(encodedLabel)]
	if !ok {
		return nil
	}
	var kid []byte
	if err := cbor.Unmarshal(rawKid, &kid); err != nil {
		return nil
	}
	return kid
}

// SigStructure builds the COSE Signature1 to-be-signed bytes for this
// envelope, for use by an external signature verifier:
// ["Signature1", protected, external_aad, payload] with an empty external_aad.
func (e *Envelope) SigStructure() ([]byte, error) {
	return cbor.Marshal([]any{
		"Signature1",
		e.Protected,
		[]byte{},
		e.Payload,
	})
}
