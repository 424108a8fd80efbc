package hcert

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/check"
)

// mustMarshal encodes fixtures for shape tests; marshaling literals never
// fails.
func mustMarshal(t *testing.T, value any) cbor.RawMessage {
	t.Helper()
	data, err := cbor.Marshal(value)
	check.Nil(t, err)
	return data
}

func validSign1Elements() []any {
	return []any{
		[]byte{0xa1, 0x01, 0x26}, // protected: {1: -7}
		map[int]any{},
		[]byte("payload"),
		[]byte("signature"),
	}
}

func TestExtractEnvelope_Valid(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: validSign1Elements()})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)
	check.Equal(t, []byte{0xa1, 0x01, 0x26}, envelope.Protected)
	check.Equal(t, []byte("payload"), envelope.Payload)
	check.Equal(t, []byte("signature"), envelope.Signature)
	check.Equal(t, []byte{0xa0}, []byte(envelope.UnprotectedRaw))
	check.Equal(t, 0, len(envelope.Unprotected))
}

func TestExtractEnvelope_TagNumberIsNotChecked(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: 99, Content: validSign1Elements()})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)
	check.NotNil(t, envelope)
}

func TestExtractEnvelope_UntaggedArray(t *testing.T) {
	item := mustMarshal(t, validSign1Elements())

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrContentMissing))
}

func TestExtractEnvelope_TaggedNonArray(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: "not an array"})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrContentMissing))
}

func TestExtractEnvelope_TooFewElements(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, map[int]any{}, []byte("payload"),
	}})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrContentMissing))
}

func TestExtractEnvelope_ProtectedNotByteString(t *testing.T) {
	// Element 2 is also malformed; the positional check at index 0 must win.
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		"text, not bytes", map[int]any{}, "also text", "still text",
	}})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrProtectedParameterMissing))
}

func TestExtractEnvelope_UnprotectedNotMap(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, 17, []byte("payload"), []byte("signature"),
	}})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrUnprotectedParameterMissing))
}

func TestExtractEnvelope_PayloadNotByteString(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, map[int]any{}, "text payload", []byte("signature"),
	}})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrPayloadParameterMissing))
}

func TestExtractEnvelope_SignatureNotByteString(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, map[int]any{}, []byte("payload"), 42,
	}})

	_, err := ExtractEnvelope(item)
	check.True(t, errors.Is(err, ErrSignatureParameterMissing))
}

func TestExtractEnvelope_UnprotectedHeaderRawBytes(t *testing.T) {
	unprotected := map[int]any{4: []byte{0xde, 0xad}}
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, unprotected, []byte("payload"), []byte("signature"),
	}})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)
	check.Equal(t, 1, len(envelope.Unprotected))

	// Values are stored as raw encoded bytes keyed by the encoded key
	kidLabel := mustMarshal(t, 4)
	rawKid, ok := envelope.Unprotected[string(kidLabel)]
	check.True(t, ok)
	check.Equal(t, mustMarshal(t, []byte{0xde, 0xad}), cbor.RawMessage(rawKid))

	// And the whole header map survives byte-exact
	check.Equal(t, mustMarshal(t, unprotected), cbor.RawMessage(envelope.UnprotectedRaw))
}

func TestEnvelope_AlgorithmAndKeyID(t *testing.T) {
	protected := mustMarshal(t, map[int]any{1: -7, 4: []byte{1, 2, 3, 4}})
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte(protected), map[int]any{}, []byte("payload"), []byte("signature"),
	}})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)

	alg, err := envelope.Algorithm()
	check.Nil(t, err)
	check.Equal(t, int64(-7), alg)
	check.Equal(t, []byte{1, 2, 3, 4}, envelope.KeyID())
}

func TestEnvelope_KeyIDFallsBackToUnprotected(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: []any{
		[]byte{0xa0}, map[int]any{4: []byte{9, 9, 9}}, []byte("payload"), []byte("signature"),
	}})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)
	check.Equal(t, []byte{9, 9, 9}, envelope.KeyID())
}

func TestEnvelope_SigStructure(t *testing.T) {
	item := mustMarshal(t, cbor.Tag{Number: coseSign1TagNumber, Content: validSign1Elements()})

	envelope, err := ExtractEnvelope(item)
	check.Nil(t, err)

	toBeSigned, err := envelope.SigStructure()
	check.Nil(t, err)

	expected := mustMarshal(t, []any{"Signature1", []byte{0xa1, 0x01, 0x26}, []byte{}, []byte("payload")})
	check.Equal(t, expected, cbor.RawMessage(toBeSigned))
}
