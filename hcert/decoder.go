package hcert

import (
	"bytes"
	"io"
	"strings"

	"github.com/adrianrudnik/base45-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zlib"
)

// DefaultPrefix is the textual prefix carried by health certificate barcodes.
const DefaultPrefix = "HC1:"

// DecodeOptions configure a Decoder.
type DecodeOptions struct {
	// Prefix is stripped from the input when present. Absence of the prefix
	// is not an error.
	Prefix string

	// StrictSchema enforces presence of all required certificate fields
	// during record materialization.
	StrictSchema bool

	// MaxInputLength rejects inputs longer than this many bytes before any
	// decoding work happens, bounding the worst-case decompression and parse
	// cost of hostile inputs. Zero disables the guard.
	MaxInputLength int
}

// DefaultDecodeOptions returns the options used by the package-level Decode.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		Prefix:       DefaultPrefix,
		StrictSchema: true,
	}
}

// Decoder runs the certificate decode pipeline. A Decoder holds no mutable
// state; a single instance is safe for concurrent use.
type Decoder struct {
	opts DecodeOptions
}

// NewDecoder returns a Decoder with the given options.
func NewDecoder(opts DecodeOptions) *Decoder {
	return &Decoder{opts: opts}
}

// Decode runs the full pipeline with default options.
func Decode(input string) (*HealthCertificate, error) {
	return NewDecoder(DefaultDecodeOptions()).Decode(input)
}

// Decode decodes a textual certificate representation into a typed record.
//
// The stages run strictly in order, each consuming the previous stage's
// output and short-circuiting on the first failure: prefix strip, Base45
// decode, zlib inflate (pass-through for uncompressed bytes), outer CBOR
// decode, COSE envelope extraction, payload CBOR decode, and record
// materialization. On success the returned record carries both its envelope
// and the original input text; on failure no partial record is returned.
func (d *Decoder) Decode(input string) (*HealthCertificate, error) {
	if d.opts.MaxInputLength > 0 && len(input) > d.opts.MaxInputLength {
		return nil, &InputTooLargeError{Size: len(input), Limit: d.opts.MaxInputLength}
	}

	body := strings.TrimPrefix(input, d.opts.Prefix)

	compressed, err := base45.Decode([]byte(body))
	if err != nil {
		return nil, &Base45DecodingError{Cause: err}
	}

	raw, err := inflate(compressed)
	if err != nil {
		return nil, &DecompressionError{Cause: err}
	}

	item, err := decodeCBORItem(raw)
	if err != nil {
		return nil, err
	}

	envelope, err := ExtractEnvelope(item)
	if err != nil {
		return nil, err
	}

	payloadItem, err := decodePayloadItem(envelope.Payload)
	if err != nil {
		return nil, err
	}

	cert, err := materializeCertificate(payloadItem, d.opts.StrictSchema)
	if err != nil {
		return nil, err
	}

	cert.barcode = input
	cert.envelope = envelope
	return cert, nil
}

// inflate decompresses zlib-wrapped DEFLATE bytes. Compression is optional
// in the wire format, so bytes that do not carry a zlib header are returned
// unchanged. Bytes that do carry one but fail to inflate are corrupt, not
// uncompressed, and surface an error instead of being passed through.
func inflate(data []byte) ([]byte, error) {
	if !sniffZlib(data) {
		return data, nil
	}

	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	inflated, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return inflated, nil
}

// sniffZlib reports whether data starts with a deflate zlib header: a CMF
// byte of 0x78 and a header checksum divisible by 31 (RFC 1950).
func sniffZlib(data []byte) bool {
	if len(data) < 2 || data[0] != 0x78 {
		return false
	}
	return (uint16(data[0])<<8|uint16(data[1]))%31 == 0
}

// decodeCBORItem decodes exactly one CBOR item from the outer COSE bytes.
func decodeCBORItem(data []byte) (cbor.RawMessage, error) {
	if len(data) == 0 {
		return nil, &MalformedCBORError{Bytes: data}
	}
	var item cbor.RawMessage
	if err := cbor.Unmarshal(data, &item); err != nil {
		return nil, &CBORDecodingError{Cause: err}
	}
	return item, nil
}

// decodePayloadItem decodes exactly one CBOR item from the envelope payload.
func decodePayloadItem(payload []byte) (cbor.RawMessage, error) {
	if len(payload) == 0 {
		return nil, &COSEPayloadDecodingError{}
	}
	var item cbor.RawMessage
	if err := cbor.Unmarshal(payload, &item); err != nil {
		return nil, &COSEPayloadDecodingError{Cause: err}
	}
	return item, nil
}
