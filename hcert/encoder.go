package hcert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"

	"github.com/adrianrudnik/base45-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/veraison/go-cose"
)

// coseSign1TagNumber is the CBOR tag wrapping a COSE_Sign1 message.
const coseSign1TagNumber = 18

// EncodeOptions configure the inverse pipeline.
type EncodeOptions struct {
	// Prefix is prepended to the Base45 text.
	Prefix string

	// Compress deflates the COSE bytes before Base45 encoding. Compression
	// is optional in the wire format and decoders must accept both forms.
	Compress bool
}

// DefaultEncodeOptions returns the conventional wire settings: prefixed and
// compressed.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Prefix:   DefaultPrefix,
		Compress: true,
	}
}

// Encode assembles the textual wire form from pre-built COSE_Sign1
// components: tag 18 around [protected, unprotected (empty), payload,
// signature], CBOR encoded, optionally deflated, Base45 encoded, prefixed.
// The signature is carried as given; signing is the caller's concern.
func Encode(protected, payload, signature []byte, opts EncodeOptions) (string, error) {
	message := cbor.Tag{
		Number: coseSign1TagNumber,
		Content: []any{
			protected,
			map[int]any{},
			payload,
			signature,
		},
	}

	encoded, err := cbor.Marshal(message)
	if err != nil {
		return "", err
	}
	return encodeWire(encoded, opts)
}

// EncodeSigned builds the CWT claim payload from the certificate's claim
// fields, signs it as an ES256 COSE_Sign1 message, and assembles the textual
// wire form. A non-empty keyID is placed in the protected header.
func EncodeSigned(cert *HealthCertificate, key *ecdsa.PrivateKey, keyID []byte, opts EncodeOptions) (string, error) {
	payload, err := encodeClaims(cert)
	if err != nil {
		return "", err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return "", err
	}

	protected := cose.ProtectedHeader{
		cose.HeaderLabelAlgorithm: cose.AlgorithmES256,
	}
	if len(keyID) > 0 {
		protected[cose.HeaderLabelKeyID] = keyID
	}

	message := cose.Sign1Message{
		Headers: cose.Headers{Protected: protected},
		Payload: payload,
	}
	if err := message.Sign(rand.Reader, nil, signer); err != nil {
		return "", err
	}

	encoded, err := message.MarshalCBOR()
	if err != nil {
		return "", err
	}
	return encodeWire(encoded, opts)
}

// encodeClaims serializes the certificate claim fields into the CWT claim
// map with the health certificate body nested under claim -260, key 1.
func encodeClaims(cert *HealthCertificate) ([]byte, error) {
	issuer := cert.Issuer
	issuedAt := cert.IssuedAt.Unix()
	expiresAt := cert.ExpiresAt.Unix()
	dob := cert.DateOfBirth

	body := certificatePayload{
		SchemaVersion: cert.SchemaVersion,
		Name:          &cert.Name,
		DateOfBirth:   &dob,
		Vaccinations:  cert.Vaccinations,
		Tests:         cert.Tests,
		Recoveries:    cert.Recoveries,
	}
	rawBody, err := cbor.Marshal(body)
	if err != nil {
		return nil, err
	}

	claims := cwtClaims{
		Issuer:    &issuer,
		IssuedAt:  &issuedAt,
		ExpiresAt: &expiresAt,
		HCert:     map[int64]cbor.RawMessage{hcertContainerKey: rawBody},
	}
	return cbor.Marshal(claims)
}

func encodeWire(encoded []byte, opts EncodeOptions) (string, error) {
	if opts.Compress {
		var buf bytes.Buffer
		writer, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return "", err
		}
		if _, err := writer.Write(encoded); err != nil {
			return "", err
		}
		if err := writer.Close(); err != nil {
			return "", err
		}
		encoded = buf.Bytes()
	}

	return opts.Prefix + string(base45.Encode(encoded)), nil
}
