package validation

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/fatalaa/EUDCCKit/hcert"
)

// coseAlgorithms maps the algorithm identifiers admitted for health
// certificate signatures to their go-cose counterparts.
var coseAlgorithms = map[int64]cose.Algorithm{
	-7:  cose.AlgorithmES256,
	-35: cose.AlgorithmES384,
	-36: cose.AlgorithmES512,
	-37: cose.AlgorithmPS256,
}

// VerifySignature checks the envelope's signature against a public key.
//
// The algorithm is read from the envelope's protected header and the
// Signature1 to-be-signed bytes are rebuilt from the extracted protected
// header and payload, so verification operates purely on the envelope an
// earlier Decode produced.
func VerifySignature(envelope *hcert.Envelope, publicKey crypto.PublicKey) error {
	algorithmID, err := envelope.Algorithm()
	if err != nil {
		return fmt.Errorf("read algorithm from protected header: %w", err)
	}

	algorithm, ok := coseAlgorithms[algorithmID]
	if !ok {
		return fmt.Errorf("unsupported signature algorithm %d", algorithmID)
	}

	toBeSigned, err := envelope.SigStructure()
	if err != nil {
		return fmt.Errorf("build Sig_structure: %w", err)
	}

	verifier, err := cose.NewVerifier(algorithm, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := verifier.Verify(toBeSigned, envelope.Signature); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}

// VerifyWithCertificate checks the envelope's signature against a document
// signer certificate. When the envelope names a signing key, its key
// identifier must match the certificate's before the signature is checked.
func VerifyWithCertificate(envelope *hcert.Envelope, signer *x509.Certificate) error {
	if kid := envelope.KeyID(); len(kid) > 0 {
		if !bytes.Equal(kid, CertificateKeyID(signer)) {
			return fmt.Errorf("key identifier %x does not match signer certificate", kid)
		}
	}
	return VerifySignature(envelope, signer.PublicKey)
}

// ParseSignerCertificate parses a document signer certificate from PEM or
// raw DER bytes.
func ParseSignerCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("parse signer certificate: %w", err)
	}
	return cert, nil
}

// CertificateKeyID derives the COSE key identifier for a signer certificate:
// the first 8 bytes of the SHA-256 digest of its DER encoding.
func CertificateKeyID(cert *x509.Certificate) []byte {
	digest := sha256.Sum256(cert.Raw)
	return digest[:8]
}
