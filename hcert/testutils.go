package hcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"
)

// Test helpers shared by this module's test suites. They build synthetic but
// structurally complete certificates so tests never depend on real-world,
// personally identifiable barcode data.

// GenerateTestKey creates an ECDSA P-256 key for signing test certificates.
func GenerateTestKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// NewTestCertificate returns a certificate record with a fixed, fully
// populated set of claims. The validity window brackets the given time by
// one year on each side.
func NewTestCertificate(now time.Time) *HealthCertificate {
	return &HealthCertificate{
		Issuer:        "AT",
		IssuedAt:      now.Add(-365 * 24 * time.Hour).Truncate(time.Second),
		ExpiresAt:     now.Add(365 * 24 * time.Hour).Truncate(time.Second),
		SchemaVersion: "1.2.1",
		DateOfBirth:   "1990-01-01",
		Name: PersonName{
			FamilyName:    "Musterfrau",
			FamilyNameStd: "MUSTERFRAU",
			GivenName:     "Gabriele",
			GivenNameStd:  "GABRIELE",
		},
		Vaccinations: []VaccinationEntry{
			{
				Target:        "840539006",
				Vaccine:       "1119349007",
				Product:       "EU/1/20/1528",
				Manufacturer:  "ORG-100030215",
				DoseNumber:    2,
				TotalDoses:    2,
				Date:          "2021-02-18",
				Country:       "AT",
				Issuer:        "Ministry of Health, Austria",
				CertificateID: "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B",
			},
		},
	}
}

// NewTestBarcode signs a fresh test certificate with a fresh P-256 key and
// returns the textual wire form along with the key and the record it encodes.
func NewTestBarcode(now time.Time, opts EncodeOptions) (string, *ecdsa.PrivateKey, *HealthCertificate, error) {
	key, err := GenerateTestKey()
	if err != nil {
		return "", nil, nil, err
	}
	cert := NewTestCertificate(now)
	barcode, err := EncodeSigned(cert, key, nil, opts)
	if err != nil {
		return "", nil, nil, err
	}
	return barcode, key, cert, nil
}
