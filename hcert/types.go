package hcert

import (
	"time"
)

// PersonName holds the certificate subject's name in both its human-readable
// and ICAO 9303 transliterated forms.
type PersonName struct {
	FamilyName    string `cbor:"fn,omitempty" json:"fn,omitempty"`
	FamilyNameStd string `cbor:"fnt" json:"fnt"`
	GivenName     string `cbor:"gn,omitempty" json:"gn,omitempty"`
	GivenNameStd  string `cbor:"gnt,omitempty" json:"gnt,omitempty"`
}

// VaccinationEntry is a single vaccination claim from the certificate content.
type VaccinationEntry struct {
	Target        string `cbor:"tg" json:"tg"`
	Vaccine       string `cbor:"vp" json:"vp"`
	Product       string `cbor:"mp" json:"mp"`
	Manufacturer  string `cbor:"ma" json:"ma"`
	DoseNumber    int    `cbor:"dn" json:"dn"`
	TotalDoses    int    `cbor:"sd" json:"sd"`
	Date          string `cbor:"dt" json:"dt"`
	Country       string `cbor:"co" json:"co"`
	Issuer        string `cbor:"is" json:"is"`
	CertificateID string `cbor:"ci" json:"ci"`
}

// TestEntry is a single test claim from the certificate content.
type TestEntry struct {
	Target         string `cbor:"tg" json:"tg"`
	TestType       string `cbor:"tt" json:"tt"`
	TestName       string `cbor:"nm,omitempty" json:"nm,omitempty"`
	Manufacturer   string `cbor:"ma,omitempty" json:"ma,omitempty"`
	SampleDatetime string `cbor:"sc" json:"sc"`
	Result         string `cbor:"tr" json:"tr"`
	TestingCentre  string `cbor:"tc,omitempty" json:"tc,omitempty"`
	Country        string `cbor:"co" json:"co"`
	Issuer         string `cbor:"is" json:"is"`
	CertificateID  string `cbor:"ci" json:"ci"`
}

// RecoveryEntry is a single recovery claim from the certificate content.
type RecoveryEntry struct {
	Target            string `cbor:"tg" json:"tg"`
	FirstPositiveDate string `cbor:"fr" json:"fr"`
	Country           string `cbor:"co" json:"co"`
	Issuer            string `cbor:"is" json:"is"`
	ValidFrom         string `cbor:"df" json:"df"`
	ValidUntil        string `cbor:"du" json:"du"`
	CertificateID     string `cbor:"ci" json:"ci"`
}

// HealthCertificate is the decoded certificate record.
//
// The claim fields are populated by the record materializer. The envelope and
// the original barcode text are attached exactly once by the decode pipeline
// before the record is handed to the caller; after that the record is frozen
// and both are reachable only through their read-only accessors.
type HealthCertificate struct {
	Issuer        string             `json:"issuer"`
	IssuedAt      time.Time          `json:"issued_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
	SchemaVersion string             `json:"schema_version"`
	DateOfBirth   string             `json:"date_of_birth"`
	Name          PersonName         `json:"name"`
	Vaccinations  []VaccinationEntry `json:"vaccinations,omitempty"`
	Tests         []TestEntry        `json:"tests,omitempty"`
	Recoveries    []RecoveryEntry    `json:"recoveries,omitempty"`

	envelope *Envelope
	barcode  string
}

// Envelope returns the COSE_Sign1 envelope the certificate was carried in.
func (c *HealthCertificate) Envelope() *Envelope {
	return c.envelope
}

// Barcode returns the original textual representation exactly as it was
// passed to Decode, including the prefix if one was present.
func (c *HealthCertificate) Barcode() string {
	return c.barcode
}
