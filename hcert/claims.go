package hcert

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CWT claim keys used by the HCERT layout. The health certificate itself
// lives in a container map under the negative claim key -260, at inner key 1.
const (
	claimKeyIssuer    = 1
	claimKeyExpiresAt = 4
	claimKeyIssuedAt  = 6
	claimKeyHCert     = -260
	hcertContainerKey = 1
)

// cwtClaims is the typed shape of the CWT claim map. Scalar claims are
// pointers so that a missing claim is distinguishable from a zero value.
type cwtClaims struct {
	Issuer    *string                   `cbor:"1,keyasint,omitempty"`
	ExpiresAt *int64                    `cbor:"4,keyasint,omitempty"`
	IssuedAt  *int64                    `cbor:"6,keyasint,omitempty"`
	HCert     map[int64]cbor.RawMessage `cbor:"-260,keyasint,omitempty"`
}

// certificatePayload is the EU DGC v1 body under the HCERT container.
type certificatePayload struct {
	SchemaVersion string             `cbor:"ver"`
	Name          *PersonName        `cbor:"nam"`
	DateOfBirth   *string            `cbor:"dob"`
	Vaccinations  []VaccinationEntry `cbor:"v,omitempty"`
	Tests         []TestEntry        `cbor:"t,omitempty"`
	Recoveries    []RecoveryEntry    `cbor:"r,omitempty"`
}

// dateOfBirthLayouts are the accepted forms of the dob claim; the schema
// allows truncated dates.
var dateOfBirthLayouts = []string{"2006-01-02", "2006-01", "2006"}

// materializeCertificate turns the inner payload CBOR item into a typed
// certificate record.
//
// The item must represent a map. It is first converted to a generic
// key-value structure (failure: PayloadConversionError), re-encoded, and then
// decoded field-by-field into the certificate schema with strict
// field-presence checks when requested (failure: SchemaDecodingError). The
// returned record has no envelope or barcode attached; the decode pipeline
// fills those in.
func materializeCertificate(item cbor.RawMessage, strict bool) (*HealthCertificate, error) {
	if majorType(item) != majorMap {
		return nil, &PayloadConversionError{}
	}

	var generic map[any]any
	if err := cbor.Unmarshal(item, &generic); err != nil {
		return nil, &PayloadConversionError{Cause: err}
	}

	reencoded, err := cbor.Marshal(generic)
	if err != nil {
		return nil, &PayloadConversionError{Cause: err}
	}

	var claims cwtClaims
	if err := cbor.Unmarshal(reencoded, &claims); err != nil {
		return nil, &SchemaDecodingError{Cause: err}
	}

	if strict {
		if err := requireClaims(&claims); err != nil {
			return nil, &SchemaDecodingError{Cause: err}
		}
	}

	cert := &HealthCertificate{}
	if claims.Issuer != nil {
		cert.Issuer = *claims.Issuer
	}
	if claims.IssuedAt != nil {
		cert.IssuedAt = time.Unix(*claims.IssuedAt, 0).UTC()
	}
	if claims.ExpiresAt != nil {
		cert.ExpiresAt = time.Unix(*claims.ExpiresAt, 0).UTC()
	}

	rawBody, ok := claims.HCert[hcertContainerKey]
	if !ok {
		if strict {
			return nil, &SchemaDecodingError{Cause: fmt.Errorf("health certificate container (claim %d, key %d) missing", claimKeyHCert, hcertContainerKey)}
		}
		return cert, nil
	}

	var body certificatePayload
	if err := cbor.Unmarshal(rawBody, &body); err != nil {
		return nil, &SchemaDecodingError{Cause: err}
	}
	if strict {
		if err := requireBody(&body); err != nil {
			return nil, &SchemaDecodingError{Cause: err}
		}
	}

	cert.SchemaVersion = body.SchemaVersion
	if body.DateOfBirth != nil {
		cert.DateOfBirth = *body.DateOfBirth
	}
	if body.Name != nil {
		cert.Name = *body.Name
	}
	cert.Vaccinations = body.Vaccinations
	cert.Tests = body.Tests
	cert.Recoveries = body.Recoveries

	return cert, nil
}

// requireClaims enforces presence of the required CWT claims.
func requireClaims(claims *cwtClaims) error {
	if claims.Issuer == nil || *claims.Issuer == "" {
		return fmt.Errorf("required claim %d (issuer) missing", claimKeyIssuer)
	}
	if claims.IssuedAt == nil {
		return fmt.Errorf("required claim %d (issued at) missing", claimKeyIssuedAt)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("required claim %d (expires at) missing", claimKeyExpiresAt)
	}
	if claims.HCert == nil {
		return fmt.Errorf("required claim %d (health certificate) missing", claimKeyHCert)
	}
	return nil
}

// requireBody enforces presence and well-formedness of the required
// certificate body fields.
func requireBody(body *certificatePayload) error {
	if body.SchemaVersion == "" {
		return fmt.Errorf("required field ver missing")
	}
	if body.Name == nil || body.Name.FamilyNameStd == "" {
		return fmt.Errorf("required field nam.fnt missing")
	}
	if body.DateOfBirth == nil {
		return fmt.Errorf("required field dob missing")
	}
	if err := validateDateOfBirth(*body.DateOfBirth); err != nil {
		return err
	}
	return nil
}

func validateDateOfBirth(dob string) error {
	if dob == "" {
		// The schema allows an unknown date of birth as an empty string.
		return nil
	}
	for _, layout := range dateOfBirthLayouts {
		if _, err := time.Parse(layout, dob); err == nil {
			return nil
		}
	}
	return fmt.Errorf("malformed date of birth %q", dob)
}
