package hcert

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestMaterialize_EmptyMapFailsSchema(t *testing.T) {
	// An empty claim map must fail schema decoding, not yield a zero record
	item := mustMarshal(t, map[int]any{})

	_, err := materializeCertificate(item, true)

	var schemaErr *SchemaDecodingError
	check.True(t, errors.As(err, &schemaErr))
}

func TestMaterialize_NonMapPayload(t *testing.T) {
	item := mustMarshal(t, []any{1, 2, 3})

	_, err := materializeCertificate(item, true)

	var conversionErr *PayloadConversionError
	check.True(t, errors.As(err, &conversionErr))
}

func TestMaterialize_MissingExpiry(t *testing.T) {
	item := mustMarshal(t, map[int64]any{
		claimKeyIssuer:   "AT",
		claimKeyIssuedAt: time.Now().Unix(),
		claimKeyHCert:    map[int64]any{hcertContainerKey: map[string]any{}},
	})

	_, err := materializeCertificate(item, true)

	var schemaErr *SchemaDecodingError
	check.True(t, errors.As(err, &schemaErr))
}

func TestMaterialize_MalformedDateOfBirth(t *testing.T) {
	now := time.Now().UTC()
	item := mustMarshal(t, map[int64]any{
		claimKeyIssuer:    "AT",
		claimKeyIssuedAt:  now.Unix(),
		claimKeyExpiresAt: now.Add(time.Hour).Unix(),
		claimKeyHCert: map[int64]any{hcertContainerKey: map[string]any{
			"ver": "1.2.1",
			"dob": "31.12.1990",
			"nam": map[string]any{"fnt": "MUSTERFRAU"},
		}},
	})

	_, err := materializeCertificate(item, true)

	var schemaErr *SchemaDecodingError
	check.True(t, errors.As(err, &schemaErr))
}

func TestMaterialize_TruncatedDatesOfBirthAccepted(t *testing.T) {
	now := time.Now().UTC()
	for _, dob := range []string{"1990-01-01", "1990-01", "1990", ""} {
		item := mustMarshal(t, map[int64]any{
			claimKeyIssuer:    "AT",
			claimKeyIssuedAt:  now.Unix(),
			claimKeyExpiresAt: now.Add(time.Hour).Unix(),
			claimKeyHCert: map[int64]any{hcertContainerKey: map[string]any{
				"ver": "1.2.1",
				"dob": dob,
				"nam": map[string]any{"fnt": "MUSTERFRAU"},
			}},
		})

		cert, err := materializeCertificate(item, true)
		check.Nil(t, err)
		check.Equal(t, dob, cert.DateOfBirth)
	}
}

func TestMaterialize_WrongScalarType(t *testing.T) {
	now := time.Now().UTC()
	item := mustMarshal(t, map[int64]any{
		claimKeyIssuer:    1234, // must be a string
		claimKeyIssuedAt:  now.Unix(),
		claimKeyExpiresAt: now.Add(time.Hour).Unix(),
		claimKeyHCert:     map[int64]any{hcertContainerKey: map[string]any{}},
	})

	_, err := materializeCertificate(item, true)

	var schemaErr *SchemaDecodingError
	check.True(t, errors.As(err, &schemaErr))
}

func TestMaterialize_RelaxedModeToleratesMissingFields(t *testing.T) {
	item := mustMarshal(t, map[int64]any{
		claimKeyIssuer: "AT",
	})

	cert, err := materializeCertificate(item, false)
	check.Nil(t, err)
	check.Equal(t, "AT", cert.Issuer)
	check.Equal(t, "", cert.SchemaVersion)
}

func TestMaterialize_EnvelopeAndBarcodeLeftUnset(t *testing.T) {
	now := time.Now().UTC()
	item := mustMarshal(t, map[int64]any{
		claimKeyIssuer:    "AT",
		claimKeyIssuedAt:  now.Unix(),
		claimKeyExpiresAt: now.Add(time.Hour).Unix(),
		claimKeyHCert: map[int64]any{hcertContainerKey: map[string]any{
			"ver": "1.2.1",
			"dob": "1990-01-01",
			"nam": map[string]any{"fnt": "MUSTERFRAU", "gnt": "GABRIELE"},
		}},
	})

	cert, err := materializeCertificate(item, true)
	check.Nil(t, err)
	check.Nil(t, cert.Envelope())
	check.Equal(t, "", cert.Barcode())
	check.Equal(t, "MUSTERFRAU", cert.Name.FamilyNameStd)
	check.True(t, cert.IssuedAt.Equal(time.Unix(now.Unix(), 0)))
}
