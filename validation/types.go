package validation

import (
	"crypto/x509"
	"errors"
	"time"

	"github.com/fatalaa/EUDCCKit/hcert"
)

// VerificationResult aggregates the outcome of decoding a certificate,
// checking its signature, and evaluating policy rules against it.
type VerificationResult struct {
	Decoded          bool
	SignatureChecked bool
	SignatureValid   bool
	RulesSatisfied   bool
	FailedRule       string
	Details          []string

	// Certificate is the decoded record, nil when decoding failed.
	Certificate *hcert.HealthCertificate
}

// IsValid reports whether every performed check passed. A skipped signature
// check (no signer certificate supplied) does not fail the result.
func (r *VerificationResult) IsValid() bool {
	if !r.Decoded || !r.RulesSatisfied {
		return false
	}
	if r.SignatureChecked && !r.SignatureValid {
		return false
	}
	return true
}

// Verify runs the full verification flow over a textual certificate: decode,
// signature check against the signer certificate when one is supplied, and
// rule evaluation at the given time using the default rule when rule is nil.
//
// Malformed input is reported inside the result, not as an error; the error
// return is reserved for future configuration problems and is currently
// always nil on the decode path.
func Verify(input string, signer *x509.Certificate, rule *Rule, now time.Time) (*VerificationResult, error) {
	result := &VerificationResult{Details: []string{}}

	cert, err := hcert.NewDecoder(verifyDecodeOptions()).Decode(input)
	if err != nil {
		result.Details = append(result.Details, "decode failed: "+err.Error())
		return result, nil
	}
	result.Decoded = true
	result.Certificate = cert
	result.Details = append(result.Details, "certificate decoded")

	if signer != nil {
		result.SignatureChecked = true
		if err := VerifyWithCertificate(cert.Envelope(), signer); err != nil {
			result.Details = append(result.Details, "signature check failed: "+err.Error())
		} else {
			result.SignatureValid = true
			result.Details = append(result.Details, "signature verified")
		}
	} else {
		result.Details = append(result.Details, "signature check skipped: no signer certificate")
	}

	if rule == nil {
		rule = DefaultRule(now)
	}
	if err := rule.Evaluate(cert); err != nil {
		var violation *RuleViolationError
		if errors.As(err, &violation) {
			result.FailedRule = violation.Rule.Tag()
		}
		result.Details = append(result.Details, "rule evaluation failed: "+err.Error())
	} else {
		result.RulesSatisfied = true
		result.Details = append(result.Details, "rules satisfied")
	}

	return result, nil
}

// verifyDecodeOptions bounds input size on top of the library defaults;
// absurdly large inputs are rejected before any decompression work.
func verifyDecodeOptions() hcert.DecodeOptions {
	opts := hcert.DefaultDecodeOptions()
	opts.MaxInputLength = 64 * 1024
	return opts
}
