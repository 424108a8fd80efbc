package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatalaa/EUDCCKit/hcert"
)

// Predicate is a single boolean test over a decoded certificate.
type Predicate func(*hcert.HealthCertificate) bool

type ruleKind int

const (
	kindLeaf ruleKind = iota
	kindAnd
	kindOr
	kindNot
)

// Rule is a named, composable predicate over a certificate. Leaves carry a
// tag and a predicate; And/Or/Not combine rules into a tree. Rules are
// stateless once built and reusable across any number of records from any
// number of goroutines.
type Rule struct {
	kind  ruleKind
	tag   string
	pred  Predicate
	left  *Rule
	right *Rule
}

// NewRule builds a leaf rule. An empty tag or nil predicate is a programming
// error, not a recoverable condition, and panics.
func NewRule(tag string, pred Predicate) *Rule {
	if tag == "" {
		panic("validation: rule tag must not be empty")
	}
	if pred == nil {
		panic("validation: rule predicate must not be nil")
	}
	return &Rule{kind: kindLeaf, tag: tag, pred: pred}
}

// Tag returns the rule's human-readable name.
func (r *Rule) Tag() string {
	return r.tag
}

// And combines two rules; the result holds when both hold.
func (r *Rule) And(other *Rule) *Rule {
	return &Rule{kind: kindAnd, tag: fmt.Sprintf("(%s and %s)", r.tag, other.tag), left: r, right: other}
}

// Or combines two rules; the result holds when either holds.
func (r *Rule) Or(other *Rule) *Rule {
	return &Rule{kind: kindOr, tag: fmt.Sprintf("(%s or %s)", r.tag, other.tag), left: r, right: other}
}

// Not inverts a rule.
func (r *Rule) Not() *Rule {
	return &Rule{kind: kindNot, tag: fmt.Sprintf("not(%s)", r.tag), left: r}
}

// eval walks the rule tree and returns the overall verdict together with the
// specific unsatisfied rule on failure: for And, the first failing branch's
// leaf; for Or, the last branch's failing leaf when both fail; for Not, the
// Not node itself, since no leaf predicate is false in that case.
func (r *Rule) eval(cert *hcert.HealthCertificate) (bool, *Rule) {
	switch r.kind {
	case kindAnd:
		if ok, failed := r.left.eval(cert); !ok {
			return false, failed
		}
		return r.right.eval(cert)
	case kindOr:
		if ok, _ := r.left.eval(cert); ok {
			return true, nil
		}
		return r.right.eval(cert)
	case kindNot:
		if ok, _ := r.left.eval(cert); ok {
			return false, r
		}
		return true, nil
	default:
		if !r.pred(cert) {
			return false, r
		}
		return true, nil
	}
}

// Evaluate tests the certificate against the rule. On failure the returned
// RuleViolationError names the specific unsatisfied rule, not the composite.
func (r *Rule) Evaluate(cert *hcert.HealthCertificate) error {
	if ok, failed := r.eval(cert); !ok {
		return &RuleViolationError{Rule: failed}
	}
	return nil
}

// Evaluate tests the certificate against the given rule, falling back to
// DefaultRule(time.Now()) when rule is nil.
func Evaluate(cert *hcert.HealthCertificate, rule *Rule) error {
	if rule == nil {
		rule = DefaultRule(time.Now())
	}
	return rule.Evaluate(cert)
}

// RuleViolationError reports the specific rule a certificate failed.
type RuleViolationError struct {
	Rule *Rule
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("rule %q not satisfied", e.Rule.Tag())
}

// IssuedInPast holds when the certificate's issued-at time is not after now.
func IssuedInPast(now time.Time) *Rule {
	return NewRule("certificate-already-valid", func(cert *hcert.HealthCertificate) bool {
		return !cert.IssuedAt.After(now)
	})
}

// NotExpired holds when the certificate's expires-at time is not before now.
func NotExpired(now time.Time) *Rule {
	return NewRule("certificate-not-expired", func(cert *hcert.HealthCertificate) bool {
		return !cert.ExpiresAt.Before(now)
	})
}

// SchemaVersionSupported holds for schema major version 1.
func SchemaVersionSupported() *Rule {
	return NewRule("schema-version-supported", func(cert *hcert.HealthCertificate) bool {
		return strings.HasPrefix(cert.SchemaVersion, "1.")
	})
}

// HasContent holds when the certificate carries at least one vaccination,
// test, or recovery entry.
func HasContent() *Rule {
	return NewRule("certificate-has-content", func(cert *hcert.HealthCertificate) bool {
		return len(cert.Vaccinations)+len(cert.Tests)+len(cert.Recoveries) > 0
	})
}

// DefaultRule is the composite applied when no explicit rule is given: the
// certificate is already valid, not expired, carries a supported schema
// version, and has at least one content entry.
func DefaultRule(now time.Time) *Rule {
	return IssuedInPast(now).
		And(NotExpired(now)).
		And(SchemaVersionSupported()).
		And(HasContent())
}
