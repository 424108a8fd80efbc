package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatalaa/EUDCCKit/hcert"
	"github.com/fatalaa/EUDCCKit/validation"
)

// maxInputBytes bounds barcode and certificate file sizes before any
// decoding work happens.
const maxInputBytes = 64 * 1024

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	// Define CLI flags
	var (
		barcodeInput = flag.String("barcode", "", "Certificate barcode text (inline or file path, required)")
		signerPath   = flag.String("signer-cert", "", "Path to document signer certificate (PEM or DER, optional)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	// Show help
	if *help || *barcodeInput == "" {
		showUsage()
		if *barcodeInput == "" && !*help {
			os.Exit(1)
		}
		os.Exit(0)
	}

	barcode, err := readBarcode(*barcodeInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading barcode: %v\n", err)
		os.Exit(2)
	}

	var signer *x509.Certificate
	if *signerPath != "" {
		signer, err = readSignerCertificate(*signerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading signer certificate: %v\n", err)
			os.Exit(2)
		}
	}

	// Validate using library
	result, err := validation.Verify(barcode, signer, nil, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	// Output results
	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	// Exit with appropriate code
	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Health Certificate Validator")
	logger.Info("")
	logger.Info("Decodes a health certificate barcode, optionally checks its COSE")
	logger.Info("signature against a document signer certificate, and evaluates the")
	logger.Info("default validation rules.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  hcert-validator --barcode <text|path> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --barcode <text|path>             Barcode text (HC1:...) or path to a file holding it")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --signer-cert <path>              Document signer certificate (PEM or DER)")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Certificate valid")
	logger.Info("  1 - Certificate invalid")
	logger.Info("  2 - Invalid input or runtime error")
	logger.Info("")
	logger.Info("Library Usage:")
	logger.Info("  This CLI tool is an example. For programmatic use, import:")
	logger.Info("  github.com/fatalaa/EUDCCKit/validation")
}

// readBarcode accepts either the barcode text itself or a path to a file
// containing it.
func readBarcode(input string) (string, error) {
	if strings.HasPrefix(input, hcert.DefaultPrefix) {
		return input, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("barcode file exceeds %d bytes", maxInputBytes)
	}
	return strings.TrimSpace(string(data)), nil
}

func readSignerCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxInputBytes {
		return nil, fmt.Errorf("certificate file exceeds %d bytes", maxInputBytes)
	}
	return validation.ParseSignerCertificate(data)
}

func outputText(result *validation.VerificationResult) {
	logger.Info("Health Certificate Validator")
	logger.Info("============================")
	logger.Info("")

	if result.Certificate != nil {
		cert := result.Certificate
		logger.Info("Certificate:")
		logger.Info(fmt.Sprintf("  Issuer:         %s", cert.Issuer))
		logger.Info(fmt.Sprintf("  Schema Version: %s", cert.SchemaVersion))
		logger.Info(fmt.Sprintf("  Subject:        %s %s", cert.Name.GivenName, cert.Name.FamilyName))
		logger.Info(fmt.Sprintf("  Date of Birth:  %s", cert.DateOfBirth))
		logger.Info(fmt.Sprintf("  Issued At:      %s", cert.IssuedAt.Format(time.RFC3339)))
		logger.Info(fmt.Sprintf("  Expires At:     %s", cert.ExpiresAt.Format(time.RFC3339)))
		logger.Info("")
	}

	logger.Info("Validation Results:")
	logger.Info("-------------------")
	for _, detail := range result.Details {
		logger.Info("  " + detail)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Decoded:           %v", result.Decoded))
	logger.Info(fmt.Sprintf("  Signature Checked: %v", result.SignatureChecked))
	logger.Info(fmt.Sprintf("  Signature Valid:   %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Rules Satisfied:   %v", result.RulesSatisfied))
	if result.FailedRule != "" {
		logger.Info(fmt.Sprintf("  Failed Rule:       %s", result.FailedRule))
	}

	logger.Info("")
	logger.Info("============================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *validation.VerificationResult) error {
	output := map[string]any{
		"valid":             result.IsValid(),
		"decoded":           result.Decoded,
		"signature_checked": result.SignatureChecked,
		"signature_valid":   result.SignatureValid,
		"rules_satisfied":   result.RulesSatisfied,
		"details":           result.Details,
	}
	if result.FailedRule != "" {
		output["failed_rule"] = result.FailedRule
	}
	if result.Certificate != nil {
		output["certificate"] = result.Certificate
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
