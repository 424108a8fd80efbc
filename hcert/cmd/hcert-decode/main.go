package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatalaa/EUDCCKit/hcert"
)

// maxInputBytes bounds input size before any decoding work happens.
const maxInputBytes = 64 * 1024

func main() {
	var (
		barcodeInput = flag.String("barcode", "", "Certificate barcode text (inline or file path, required)")
		relaxed      = flag.Bool("relaxed", false, "Skip strict schema field-presence checks")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

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

	opts := hcert.DefaultDecodeOptions()
	opts.StrictSchema = !*relaxed
	opts.MaxInputLength = maxInputBytes

	cert, err := hcert.NewDecoder(opts).Decode(barcode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decode error: %v\n", err)
		os.Exit(1)
	}

	envelope := cert.Envelope()
	envelopeInfo := map[string]any{
		"key_id":           fmt.Sprintf("%x", envelope.KeyID()),
		"signature_length": len(envelope.Signature),
		"payload_length":   len(envelope.Payload),
	}
	if alg, err := envelope.Algorithm(); err == nil {
		envelopeInfo["algorithm"] = alg
	}
	output := map[string]any{
		"certificate": cert,
		"envelope":    envelopeInfo,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

func showUsage() {
	fmt.Println("Health Certificate Decoder")
	fmt.Println("")
	fmt.Println("Decodes a health certificate barcode and prints the record as JSON.")
	fmt.Println("No signature or rule checks are performed; see hcert-validator for those.")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  hcert-decode --barcode <text|path> [--relaxed]")
	fmt.Println("")
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Decoded successfully")
	fmt.Println("  1 - Decode failed")
	fmt.Println("  2 - Invalid input or runtime error")
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
