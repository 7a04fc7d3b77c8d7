package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudx-io/escrowauction/core"
	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
	"github.com/cloudx-io/escrowauction/validation"
)

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

const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns exitValid or exitInvalid for a completed validation and
// exitUsage when validation could not be performed
func run(args []string) int {
	flags := flag.NewFlagSet("settlement-validator", flag.ContinueOnError)
	var (
		attestationPath = flags.String("attestation", "", "Path to finalize response JSON file (required)")
		eventsPath      = flags.String("events", "", "Path to get_events response JSON file (required)")
		expectedWinner  = flags.String("winner", "", "Expected winner (optional)")
		pcrsPath        = flags.String("pcrs", "", "Path to PCR configuration (default: bundled pcrs.json)")
		allowDebug      = flags.Bool("allow-debug", false, "Accept debug-mode enclaves with all-zero PCRs")
		outputFormat    = flags.String("format", "text", "Output format: text or json")
		help            = flags.Bool("help", false, "Show usage information")
	)

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	if *help {
		showUsage()
		return exitValid
	}
	if *attestationPath == "" || *eventsPath == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --attestation and --events are required\n")
		return exitUsage
	}

	finalize, err := readResponse(*attestationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading attestation: %v\n", err)
		return exitUsage
	}
	if finalize.AttestationCOSEBase64 == "" {
		fmt.Fprintf(os.Stderr, "Error reading attestation: missing attestation_cose_base64 field (attestation_error: %q)\n", finalize.AttestationError)
		return exitUsage
	}

	events, err := readResponse(*eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading events: %v\n", err)
		return exitUsage
	}

	input := &validation.SettlementValidationInput{
		AttestationCOSEBase64: finalize.AttestationCOSEBase64,
		Events:                events.Events,
		ExpectedWinner:        core.Identity(*expectedWinner),
		AllowDebugPCRs:        *allowDebug,
	}
	if *pcrsPath != "" {
		input.KnownPCRs, err = validation.LoadPCRsFromFile(*pcrsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading PCR configuration: %v\n", err)
			return exitUsage
		}
	}

	result, err := validation.ValidateSettlementAttestation(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		return exitUsage
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			return exitUsage
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		return exitInvalid
	}
	return exitValid
}

func showUsage() {
	logger.Info("Auction Settlement Validator")
	logger.Info("")
	logger.Info("Validates the settlement attestation returned by finalize against the published event log.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  settlement-validator --attestation <path> --events <path> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --attestation <path>              Path to finalize response JSON file")
	logger.Info("  --events <path>                   Path to get_events response JSON file (since 0)")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --winner <identity>               Expected winner")
	logger.Info("  --pcrs <path>                     PCR configuration (default: bundled pcrs.json, empty until a release is measured)")
	logger.Info("  --allow-debug                     Accept debug-mode enclaves (all-zero PCRs); development only")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  auction-cli --caller 0xbeneficiary finalize > finalize.json")
	logger.Info("  auction-cli get_events > events.json")
	logger.Info("  settlement-validator --attestation finalize.json --events events.json --winner 0xalice")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Missing flags, invalid input or runtime error")
}

func readResponse(path string) (*enclaveapi.EnclaveResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var resp enclaveapi.EnclaveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("response reports failure: %s", resp.Message)
	}
	return &resp, nil
}

func outputText(result *validation.SettlementValidationResult) {
	logger.Info("Auction Settlement Validator")
	logger.Info("============================")
	logger.Info("")

	logger.Info("Validation Results:")
	logger.Info("-------------------")
	for _, detail := range result.ValidationDetails {
		logger.Info("  " + detail)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  PCRs Valid:            %v", result.PCRsValid))
	logger.Info(fmt.Sprintf("  Certificate Valid:     %v", result.CertificateValid))
	logger.Info(fmt.Sprintf("  Signature Valid:       %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Event Chain Valid:     %v", result.EventChainValid))
	logger.Info(fmt.Sprintf("  Auction Ended Valid:   %v", result.AuctionEndedValid))
	logger.Info(fmt.Sprintf("  Settlement Math Valid: %v", result.SettlementMathValid))
	logger.Info(fmt.Sprintf("  Winner Valid:          %v", result.WinnerValid))

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

func outputJSON(result *validation.SettlementValidationResult) error {
	output := map[string]any{
		"valid":                 result.IsValid(),
		"pcrs_valid":            result.PCRsValid,
		"certificate_valid":     result.CertificateValid,
		"signature_valid":       result.SignatureValid,
		"event_chain_valid":     result.EventChainValid,
		"auction_ended_valid":   result.AuctionEndedValid,
		"settlement_math_valid": result.SettlementMathValid,
		"winner_valid":          result.WinnerValid,
		"details":               result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
