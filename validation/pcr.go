package validation

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

// pcrHexLength is a SHA-384 measurement in hex
const pcrHexLength = 96

// ErrNoPCRSets is returned when no known-good measurements are configured.
// The bundled pcrs.json is empty until a release build records its PCRs.
var ErrNoPCRSets = errors.New("no PCR sets configured")

// debugPCR is what Nitro reports for every register of an enclave started in debug mode
var debugPCR = strings.Repeat("0", pcrHexLength)

// IsDebugPCRs reports whether pcrs come from a debug-mode enclave, which AWS
// signs but which runs with its console and memory open to the parent instance
func IsDebugPCRs(pcrs enclaveapi.PCRs) bool {
	return pcrs.ImageFileHash == debugPCR && pcrs.KernelHash == debugPCR && pcrs.ApplicationHash == debugPCR
}

// DefaultPCRConfigPath returns the path of the pcrs.json shipped next to this package
func DefaultPCRConfigPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "pcrs.json")
}

// LoadPCRsFromFile loads known PCR sets from a JSON file. Measurements are
// normalized to lower case and must be 48-byte hex values.
func LoadPCRsFromFile(path string) ([]PCRSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCR config file: %w", err)
	}

	var config PCRConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse PCR config: %w", err)
	}
	if len(config.PCRSets) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPCRSets, path)
	}

	for i := range config.PCRSets {
		set := &config.PCRSets[i]
		for name, value := range map[string]*string{"pcr0": &set.PCR0, "pcr1": &set.PCR1, "pcr2": &set.PCR2} {
			*value = strings.ToLower(*value)
			if len(*value) != pcrHexLength {
				return nil, fmt.Errorf("PCR set #%d: %s has %d hex characters, want %d", i, name, len(*value), pcrHexLength)
			}
			if _, err := hex.DecodeString(*value); err != nil {
				return nil, fmt.Errorf("PCR set #%d: %s is not hex: %w", i, name, err)
			}
		}
	}

	return config.PCRSets, nil
}

// ValidatePCRs reports whether PCR0-2 all match one known set, and its index (-1 if none)
func ValidatePCRs(pcrs enclaveapi.PCRs, knownSets []PCRSet) (bool, int) {
	for i, knownSet := range knownSets {
		if pcrs.ImageFileHash == knownSet.PCR0 &&
			pcrs.KernelHash == knownSet.PCR1 &&
			pcrs.ApplicationHash == knownSet.PCR2 {
			return true, i
		}
	}
	return false, -1
}
