package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

func TestLoadPCRsFromFile_Default(t *testing.T) {
	// No release build has been measured yet, so nothing is trusted by default
	sets, err := LoadPCRsFromFile(DefaultPCRConfigPath())
	check.Error(t, err)
	check.True(t, errors.Is(err, ErrNoPCRSets))
	check.Equal(t, 0, len(sets))
}

func TestIsDebugPCRs(t *testing.T) {
	zero := strings.Repeat("0", 96)
	check.True(t, IsDebugPCRs(enclaveapi.PCRs{ImageFileHash: zero, KernelHash: zero, ApplicationHash: zero}))
	check.False(t, IsDebugPCRs(enclaveapi.PCRs{ImageFileHash: zero, KernelHash: zero, ApplicationHash: strings.Repeat("0", 95) + "1"}))
	check.False(t, IsDebugPCRs(enclaveapi.PCRs{}))
}

func TestLoadPCRsFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPCRsFromFile(filepath.Join(dir, "missing.json"))
	check.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	assert.NoError(t, os.WriteFile(empty, []byte(`{"pcr_sets": []}`), 0o600))
	_, err = LoadPCRsFromFile(empty)
	check.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	assert.NoError(t, os.WriteFile(garbage, []byte(`{`), 0o600))
	_, err = LoadPCRsFromFile(garbage)
	check.Error(t, err)

	short := filepath.Join(dir, "short.json")
	assert.NoError(t, os.WriteFile(short, []byte(`{"pcr_sets": [{"pcr0": "aa", "pcr1": "bb", "pcr2": "cc"}]}`), 0o600))
	_, err = LoadPCRsFromFile(short)
	check.Error(t, err)
}

func TestLoadPCRsFromFile_Normalizes(t *testing.T) {
	upper := strings.Repeat("AB", 48)
	path := filepath.Join(t.TempDir(), "pcrs.json")
	config := `{"pcr_sets": [{"pcr0": "` + upper + `", "pcr1": "` + upper + `", "pcr2": "` + upper + `", "commit_hash": "abc"}]}`
	assert.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	sets, err := LoadPCRsFromFile(path)
	assert.NoError(t, err)
	check.Equal(t, strings.ToLower(upper), sets[0].PCR0)
	check.Equal(t, "abc", sets[0].CommitHash)
}

func TestValidatePCRs(t *testing.T) {
	known := []PCRSet{
		{PCR0: "aa", PCR1: "bb", PCR2: "cc", CommitHash: "first"},
		{PCR0: "dd", PCR1: "ee", PCR2: "ff", CommitHash: "second"},
	}

	match, idx := ValidatePCRs(enclaveapi.PCRs{ImageFileHash: "dd", KernelHash: "ee", ApplicationHash: "ff"}, known)
	check.True(t, match)
	check.Equal(t, 1, idx)

	// All three registers must come from the same set
	match, idx = ValidatePCRs(enclaveapi.PCRs{ImageFileHash: "aa", KernelHash: "ee", ApplicationHash: "ff"}, known)
	check.False(t, match)
	check.Equal(t, -1, idx)
}
