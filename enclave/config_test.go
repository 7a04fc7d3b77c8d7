package main

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/core"
)

func testEnv(overrides map[string]string) env.Options {
	environment := map[string]string{
		"ENCLAVE_MAX_WORKERS":      "4",
		"AUCTION_BENEFICIARY":      "0xbeneficiary",
		"AUCTION_DURATION_MINUTES": "60",
	}
	for k, v := range overrides {
		environment[k] = v
	}
	return env.Options{Environment: environment}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(testEnv(nil))
	assert.NoError(t, err)

	check.Equal(t, uint32(5000), cfg.Port)
	check.Equal(t, TransportVsock, cfg.Transport)
	check.Equal(t, "127.0.0.1:5000", cfg.TCPAddr)
	check.Equal(t, 4, cfg.MaxWorkers)
	check.Equal(t, 30*time.Second, cfg.ReadTimeout)
	check.Equal(t, "0xbeneficiary", cfg.Beneficiary)
	check.Equal(t, 60, cfg.DurationMinutes)
	check.Equal(t, 0, len(cfg.FrozenIdentities()))
}

func TestParseConfig_Overrides(t *testing.T) {
	cfg, err := parseConfig(testEnv(map[string]string{
		"ENCLAVE_TRANSPORT":      "tcp",
		"ENCLAVE_TCP_ADDR":       "0.0.0.0:7000",
		"ENCLAVE_READ_TIMEOUT":   "5s",
		"AUCTION_ID":             "auction-42",
		"LEDGER_FROZEN_ACCOUNTS": "0xfrozen,,0xsanctioned",
	}))
	assert.NoError(t, err)

	check.Equal(t, TransportTCP, cfg.Transport)
	check.Equal(t, "0.0.0.0:7000", cfg.TCPAddr)
	check.Equal(t, 5*time.Second, cfg.ReadTimeout)
	check.Equal(t, "auction-42", cfg.AuctionID)
	check.Equal(t, []core.Identity{"0xfrozen", "0xsanctioned"}, cfg.FrozenIdentities())
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  env.Options
	}{
		{"missing max workers", env.Options{Environment: map[string]string{
			"AUCTION_BENEFICIARY": "0xbeneficiary", "AUCTION_DURATION_MINUTES": "60",
		}}},
		{"missing beneficiary", env.Options{Environment: map[string]string{
			"ENCLAVE_MAX_WORKERS": "4", "AUCTION_DURATION_MINUTES": "60",
		}}},
		{"non-integer workers", testEnv(map[string]string{"ENCLAVE_MAX_WORKERS": "many"})},
		{"zero workers", testEnv(map[string]string{"ENCLAVE_MAX_WORKERS": "0"})},
		{"zero duration", testEnv(map[string]string{"AUCTION_DURATION_MINUTES": "0"})},
		{"negative duration", testEnv(map[string]string{"AUCTION_DURATION_MINUTES": "-5"})},
		{"unknown transport", testEnv(map[string]string{"ENCLAVE_TRANSPORT": "udp"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.env)
			check.Error(t, err)
		})
	}
}
