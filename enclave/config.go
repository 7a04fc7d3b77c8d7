package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cloudx-io/escrowauction/core"
)

const (
	TransportVsock = "vsock"
	TransportTCP   = "tcp"
)

// Config is the enclave server configuration, read from the environment
type Config struct {
	Port        uint32        `env:"ENCLAVE_PORT" envDefault:"5000"`
	Transport   string        `env:"ENCLAVE_TRANSPORT" envDefault:"vsock"`
	TCPAddr     string        `env:"ENCLAVE_TCP_ADDR" envDefault:"127.0.0.1:5000"`
	MaxWorkers  int           `env:"ENCLAVE_MAX_WORKERS,required"`
	ReadTimeout time.Duration `env:"ENCLAVE_READ_TIMEOUT" envDefault:"30s"`

	AuctionID       string `env:"AUCTION_ID"`
	Beneficiary     string `env:"AUCTION_BENEFICIARY,required"`
	DurationMinutes int    `env:"AUCTION_DURATION_MINUTES,required"`

	// Accounts that cannot receive transfers
	FrozenAccounts []string `env:"LEDGER_FROZEN_ACCOUNTS" envSeparator:","`
}

// LoadConfig parses the process environment
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Transport != TransportVsock && c.Transport != TransportTCP {
		return fmt.Errorf("invalid ENCLAVE_TRANSPORT %q (must be %s or %s)", c.Transport, TransportVsock, TransportTCP)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("invalid ENCLAVE_MAX_WORKERS %d (must be positive)", c.MaxWorkers)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("invalid ENCLAVE_READ_TIMEOUT %s (must be positive)", c.ReadTimeout)
	}
	if c.DurationMinutes <= 0 {
		return fmt.Errorf("%w: AUCTION_DURATION_MINUTES must be positive, got %d", core.ErrInvalidDuration, c.DurationMinutes)
	}
	return nil
}

// FrozenIdentities converts the configured frozen accounts
func (c Config) FrozenIdentities() []core.Identity {
	ids := make([]core.Identity, 0, len(c.FrozenAccounts))
	for _, account := range c.FrozenAccounts {
		if account != "" {
			ids = append(ids, core.Identity(account))
		}
	}
	return ids
}
