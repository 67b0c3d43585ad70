package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the issuer needs from the environment.
// Durations accept Go syntax ("30m").
type Config struct {
	Addr string `env:"KCC_ISSUER_ADDR" envDefault:":3001"`

	// BaseURL is the externally reachable base URL embedded in SIOP
	// response_uri, credential offers, and OID4VCI metadata.
	BaseURL string `env:"KCC_ISSUER_BASE_URL" envDefault:"http://localhost:3001"`

	// IDVFormURL is the external IDV vendor's form the wallet is handed to.
	IDVFormURL string `env:"KCC_IDV_FORM_URL" envDefault:"http://localhost:3002/idv-form"`

	// DWNAuthzURL is the authorization service that delegates write
	// permission to the issuer before a credential record is persisted.
	DWNAuthzURL string `env:"KCC_DWN_AUTHZ_URL" envDefault:"https://vc-to-dwn.tbddev.org"`

	// IDVCallbackSecret, when set, is required as a bearer secret on the IDV
	// completion callback. Empty leaves the callback unauthenticated.
	IDVCallbackSecret string `env:"KCC_IDV_CALLBACK_SECRET"`

	// IssuerKeySeed is a hex-encoded 32-byte ed25519 seed. Empty means a
	// fresh issuer DID per process.
	IssuerKeySeed string `env:"KCC_ISSUER_KEY_SEED"`

	TokenTTL       time.Duration `env:"KCC_TOKEN_TTL" envDefault:"30m"`
	PreAuthCodeTTL time.Duration `env:"KCC_PREAUTH_CODE_TTL" envDefault:"15m"`

	Environment string `env:"KCC_ENVIRONMENT" envDefault:"dev"`
}

// FromEnv parses configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.IssuerKeySeed != "" {
		if _, err := hex.DecodeString(cfg.IssuerKeySeed); err != nil {
			return Config{}, fmt.Errorf("KCC_ISSUER_KEY_SEED is not valid hex: %w", err)
		}
	}
	return cfg, nil
}

// SeedBytes returns the decoded issuer key seed, or nil when unset.
func (c Config) SeedBytes() []byte {
	if c.IssuerKeySeed == "" {
		return nil
	}
	seed, _ := hex.DecodeString(c.IssuerKeySeed)
	return seed
}
