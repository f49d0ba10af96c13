package config

import (
	"time"

	"github.com/dmitrijs2005/gatherer/internal/hashx"
)

// Config holds runtime settings for the Gatherer field client.
//
// Fields:
//   - ServerURL: base URL of the REST backend.
//   - DataDir: directory holding the local database and cached assets.
//   - HashAlgorithm / HashBits: content hash used for newly captured files.
//   - RequestTimeout: per-request timeout of the REST client.
//   - UploadConcurrency: number of files uploaded in parallel.
//   - VerifyOnHit: re-hash cached files on every resolve.
type Config struct {
	ServerURL         string
	DataDir           string
	HashAlgorithm     string
	HashBits          int
	RequestTimeout    time.Duration
	UploadConcurrency int
	VerifyOnHit       bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = "gatherer-data"
	c.HashAlgorithm = string(hashx.SHA3)
	c.HashBits = hashx.DefaultBits
	c.RequestTimeout = 30 * time.Second
	c.UploadConcurrency = 4
	c.VerifyOnHit = false
}

// Hasher returns the configured content hasher, rejecting combinations the
// hash package cannot produce.
func (c *Config) Hasher() (hashx.Hasher, error) {
	h := hashx.Hasher{Algorithm: hashx.Algorithm(c.HashAlgorithm), Bits: c.HashBits}
	if _, err := h.New(); err != nil {
		return hashx.Hasher{}, err
	}
	return h, nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
