package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gatherer/internal/flagx"
	"github.com/dmitrijs2005/gatherer/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Missing keys
// leave the corresponding Config field untouched.
type JsonConfig struct {
	ServerURL         *string         `json:"server_url"`
	DataDir           *string         `json:"data_dir"`
	HashAlgorithm     *string         `json:"hash_algorithm"`
	HashBits          *int            `json:"hash_bits"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	UploadConcurrency *int            `json:"upload_concurrency"`
	VerifyOnHit       *bool           `json:"verify_on_hit"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc JsonConfig) apply(cfg *Config) {
	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.HashAlgorithm != nil {
		cfg.HashAlgorithm = *jc.HashAlgorithm
	}
	if jc.HashBits != nil {
		cfg.HashBits = *jc.HashBits
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UploadConcurrency != nil {
		cfg.UploadConcurrency = *jc.UploadConcurrency
	}
	if jc.VerifyOnHit != nil {
		cfg.VerifyOnHit = *jc.VerifyOnHit
	}
}
