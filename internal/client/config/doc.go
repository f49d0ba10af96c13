// Package config loads runtime configuration for the Gatherer field client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations are either strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "data_dir": "/var/lib/gatherer",
//	  "hash_algorithm": "sha3",
//	  "hash_bits": 512,
//	  "request_timeout": "30s",
//	  "upload_concurrency": 4,
//	  "verify_on_hit": false
//	}
package config
