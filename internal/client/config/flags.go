package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server
//	-d string   local data directory
//	-g string   hash algorithm (sha3 or keccak)
//	-b int      hash length in bits
//	-t int      request timeout in seconds
//	-u int      upload concurrency
//	-v          re-verify cached files on every resolve
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-g", "-b", "-t", "-u"}, "-v")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "local data directory")
	fs.StringVar(&cfg.HashAlgorithm, "g", cfg.HashAlgorithm, "hash algorithm (sha3, keccak)")
	fs.IntVar(&cfg.HashBits, "b", cfg.HashBits, "hash length in bits")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.UploadConcurrency, "u", cfg.UploadConcurrency, "parallel uploads")
	fs.BoolVar(&cfg.VerifyOnHit, "v", cfg.VerifyOnHit, "re-hash cached files on every resolve")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
