// Package hashx computes the content hashes that tag Gatherer assets.
//
// A content hash is the hex-encoded SHA-3 digest of the file's standard
// base64 encoding (not of the raw bytes). Mobile clients captured with the
// legacy Keccak padding are supported through the Keccak algorithm.
//
// The digest length is not stored separately: a hex hash of n characters
// was produced with n*4 bits, which is how Verify picks the length.
package hashx

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Algorithm selects the sponge padding.
type Algorithm string

const (
	SHA3   Algorithm = "sha3"
	Keccak Algorithm = "keccak"
)

// DefaultBits is the digest length used for newly captured files.
const DefaultBits = 512

var ErrUnsupported = errors.New("unsupported hash configuration")

// Hasher is an (algorithm, length) pair.
type Hasher struct {
	Algorithm Algorithm
	Bits      int
}

// Default returns SHA-3/512.
func Default() Hasher {
	return Hasher{Algorithm: SHA3, Bits: DefaultBits}
}

func (h Hasher) String() string {
	return fmt.Sprintf("%s-%d", h.Algorithm, h.Bits)
}

// New returns a fresh hash.Hash for the configuration.
func (h Hasher) New() (hash.Hash, error) {
	switch h.Algorithm {
	case SHA3, "":
		switch h.Bits {
		case 224:
			return sha3.New224(), nil
		case 256:
			return sha3.New256(), nil
		case 384:
			return sha3.New384(), nil
		case 512:
			return sha3.New512(), nil
		}
	case Keccak:
		switch h.Bits {
		case 256:
			return sha3.NewLegacyKeccak256(), nil
		case 512:
			return sha3.NewLegacyKeccak512(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, h)
}

// WithBitsOf returns h with Bits taken from the length of an existing hex
// hash, so a download is checked with the length its hash was made with.
func (h Hasher) WithBitsOf(hexHash string) Hasher {
	h.Bits = len(strings.TrimSpace(hexHash)) * 4
	return h
}

// CheckHex returns an error wrapping ErrUnsupported unless hexHash is hex
// of a length h can verify.
func (h Hasher) CheckHex(hexHash string) error {
	s := strings.TrimSpace(hexHash)
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("%w: %q is not hex", ErrUnsupported, hexHash)
	}
	_, err := h.WithBitsOf(s).New()
	return err
}

// Sum hashes the base64 encoding of data.
func (h Hasher) Sum(data []byte) (string, error) {
	return h.SumReader(bytes.NewReader(data))
}

// SumReader hashes the base64 encoding of everything read from r.
func (h Hasher) SumReader(r io.Reader) (string, error) {
	d, err := h.New()
	if err != nil {
		return "", err
	}

	enc := base64.NewEncoder(base64.StdEncoding, d)
	if _, err := io.Copy(enc, r); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return hex.EncodeToString(d.Sum(nil)), nil
}

// SumFile hashes the file at path.
func (h Hasher) SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return h.SumReader(f)
}

// Verify recomputes the hash of data with the length implied by expected
// and compares case-insensitively. It returns the computed hash and whether
// it matched.
func (h Hasher) Verify(expected string, data []byte) (string, bool, error) {
	actual, err := h.WithBitsOf(expected).Sum(data)
	if err != nil {
		return "", false, err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	return actual, subtle.ConstantTimeCompare([]byte(want), []byte(actual)) == 1, nil
}
