package hashx

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func TestSum_HashesBase64NotRawBytes(t *testing.T) {
	data := []byte("field photo bytes")

	got, err := Hasher{Algorithm: SHA3, Bits: 256}.Sum(data)
	require.NoError(t, err)

	want := sha3.Sum256([]byte(base64.StdEncoding.EncodeToString(data)))
	assert.Equal(t, hex.EncodeToString(want[:]), got)

	raw := sha3.Sum256(data)
	assert.NotEqual(t, hex.EncodeToString(raw[:]), got)
}

func TestSum_Lengths(t *testing.T) {
	for _, bits := range []int{224, 256, 384, 512} {
		got, err := Hasher{Algorithm: SHA3, Bits: bits}.Sum([]byte("x"))
		require.NoError(t, err)
		assert.Len(t, got, bits/4)
	}
}

func TestSum_KeccakDiffersFromSHA3(t *testing.T) {
	data := []byte("x")
	s, err := Hasher{Algorithm: SHA3, Bits: 256}.Sum(data)
	require.NoError(t, err)
	k, err := Hasher{Algorithm: Keccak, Bits: 256}.Sum(data)
	require.NoError(t, err)
	assert.NotEqual(t, s, k)
	assert.Len(t, k, 64)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := Hasher{Algorithm: SHA3, Bits: 100}.New()
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Hasher{Algorithm: Keccak, Bits: 384}.New()
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Hasher{Algorithm: "md5", Bits: 128}.New()
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestSumReader_MatchesSumForLargeInput(t *testing.T) {
	data := []byte(strings.Repeat("0123456789abcdef", 10_000))
	h := Default()

	a, err := h.Sum(data)
	require.NoError(t, err)
	b, err := h.SumReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	h := Default()
	fromFile, err := h.SumFile(path)
	require.NoError(t, err)
	fromBytes, err := h.Sum([]byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, fromBytes, fromFile)

	_, err = h.SumFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestVerify_UsesLengthOfExpected(t *testing.T) {
	data := []byte("photo")
	expected256, err := Hasher{Algorithm: SHA3, Bits: 256}.Sum(data)
	require.NoError(t, err)

	// Configured for 512 bits, but the stored hash is 256 bits long.
	actual, ok, err := Default().Verify(strings.ToUpper(expected256), data)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expected256, actual)

	_, ok, err = Default().Verify(expected256, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_GarbageExpectedLength(t *testing.T) {
	_, _, err := Default().Verify("abc", []byte("x"))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCheckHex(t *testing.T) {
	sum, err := Default().Sum([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, Default().CheckHex(sum))
	require.NoError(t, Default().CheckHex(strings.ToUpper(sum[:64])))

	for name, h := range map[string]string{
		"empty":   "",
		"sha1":    strings.Repeat("a", 40),
		"odd":     strings.Repeat("a", 100),
		"not hex": strings.Repeat("z", 128),
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, Default().CheckHex(h), ErrUnsupported)
		})
	}
	require.ErrorIs(t, Hasher{Algorithm: Keccak}.CheckHex(strings.Repeat("a", 96)), ErrUnsupported)
}
