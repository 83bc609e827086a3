package hashutil

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

type HashAlgo string

// HashAlgoBLAKE3 is the only algorithm cache documents are written with.
const HashAlgoBLAKE3 HashAlgo = "blake3"

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// Checksum returns "<algo>:<hex>" for data.
func Checksum(data []byte, algo HashAlgo) (string, error) {
	sum, err := HashBytes(data, algo)
	if err != nil {
		return "", err
	}
	return string(algo) + ":" + sum, nil
}

// VerifyChecksum recomputes a checksum produced by Checksum and compares it.
// Malformed checksums and unknown algorithms never verify.
func VerifyChecksum(data []byte, checksum string) bool {
	algo, want, found := strings.Cut(checksum, ":")
	if !found || want == "" {
		return false
	}
	got, err := HashBytes(data, HashAlgo(algo))
	if err != nil {
		return false
	}
	return got == want
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
