package hashutil_test

import (
	"encoding/hex"
	"testing"

	"github.com/rohmanhakim/nps-explorer/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func TestHashBytes_BLAKE3(t *testing.T) {
	data := []byte(`{"https://www.nps.gov/index.htm":"<html></html>"}`)
	sum := blake3.Sum256(data)

	result, err := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)

	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), result)
}

func TestHashBytes_UnsupportedAlgo(t *testing.T) {
	for _, algo := range []hashutil.HashAlgo{"md5", "sha256"} {
		_, err := hashutil.HashBytes([]byte("x"), algo)
		assert.Error(t, err, algo)
	}
}

func TestChecksum_RoundTrip(t *testing.T) {
	data := []byte(`{"49931":{"searchResults":[]}}`)

	checksum, err := hashutil.Checksum(data, hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)

	assert.Regexp(t, `^blake3:[0-9a-f]{64}$`, checksum)
	assert.True(t, hashutil.VerifyChecksum(data, checksum))
	assert.False(t, hashutil.VerifyChecksum([]byte(`{}`), checksum))
}

func TestVerifyChecksum_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
	}{
		{name: "empty", checksum: ""},
		{name: "no separator", checksum: "deadbeef"},
		{name: "empty digest", checksum: "blake3:"},
		{name: "unknown algo", checksum: "md5:deadbeef"},
		{name: "foreign algo", checksum: "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, hashutil.VerifyChecksum([]byte("x"), tt.checksum))
		})
	}
}
