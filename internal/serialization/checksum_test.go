package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("weights"))
	assert.Equal(t, a, Checksum([]byte("weights")))
	assert.NotEqual(t, a, Checksum([]byte("weightz")))
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	sum := Checksum(data)
	assert.NoError(t, VerifyChecksum(data, sum))

	data[0] = 9
	assert.ErrorIs(t, VerifyChecksum(data, sum), ErrChecksumMismatch)
}
