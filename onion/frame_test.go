package onion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	blob := []byte("hello onion")
	meta := []byte(`{"headers":[]}`)

	frame := EncodeFrame(blob, meta)
	gotBlob, gotMeta, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, blob, gotBlob)
	assert.Equal(t, meta, gotMeta)
}

func TestFrameRoundTripEmptyBlob(t *testing.T) {
	frame := EncodeFrame(nil, []byte("meta"))
	blob, meta, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Empty(t, blob)
	assert.Equal(t, []byte("meta"), meta)
}

func TestFrameDecodeTooShort(t *testing.T) {
	_, _, err := DecodeFrame([]byte{1, 2})
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MalformedFrame, onionErr.Kind)
}

func TestFrameDecodeLengthOverrun(t *testing.T) {
	frame := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := DecodeFrame(frame)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MalformedFrame, onionErr.Kind)
}

func TestFrameEncodeIsLittleEndian(t *testing.T) {
	frame := EncodeFrame(make([]byte, 1), nil)
	assert.Equal(t, []byte{1, 0, 0, 0}, frame[:4])
}
