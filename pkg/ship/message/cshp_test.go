package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolHandshake_RoundTrip(t *testing.T) {
	want := ProtocolHandshake{
		Type:    HandshakeAnnounceMax,
		Version: Version{Major: 1, Minor: 0},
		Formats: []Format{FormatJSONUTF8},
	}

	raw, err := EncodeProtocolHandshake(want)
	require.NoError(t, err)

	got, errMsg, err := DecodeCSHP(raw)
	require.NoError(t, err)
	require.Nil(t, errMsg)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestProtocolHandshakeError_RoundTrip(t *testing.T) {
	raw, err := EncodeProtocolHandshakeError(ProtocolHandshakeError{Error: 3})
	require.NoError(t, err)

	got, errMsg, err := DecodeCSHP(raw)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NotNil(t, errMsg)
	assert.Equal(t, 3, errMsg.Error)
}

func TestDecodeCSHP_UnknownFamilyAborts(t *testing.T) {
	_, _, err := DecodeCSHP([]byte(`{"somethingElse":[]}`))
	assert.Error(t, err)
}

func TestDecodeCSHP_MultiKeyListItemAborts(t *testing.T) {
	raw := []byte(`{"messageProtocolHandshake":[{"handshakeType":"announceMax","extra":1}]}`)
	_, _, err := DecodeCSHP(raw)
	assert.Error(t, err)
}

func TestDecodeCSHP_UnknownHandshakeTypeAborts(t *testing.T) {
	raw := []byte(`{"messageProtocolHandshake":[{"handshakeType":"bogus"},{"version":{"major":1,"minor":0}},{"formats":[{"format":["JSON-UTF8"]}]}]}`)
	_, _, err := DecodeCSHP(raw)
	assert.Error(t, err)
}

func TestDecodeCSHP_MissingRequiredFieldAborts(t *testing.T) {
	raw := []byte(`{"messageProtocolHandshake":[{"handshakeType":"announceMax"}]}`)
	_, _, err := DecodeCSHP(raw)
	assert.Error(t, err)
}

func TestDecodeCSHP_MalformedJSONAborts(t *testing.T) {
	_, _, err := DecodeCSHP([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeCSHP_SelectWithWrongFormatIsStillDecodable(t *testing.T) {
	// Decoding must succeed even when the semantic content is one the CSHP
	// layer will reject (version/format mismatch); the codec only enforces
	// shape and enum membership, not cross-field semantics.
	want := ProtocolHandshake{
		Type:    HandshakeSelect,
		Version: Version{Major: 1, Minor: 0},
		Formats: []Format{FormatJSONUTF16},
	}
	raw, err := EncodeProtocolHandshake(want)
	require.NoError(t, err)

	got, _, err := DecodeCSHP(raw)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}
