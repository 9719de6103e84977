package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestData_RoundTrip(t *testing.T) {
	payload := map[string]interface{}{"value": 42, "ok": true}
	raw, err := EncodeData(7, payload)
	require.NoError(t, err)

	got, err := DecodeData(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ProtocolID)

	var decodedPayload map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Payload, &decodedPayload))
	assert.Equal(t, float64(42), decodedPayload["value"])
	assert.Equal(t, true, decodedPayload["ok"])
}

func TestData_LiteralWireForm(t *testing.T) {
	raw, err := EncodeData(1, "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"header":[{"protocolId":1}]},{"payload":"hello"}]}`, string(raw))
}

func TestDecodeData_MissingPayloadAborts(t *testing.T) {
	_, err := DecodeData([]byte(`{"data":[{"header":[{"protocolId":1}]}]}`))
	assert.Error(t, err)
}

func TestDecodeData_WrongFamilyAborts(t *testing.T) {
	_, err := DecodeData([]byte(`{"notData":[{"payload":1}]}`))
	assert.Error(t, err)
}

func TestDecodeData_MissingHeaderStillDecodes(t *testing.T) {
	got, err := DecodeData([]byte(`{"data":[{"payload":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, got.ProtocolID)
}

func TestDecodeData_MultiKeyListItemAborts(t *testing.T) {
	_, err := DecodeData([]byte(`{"data":[{"header":[{"protocolId":1}],"payload":"x"}]}`))
	assert.Error(t, err)
}
