package message

import (
	"encoding/json"
	"fmt"
)

// DataEnvelope is the data family carried by 0x02-tagged frames once all
// four handshake layers have completed.
type DataEnvelope struct {
	ProtocolID int
	Payload    json.RawMessage
}

const familyData = "data"

// EncodeData serialises the header/payload pair in the wire's field order.
func EncodeData(protocolID int, payload interface{}) ([]byte, error) {
	payloadRaw, err := rawOf(payload)
	if err != nil {
		return nil, err
	}

	idRaw, err := rawOf(protocolID)
	if err != nil {
		return nil, err
	}
	headerItems := []map[string]json.RawMessage{{"protocolId": idRaw}}
	headerRaw, err := json.Marshal(headerItems)
	if err != nil {
		return nil, err
	}

	return encodeEnvelope(familyData, []field{
		{Key: "header", Value: headerRaw},
		{Key: "payload", Value: payloadRaw},
	})
}

// DecodeData parses a data-channel frame body. The payload item must be
// present; header/protocolId, if present, is validated but not required
// by the receiver per the data-channel's recv_data semantics.
func DecodeData(raw []byte) (*DataEnvelope, error) {
	family, fields, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if family != familyData {
		return nil, fmt.Errorf("message: unknown data family %q", family)
	}

	env := &DataEnvelope{}

	if headerRaw, ok := findField(fields, "header"); ok {
		var headerItems []map[string]json.RawMessage
		if err := json.Unmarshal(headerRaw, &headerItems); err != nil {
			return nil, fmt.Errorf("message: invalid header: %w", err)
		}
		for _, item := range headerItems {
			if len(item) != 1 {
				return nil, fmt.Errorf("message: header list item has %d keys, want 1", len(item))
			}
			if idRaw, ok := item["protocolId"]; ok {
				if err := json.Unmarshal(idRaw, &env.ProtocolID); err != nil {
					return nil, fmt.Errorf("message: invalid protocolId: %w", err)
				}
			}
		}
	}

	payloadRaw, ok := findField(fields, "payload")
	if !ok {
		return nil, fmt.Errorf("message: %s missing payload", familyData)
	}
	env.Payload = payloadRaw

	return env, nil
}
