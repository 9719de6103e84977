package message

import (
	"encoding/json"
	"fmt"
)

// HandshakeType distinguishes the two ProtocolHandshake roles: the
// client's opening offer of everything it supports, and either side's
// confirmation of the single choice.
type HandshakeType string

const (
	HandshakeAnnounceMax HandshakeType = "announceMax"
	HandshakeSelect      HandshakeType = "SELECT"
)

// Format is a supported application-payload encoding. The core only ever
// proposes and accepts JSON-UTF8; JSON-UTF16 exists solely so a peer
// proposing it can be correctly rejected.
type Format string

const (
	FormatJSONUTF8  Format = "JSON-UTF8"
	FormatJSONUTF16 Format = "JSON-UTF16"
)

// Version is the (major, minor) pair CSHP negotiates. The core only ever
// advertises and accepts (1, 0).
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// ProtocolHandshake is the messageProtocolHandshake family: either an
// announceMax offer or a select confirmation.
type ProtocolHandshake struct {
	Type    HandshakeType
	Version Version
	Formats []Format
}

// ProtocolHandshakeError is the messageProtocolHandshakeError family,
// carrying one of the CSHP error-code taxonomy values (see shiperr).
type ProtocolHandshakeError struct {
	Error int
}

const (
	familyProtocolHandshake      = "messageProtocolHandshake"
	familyProtocolHandshakeError = "messageProtocolHandshakeError"
)

// EncodeProtocolHandshake serialises m in the field order the wire
// convention expects: handshakeType, version, formats.
func EncodeProtocolHandshake(m ProtocolHandshake) ([]byte, error) {
	typeRaw, err := rawOf(m.Type)
	if err != nil {
		return nil, err
	}
	versionRaw, err := rawOf(m.Version)
	if err != nil {
		return nil, err
	}

	formatItems := make([]map[string]json.RawMessage, 0, 1)
	formatsRaw, err := rawOf(m.Formats)
	if err != nil {
		return nil, err
	}
	formatItems = append(formatItems, map[string]json.RawMessage{"format": formatsRaw})
	formatsListRaw, err := json.Marshal(formatItems)
	if err != nil {
		return nil, err
	}

	return encodeEnvelope(familyProtocolHandshake, []field{
		{Key: "handshakeType", Value: typeRaw},
		{Key: "version", Value: versionRaw},
		{Key: "formats", Value: formatsListRaw},
	})
}

// EncodeProtocolHandshakeError serialises a CSHP error frame.
func EncodeProtocolHandshakeError(m ProtocolHandshakeError) ([]byte, error) {
	errRaw, err := rawOf(m.Error)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(familyProtocolHandshakeError, []field{
		{Key: "error", Value: errRaw},
	})
}

// DecodeCSHP decodes a CSHP control frame body into whichever of
// ProtocolHandshake or ProtocolHandshakeError it names. Exactly one return
// value is non-nil on success.
func DecodeCSHP(raw []byte) (*ProtocolHandshake, *ProtocolHandshakeError, error) {
	family, fields, err := decodeEnvelope(raw)
	if err != nil {
		return nil, nil, err
	}

	switch family {
	case familyProtocolHandshake:
		m, err := decodeProtocolHandshake(fields)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	case familyProtocolHandshakeError:
		errField, ok := findField(fields, "error")
		if !ok {
			return nil, nil, fmt.Errorf("message: %s missing error field", familyProtocolHandshakeError)
		}
		var code int
		if err := json.Unmarshal(errField, &code); err != nil {
			return nil, nil, fmt.Errorf("message: invalid error code: %w", err)
		}
		return nil, &ProtocolHandshakeError{Error: code}, nil
	default:
		return nil, nil, fmt.Errorf("message: unknown CSHP family %q", family)
	}
}

func decodeProtocolHandshake(fields []field) (*ProtocolHandshake, error) {
	typeRaw, ok := findField(fields, "handshakeType")
	if !ok {
		return nil, fmt.Errorf("message: %s missing handshakeType", familyProtocolHandshake)
	}
	var typ HandshakeType
	if err := json.Unmarshal(typeRaw, &typ); err != nil {
		return nil, fmt.Errorf("message: invalid handshakeType: %w", err)
	}
	if typ != HandshakeAnnounceMax && typ != HandshakeSelect {
		return nil, fmt.Errorf("message: unknown handshakeType %q", typ)
	}

	versionRaw, ok := findField(fields, "version")
	if !ok {
		return nil, fmt.Errorf("message: %s missing version", familyProtocolHandshake)
	}
	var version Version
	if err := json.Unmarshal(versionRaw, &version); err != nil {
		return nil, fmt.Errorf("message: invalid version: %w", err)
	}

	formatsRaw, ok := findField(fields, "formats")
	if !ok {
		return nil, fmt.Errorf("message: %s missing formats", familyProtocolHandshake)
	}
	var formatItems []map[string]json.RawMessage
	if err := json.Unmarshal(formatsRaw, &formatItems); err != nil {
		return nil, fmt.Errorf("message: invalid formats list: %w", err)
	}
	if len(formatItems) != 1 {
		return nil, fmt.Errorf("message: formats list has %d items, want 1", len(formatItems))
	}
	item := formatItems[0]
	if len(item) != 1 {
		return nil, fmt.Errorf("message: formats list item has %d keys, want 1", len(item))
	}
	listRaw, ok := item["format"]
	if !ok {
		return nil, fmt.Errorf("message: formats list item missing format key")
	}
	var formats []Format
	if err := json.Unmarshal(listRaw, &formats); err != nil {
		return nil, fmt.Errorf("message: invalid format list: %w", err)
	}

	return &ProtocolHandshake{Type: typ, Version: version, Formats: formats}, nil
}
