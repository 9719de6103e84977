package message

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// PinStateValue is the pin_state enum. The core only ever sends and
// accepts None; the others exist so a peer requiring PIN entry decodes
// cleanly into a rejectable value instead of an unknown-family abort.
type PinStateValue string

const (
	PinRequired PinStateValue = "required"
	PinOptional PinStateValue = "optional"
	PinOk       PinStateValue = "pinOk"
	PinNone     PinStateValue = "none"
)

// InputPermission is PinState's optional companion field.
type InputPermission string

const (
	InputBusy InputPermission = "busy"
	InputOk   InputPermission = "ok"
)

// PinState is the connectionPinState family.
type PinState struct {
	State           PinStateValue
	InputPermission *InputPermission
}

// PinInput is the connectionPinInput family: a peer supplying a PIN. The
// core never sends one and aborts on receiving one.
type PinInput struct {
	Pin string
}

// PinError is the connectionPinError family.
type PinError struct {
	Error int
}

const (
	familyPinState = "connectionPinState"
	familyPinInput = "connectionPinInput"
	familyPinError = "connectionPinError"
)

var pinHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{8,16}$`)

// EncodePinState serialises s, omitting InputPermission when nil.
func EncodePinState(s PinState) ([]byte, error) {
	stateRaw, err := rawOf(s.State)
	if err != nil {
		return nil, err
	}
	fields := []field{{Key: "pinState", Value: stateRaw}}

	if s.InputPermission != nil {
		permRaw, err := rawOf(*s.InputPermission)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{Key: "inputPermission", Value: permRaw})
	}

	return encodeEnvelope(familyPinState, fields)
}

// PinMessage is the decoded sum type of the three PIN families: exactly
// one field is non-nil.
type PinMessage struct {
	State *PinState
	Input *PinInput
	Err   *PinError
}

// DecodePin decodes a PIN control frame body into whichever family it
// names.
func DecodePin(raw []byte) (*PinMessage, error) {
	family, fields, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	switch family {
	case familyPinState:
		s, err := decodePinState(fields)
		if err != nil {
			return nil, err
		}
		return &PinMessage{State: s}, nil

	case familyPinInput:
		pinRaw, ok := findField(fields, "pin")
		if !ok {
			return nil, fmt.Errorf("message: %s missing pin", familyPinInput)
		}
		var pin string
		if err := json.Unmarshal(pinRaw, &pin); err != nil {
			return nil, fmt.Errorf("message: invalid pin: %w", err)
		}
		if !pinHexPattern.MatchString(pin) {
			return nil, fmt.Errorf("message: pin %q does not match required hex format", pin)
		}
		return &PinMessage{Input: &PinInput{Pin: pin}}, nil

	case familyPinError:
		errRaw, ok := findField(fields, "error")
		if !ok {
			return nil, fmt.Errorf("message: %s missing error", familyPinError)
		}
		var code int
		if err := json.Unmarshal(errRaw, &code); err != nil {
			return nil, fmt.Errorf("message: invalid error code: %w", err)
		}
		return &PinMessage{Err: &PinError{Error: code}}, nil

	default:
		return nil, fmt.Errorf("message: unknown PIN family %q", family)
	}
}

func decodePinState(fields []field) (*PinState, error) {
	stateRaw, ok := findField(fields, "pinState")
	if !ok {
		return nil, fmt.Errorf("message: %s missing pinState", familyPinState)
	}
	var state PinStateValue
	if err := json.Unmarshal(stateRaw, &state); err != nil {
		return nil, fmt.Errorf("message: invalid pinState: %w", err)
	}
	switch state {
	case PinRequired, PinOptional, PinOk, PinNone:
	default:
		return nil, fmt.Errorf("message: unknown pinState %q", state)
	}

	s := &PinState{State: state}

	if permRaw, ok := findField(fields, "inputPermission"); ok {
		var perm InputPermission
		if err := json.Unmarshal(permRaw, &perm); err != nil {
			return nil, fmt.Errorf("message: invalid inputPermission: %w", err)
		}
		if perm != InputBusy && perm != InputOk {
			return nil, fmt.Errorf("message: unknown inputPermission %q", perm)
		}
		s.InputPermission = &perm
	}

	return s, nil
}
