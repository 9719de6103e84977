package message

import (
	"encoding/json"
	"fmt"
)

// Phase is the CSH connection phase the hello message announces.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseReady   Phase = "ready"
	PhaseAborted Phase = "aborted"
)

// Hello is the connectionHello family. Waiting and ProlongationRequest are
// optional; a nil pointer means the field was absent from the wire,
// distinct from a present zero value.
type Hello struct {
	Phase               Phase
	WaitingMillis       *int64
	ProlongationRequest *bool
}

const familyHello = "connectionHello"

// EncodeHello serialises h, omitting WaitingMillis and ProlongationRequest
// when nil.
func EncodeHello(h Hello) ([]byte, error) {
	phaseRaw, err := rawOf(h.Phase)
	if err != nil {
		return nil, err
	}
	fields := []field{{Key: "phase", Value: phaseRaw}}

	if h.WaitingMillis != nil {
		waitingRaw, err := rawOf(*h.WaitingMillis)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{Key: "waiting", Value: waitingRaw})
	}
	if h.ProlongationRequest != nil {
		prolongRaw, err := rawOf(*h.ProlongationRequest)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{Key: "prolongationRequest", Value: prolongRaw})
	}

	return encodeEnvelope(familyHello, fields)
}

// DecodeHello decodes a CSH control frame body. Phase is required;
// unknown phase values abort the connection at the caller.
func DecodeHello(raw []byte) (*Hello, error) {
	family, fields, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if family != familyHello {
		return nil, fmt.Errorf("message: unknown CSH family %q", family)
	}

	phaseRaw, ok := findField(fields, "phase")
	if !ok {
		return nil, fmt.Errorf("message: %s missing phase", familyHello)
	}
	var phase Phase
	if err := json.Unmarshal(phaseRaw, &phase); err != nil {
		return nil, fmt.Errorf("message: invalid phase: %w", err)
	}
	if phase != PhasePending && phase != PhaseReady && phase != PhaseAborted {
		return nil, fmt.Errorf("message: unknown phase %q", phase)
	}

	h := &Hello{Phase: phase}

	if waitingRaw, ok := findField(fields, "waiting"); ok {
		var waiting int64
		if err := json.Unmarshal(waitingRaw, &waiting); err != nil {
			return nil, fmt.Errorf("message: invalid waiting: %w", err)
		}
		h.WaitingMillis = &waiting
	}

	if prolongRaw, ok := findField(fields, "prolongationRequest"); ok {
		var prolong bool
		if err := json.Unmarshal(prolongRaw, &prolong); err != nil {
			return nil, fmt.Errorf("message: invalid prolongationRequest: %w", err)
		}
		h.ProlongationRequest = &prolong
	}

	return h, nil
}
