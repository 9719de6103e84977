package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrBool(v bool) *bool    { return &v }

func TestHello_RoundTripMinimal(t *testing.T) {
	want := Hello{Phase: PhaseReady}

	raw, err := EncodeHello(want)
	require.NoError(t, err)

	got, err := DecodeHello(raw)
	require.NoError(t, err)
	assert.Equal(t, want.Phase, got.Phase)
	assert.Nil(t, got.WaitingMillis)
	assert.Nil(t, got.ProlongationRequest)
}

func TestHello_RoundTripFullyPopulated(t *testing.T) {
	want := Hello{
		Phase:               PhasePending,
		WaitingMillis:       ptrInt64(115000),
		ProlongationRequest: ptrBool(true),
	}

	raw, err := EncodeHello(want)
	require.NoError(t, err)

	got, err := DecodeHello(raw)
	require.NoError(t, err)
	assert.Equal(t, want.Phase, got.Phase)
	require.NotNil(t, got.WaitingMillis)
	assert.Equal(t, *want.WaitingMillis, *got.WaitingMillis)
	require.NotNil(t, got.ProlongationRequest)
	assert.Equal(t, *want.ProlongationRequest, *got.ProlongationRequest)
}

func TestHello_LiteralWireForm(t *testing.T) {
	raw, err := EncodeHello(Hello{Phase: PhaseReady})
	require.NoError(t, err)
	assert.JSONEq(t, `{"connectionHello":[{"phase":"ready"}]}`, string(raw))
}

func TestDecodeHello_UnknownPhaseAborts(t *testing.T) {
	_, err := DecodeHello([]byte(`{"connectionHello":[{"phase":"bogus"}]}`))
	assert.Error(t, err)
}

func TestDecodeHello_MissingPhaseAborts(t *testing.T) {
	_, err := DecodeHello([]byte(`{"connectionHello":[{"waiting":1000}]}`))
	assert.Error(t, err)
}

func TestDecodeHello_MultiKeyListItemAborts(t *testing.T) {
	_, err := DecodeHello([]byte(`{"connectionHello":[{"phase":"ready","waiting":1000}]}`))
	assert.Error(t, err)
}

func TestDecodeHello_WrongFamilyAborts(t *testing.T) {
	_, err := DecodeHello([]byte(`{"somethingElse":[{"phase":"ready"}]}`))
	assert.Error(t, err)
}

func TestDecodeHello_AbortedPhase(t *testing.T) {
	got, err := DecodeHello([]byte(`{"connectionHello":[{"phase":"aborted"}]}`))
	require.NoError(t, err)
	assert.Equal(t, PhaseAborted, got.Phase)
}
