package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/outbox/payloads"
)

func TestDecodeAsTypedPayload(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.PayoutApprovedEvent](reg, enums.EventPayoutApproved, 1)

	payoutID := uuid.New()
	input, err := json.Marshal(payloads.PayoutApprovedEvent{PayoutID: payoutID, Amount: decimal.RequireFromString("20.00"), Currency: "USD"})
	require.NoError(t, err)

	event, err := DecodeAs[payloads.PayoutApprovedEvent](reg, enums.EventPayoutApproved, 1, input)
	require.NoError(t, err)
	assert.Equal(t, payoutID, event.PayoutID)
	assert.True(t, event.Amount.Equal(decimal.RequireFromString("20")))
}

func TestDecodeUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.PayoutApprovedEvent](reg, enums.EventPayoutApproved, 1)

	_, err := reg.Decode(enums.EventPayoutApproved, 2, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDecoder))
}

func TestDecodeAsRejectsMalformedPayload(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.PayoutApprovedEvent](reg, enums.EventPayoutApproved, 1)

	_, err := DecodeAs[payloads.PayoutApprovedEvent](reg, enums.EventPayoutApproved, 1, json.RawMessage(`{"payout_id":42}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoDecoder))
}

func TestDecodeAsTypeMismatch(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[map[string]string](reg, enums.EventPayoutFailed, 1)

	_, err := DecodeAs[payloads.PayoutApprovedEvent](reg, enums.EventPayoutFailed, 1, json.RawMessage(`{"status":"failed"}`))
	assert.Error(t, err)
}
