package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// ErrNoDecoder reports an event type or version this consumer does not know.
// Redelivery cannot fix it, so consumers ack and log.
var ErrNoDecoder = errors.New("no decoder registered")

type decodeFunc func(json.RawMessage) (any, error)

// DecoderRegistry maps "event_type@vN" to a payload decoder. Register
// everything before the first Decode; the map is not guarded.
type DecoderRegistry struct {
	byKey map[string]decodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{byKey: map[string]decodeFunc{}}
}

func decoderKey(eventType enums.OutboxEventType, version int) string {
	return fmt.Sprintf("%s@v%d", eventType, version)
}

// RegisterJSON decodes the payload version into a T value. A later
// registration for the same key wins.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	key := decoderKey(eventType, version)
	r.byKey[key] = func(raw json.RawMessage) (any, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return v, nil
	}
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	key := decoderKey(eventType, version)
	decode, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoDecoder, key)
	}
	return decode(payload)
}

// DecodeAs is Decode plus a type assertion to T.
func DecodeAs[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int, payload json.RawMessage) (T, error) {
	var zero T
	v, err := r.Decode(eventType, version, payload)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s decoded to %T", decoderKey(eventType, version), v)
	}
	return typed, nil
}
