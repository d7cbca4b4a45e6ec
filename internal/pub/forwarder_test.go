package pub

import (
	"confetch/internal/types"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) PublishRaw(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	in := types.ChangeEvent{
		Namespace: "application",
		OldValue:  types.ConfigValue{"timeout": "30"},
		NewValue:  types.ConfigValue{"timeout": "60"},
		Changes:   map[string]any{"timeout": "60"},
	}

	encoded, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(encoded)
	require.NoError(t, err)
	assert.Equal(t, in.Namespace, out.Namespace)
	assert.Equal(t, "30", out.OldValue["timeout"])
	assert.Equal(t, "60", out.NewValue["timeout"])
	assert.Equal(t, "60", out.Changes["timeout"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeEvent("not base64url!!!")
	assert.Error(t, err)

	// Valid base64 that is not a zstd frame.
	_, err = DecodeEvent("aGVsbG8")
	assert.Error(t, err)
}

func TestForwarderPublishesChanges(t *testing.T) {
	pub := &fakePublisher{}
	f := NewForwarder(pub, "arn:aws:sns:us-east-1:000000000000:config-changes")

	event := types.ChangeEvent{
		Namespace: "application",
		NewValue:  types.ConfigValue{"key": "v1"},
		Changes:   map[string]any{"key": "v1"},
	}
	f.OnChange(event)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:config-changes", pub.topics[0])

	decoded, err := DecodeEvent(string(pub.payloads[0]))
	require.NoError(t, err)
	assert.Equal(t, "application", decoded.Namespace)
	assert.Equal(t, "v1", decoded.NewValue["key"])
}

func TestForwarderSwallowsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: types.Err(types.ErrNotAvailable, nil, "topic gone")}
	f := NewForwarder(pub, "topic")

	// Must not panic; failures are logged and dropped.
	f.OnChange(types.ChangeEvent{Namespace: "application"})
	f.OnError("application", types.ErrTransport)
}
