// Package pub forwards configuration change events to downstream systems.
// The forwarder is an ordinary listener: register it on the namespaces whose
// changes should leave the process.
package pub

import (
	"confetch/internal/ports"
	"confetch/internal/types"
	"context"
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

var (
	enc, _ = zstd.NewWriter(nil)
	dec, _ = zstd.NewReader(nil)
)

const publishTimeout = 10 * time.Second

// Forwarder publishes every change event it receives to one topic.
// Fetch errors are logged, not forwarded.
type Forwarder struct {
	pub   ports.Publisher
	topic string
}

func NewForwarder(pub ports.Publisher, topic string) *Forwarder {
	return &Forwarder{pub: pub, topic: topic}
}

func (f *Forwarder) OnChange(event types.ChangeEvent) {
	payload, err := EncodeEvent(event)
	if err != nil {
		log.WithError(err).WithField("namespace", event.Namespace).Error("failed to encode change event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.pub.PublishRaw(ctx, f.topic, []byte(payload)); err != nil {
		log.WithError(err).WithField("namespace", event.Namespace).Error("failed to publish change event")
	}
}

func (f *Forwarder) OnError(namespace string, err error) {
	log.WithError(err).WithField("namespace", namespace).Warn("refresh failed upstream")
}

// EncodeEvent encodes the event as JSON, compresses and base64-url encodes it.
func EncodeEvent(event types.ChangeEvent) (string, error) {
	s, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	b := enc.EncodeAll(s, make([]byte, 0, len(s)))
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeEvent decodes the base64-url encoded, compressed payload back into an
// event. Consumers on the far side of the topic use this.
func DecodeEvent(in string) (types.ChangeEvent, error) {
	b, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return types.ChangeEvent{}, err
	}
	raw, err := dec.DecodeAll(b, nil)
	if err != nil {
		return types.ChangeEvent{}, err
	}
	var event types.ChangeEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return types.ChangeEvent{}, err
	}
	return event, nil
}
