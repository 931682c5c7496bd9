package realtime

import (
	"context"
	"encoding/json"
)

// Inbound is one pushed change as the bridge sees it. Data is passed on to
// the bus untouched.
type Inbound struct {
	Topic    string
	Key      string
	Location string
	Data     json.RawMessage
}

type Handler func(ctx context.Context, in Inbound) error

type Subscription interface {
	Close() error
}

// Subscriber opens push channels. Subscribe returns once the channel is
// acknowledged and delivers to h until the subscription is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
}

// payloadLocation reads a top-level "location" field, used when the
// transport carries no location of its own.
func payloadLocation(data []byte) string {
	var body struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Location
}
