package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels used by the queue engine. Queue updates fan out to waiting-room
// displays; notices go to the notification dispatcher.
const (
	ChannelQueueUpdates = "queue_updates"
	ChannelDelayNotices = "delay_notices"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
