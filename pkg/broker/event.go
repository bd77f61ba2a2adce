package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Event is a one-shot channel: only subscribers active at publish time see a
// value, nothing is replayed. Values travel as JSON over a watermill topic.
type Event[T any] struct {
	pub   message.Publisher
	sub   message.Subscriber
	topic string
}

func NewEvent[T any](pub message.Publisher, sub message.Subscriber, topic string) *Event[T] {
	return &Event[T]{pub: pub, sub: sub, topic: topic}
}

func (e *Event[T]) Publish(v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := e.pub.Publish(e.topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.topic, err)
	}
	return nil
}

// Subscribe delivers values published after it returns, until ctx ends.
func (e *Event[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	messages, err := e.sub.Subscribe(ctx, e.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", e.topic, err)
	}

	out := make(chan T, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var v T
			if err := json.Unmarshal(msg.Payload, &v); err != nil {
				msg.Ack()
				continue
			}
			select {
			case out <- v:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}
