package broker

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"cymbal-assist-be/pkg/catalog"
)

// Broker carries the shared signals of one session. Ordering holds within a
// channel, not across channels.
//
// The state channels (the Replay fields) coalesce: a subscriber that falls
// behind skips intermediate values and receives only the latest one, so they
// suit state that is rendered, not counted. AddToCart is an Event and delivers
// every value to each active subscriber.
type Broker struct {
	ProductDisplay   *Replay[bool]
	CartDisplay      *Replay[bool]
	ActiveDocumentID *Replay[string]
	Loading          *Replay[bool]
	AddToCart        *Event[catalog.Product]
}

// New builds the channels of one session. Event topics are namespaced by
// sessionID so sessions can share a pubsub.
func New(pub message.Publisher, sub message.Subscriber, sessionID string) *Broker {
	return &Broker{
		ProductDisplay:   NewReplay[bool](),
		CartDisplay:      NewReplay[bool](),
		ActiveDocumentID: NewReplay[string](),
		Loading:          NewReplay[bool](),
		AddToCart:        NewEvent[catalog.Product](pub, sub, "session."+sessionID+".add_to_cart"),
	}
}

// NewPubSub returns the in-process pubsub used for session events. Publishing
// waits for subscriber acks so a channel keeps its order.
func NewPubSub(l watermill.LoggerAdapter) *gochannel.GoChannel {
	if l == nil {
		l = watermill.NopLogger{}
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            16,
		BlockPublishUntilSubscriberAck: true,
	}, l)
}
