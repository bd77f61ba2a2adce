package service

import (
	"context"
	"time"

	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/events"
	pktNats "cymbal-assist-be/pkg/nats"
)

// AnalyticsCollection receives every event consumed from the bus.
const AnalyticsCollection = "analytics-events"

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IAnalyticsService interface {
	// LogEvent publishes in the background; failures are logged, never
	// returned.
	LogEvent(ctx context.Context, eventType, userID, sessionID string, params map[string]interface{})
}

type analyticsService struct {
	publisher EventPublisher
	timeout   time.Duration
	logger    logger.ILogger
}

// NewAnalyticsService accepts a nil publisher, in which case events are
// dropped.
func NewAnalyticsService(publisher EventPublisher, log logger.ILogger) IAnalyticsService {
	return &analyticsService{publisher: publisher, timeout: 5 * time.Second, logger: log}
}

func (s *analyticsService) LogEvent(ctx context.Context, eventType, userID, sessionID string, params map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	ev := events.NewAnalytics(eventType, userID, sessionID, params)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	go func() {
		defer cancel()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("ANALYTICS", "Failed to publish event", map[string]interface{}{
				"type":  eventType,
				"error": err.Error(),
			})
		}
	}()
}

// AnalyticsRecorder copies analytics events from the bus into the document
// store, where the analyst reads them back.
type AnalyticsRecorder struct {
	subscriber *pktNats.Subscriber
	store      docstore.Store
	logger     logger.ILogger
}

func NewAnalyticsRecorder(sub *pktNats.Subscriber, store docstore.Store, log logger.ILogger) *AnalyticsRecorder {
	return &AnalyticsRecorder{subscriber: sub, store: store, logger: log}
}

func (r *AnalyticsRecorder) Start(ctx context.Context) {
	err := r.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+".>", "analytics-recorder", r.Record)
	if err != nil {
		r.logger.Error("ANALYTICS", "Failed to start analytics recorder", map[string]interface{}{"error": err.Error()})
		return
	}
	r.logger.Info("ANALYTICS", "Analytics recorder started, listening to "+pktNats.SubjectPrefix+".>", nil)
}

func (r *AnalyticsRecorder) Record(ctx context.Context, event events.Event) error {
	data := event.Payload()
	data["type"] = event.EventType()
	data["timestamp"] = event.Timestamp().UTC()
	if _, err := r.store.Add(ctx, AnalyticsCollection, data); err != nil {
		r.logger.Warn("ANALYTICS", "Failed to record event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return err
	}
	return nil
}
