package service

import (
	"context"
	"sync"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/repository/memory"
	"cymbal-assist-be/pkg/broker"
)

type recordedFrames struct {
	mu     sync.Mutex
	frames []dto.Frame
}

func (r *recordedFrames) Push(_ string, frame dto.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recordedFrames) ofType(t string) []dto.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dto.Frame
	for _, f := range r.frames {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

type recordedAnalytics struct {
	mu     sync.Mutex
	events []string
}

func (a *recordedAnalytics) LogEvent(_ context.Context, eventType, _, _ string, _ map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, eventType)
}

func (a *recordedAnalytics) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

func newTestSessions(delivery FrameDelivery) (ISessionService, *memory.SessionRepository) {
	repo := memory.NewSessionRepository(time.Hour)
	return NewSessionService(repo, broker.NewPubSub(nil), delivery, "en-US", logger.NewNopLogger()), repo
}

const (
	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
)

func ptr[T any](v T) *T { return &v }
