package service

import (
	"context"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/entity"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/repository/memory"
	"cymbal-assist-be/pkg/broker"
	"cymbal-assist-be/pkg/catalog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// FrameDelivery pushes state to every connection of a user.
// Implemented by the WebSocket Hub.
type FrameDelivery interface {
	Push(userID string, frame dto.Frame)
}

// Broker frame keys.
const (
	BrokerProductDisplay   = "product_display"
	BrokerCartDisplay      = "cart_display"
	BrokerActiveDocumentID = "active_document_id"
	BrokerLoading          = "loading"
	BrokerAddToCart        = "add_to_cart"
)

type PubSub interface {
	message.Publisher
	message.Subscriber
}

type ISessionService interface {
	Open(ctx context.Context, userID string) (*dto.SessionResponse, error)
	Get(userID, sessionID string) (*entity.Session, error)
	Close(userID, sessionID string) error
	SetDisplay(userID, sessionID string, req *dto.DisplayRequest) error
}

type sessionService struct {
	repo     *memory.SessionRepository
	pubSub   PubSub
	delivery FrameDelivery
	language string
	logger   logger.ILogger
}

func NewSessionService(
	repo *memory.SessionRepository,
	pubSub PubSub,
	delivery FrameDelivery,
	language string,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		repo:     repo,
		pubSub:   pubSub,
		delivery: delivery,
		language: language,
		logger:   log,
	}
}

// Open starts a session for a new tab. It lives until closed or idle for
// the repository's TTL, independently of the request that opened it.
func (s *sessionService) Open(_ context.Context, userID string) (*dto.SessionResponse, error) {
	id := uuid.NewString()
	sess := entity.NewSession(context.Background(), id, userID, broker.New(s.pubSub, s.pubSub, id))
	s.forward(sess)
	s.repo.Save(sess)

	s.logger.Info("SESSION", "Session opened", map[string]interface{}{
		"session_id": id,
		"user_id":    userID,
		"open":       s.repo.Count(),
	})
	return &dto.SessionResponse{SessionID: id, Language: s.language}, nil
}

// forward relays the session's broker channels to the user's connections
// until the session ends.
func (s *sessionService) forward(sess *entity.Session) {
	ctx := sess.Context()
	b := sess.Broker
	push := func(key string, v any) {
		s.delivery.Push(sess.UserID, dto.Frame{Type: dto.FrameBroker, SessionID: sess.ID, Key: key, Data: v})
	}

	go relay(b.ProductDisplay.Subscribe(ctx), func(v bool) { push(BrokerProductDisplay, v) })
	go relay(b.CartDisplay.Subscribe(ctx), func(v bool) { push(BrokerCartDisplay, v) })
	go relay(b.ActiveDocumentID.Subscribe(ctx), func(v string) { push(BrokerActiveDocumentID, v) })
	go relay(b.Loading.Subscribe(ctx), func(v bool) { push(BrokerLoading, v) })

	added, err := b.AddToCart.Subscribe(ctx)
	if err != nil {
		s.logger.Error("SESSION", "Failed to subscribe to add-to-cart", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return
	}
	go relay(added, func(p catalog.Product) { push(BrokerAddToCart, p) })
}

func relay[T any](ch <-chan T, fn func(T)) {
	for v := range ch {
		fn(v)
	}
}

func (s *sessionService) Get(userID, sessionID string) (*entity.Session, error) {
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		return nil, serverutils.ErrSessionNotFound
	}
	if sess.UserID != userID {
		return nil, serverutils.ErrForbidden
	}
	return sess, nil
}

func (s *sessionService) Close(userID, sessionID string) error {
	if _, err := s.Get(userID, sessionID); err != nil {
		return err
	}
	s.repo.Delete(sessionID)
	s.logger.Info("SESSION", "Session closed", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *sessionService) SetDisplay(userID, sessionID string, req *dto.DisplayRequest) error {
	sess, err := s.Get(userID, sessionID)
	if err != nil {
		return err
	}
	if req.Product != nil {
		sess.Broker.ProductDisplay.Set(*req.Product)
	}
	if req.Cart != nil {
		sess.Broker.CartDisplay.Set(*req.Cart)
	}
	return nil
}
