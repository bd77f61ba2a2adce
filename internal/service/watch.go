package service

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/entity"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/docstore"
)

// watchCollection follows a collection for the session and pushes every
// decoded snapshot as a frame of the given type. It replaces any earlier
// watch under the same key.
func watchCollection[T any](
	sess *entity.Session,
	store docstore.Store,
	delivery FrameDelivery,
	log logger.ILogger,
	key, frameType string,
	q docstore.Query,
) error {
	sub, err := store.Subscribe(sess.Context(), q)
	if err != nil {
		return err
	}
	sess.Watch(key, sub)

	go func() {
		for docs := range sub.C {
			items, err := docstore.DecodeAll[T](docs)
			if err != nil {
				log.Warn("WATCH", "Dropped malformed records", map[string]interface{}{
					"collection": q.Collection,
					"error":      err.Error(),
				})
			}
			delivery.Push(sess.UserID, dto.Frame{Type: frameType, SessionID: sess.ID, Key: key, Data: items})
		}
	}()
	return nil
}
