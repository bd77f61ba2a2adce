package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cymbal-assist-be/internal/pkg/logger"
)

// DocumentRecord is one stored document. Body holds the fields as jsonb.
type DocumentRecord struct {
	Path       string         `gorm:"type:text;primaryKey" json:"path"`
	Collection string         `gorm:"type:text;not null;index:idx_documents_collection" json:"collection"`
	DocID      string         `gorm:"type:varchar(100);not null" json:"doc_id"`
	Body       datatypes.JSON `gorm:"type:jsonb;not null" json:"body"`
	CreatedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DocumentRecord) TableName() string {
	return "documents"
}

// ChangesChannel is the Redis channel carrying the path of every write so
// that each instance refreshes its own live subscriptions.
const ChangesChannel = "docstore_changes"

// SQLStore keeps documents in Postgres. Without Redis, changes only reach
// subscriptions of this instance.
type SQLStore struct {
	db     *gorm.DB
	rdb    *redis.Client
	reg    *registry
	logger logger.ILogger
}

func NewSQLStore(db *gorm.DB, rdb *redis.Client, log logger.ILogger) *SQLStore {
	return &SQLStore{db: db, rdb: rdb, reg: newRegistry(), logger: log}
}

func (s *SQLStore) Migrate() error {
	return s.db.AutoMigrate(&DocumentRecord{})
}

// Run listens for change notifications until ctx ends.
func (s *SQLStore) Run(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	pubsub := s.rdb.Subscribe(ctx, ChangesChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.refresh(ctx, msg.Payload)
		}
	}
}

func (s *SQLStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	col, err := checkCollection(q.Collection)
	if err != nil {
		return nil, err
	}
	q.Collection = col
	w := &watcher{query: q}
	sub := s.reg.open(ctx, w)
	err = s.reg.reload(w, func() ([]Document, error) { return s.query(ctx, q) })
	if err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

func (s *SQLStore) Watch(ctx context.Context, docPath string) (*Subscription, error) {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return nil, err
	}
	path := col + "/" + id
	w := &watcher{docPath: path}
	sub := s.reg.open(ctx, w)
	err = s.reg.reload(w, func() ([]Document, error) { return s.one(ctx, path) })
	if err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

func (s *SQLStore) Get(ctx context.Context, docPath string) (Document, error) {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return Document{}, err
	}
	docs, err := s.one(ctx, col+"/"+id)
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, docPath)
	}
	return docs[0], nil
}

func (s *SQLStore) Set(ctx context.Context, docPath string, data map[string]any) error {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return err
	}
	return s.put(ctx, col, id, data)
}

func (s *SQLStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	col, err := checkCollection(collection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.put(ctx, col, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) Delete(ctx context.Context, docPath string) error {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return err
	}
	path := col + "/" + id
	if err := s.db.WithContext(ctx).Where("path = ?", path).Delete(&DocumentRecord{}).Error; err != nil {
		return fmt.Errorf("delete document %s: %w", path, err)
	}
	s.changed(ctx, path)
	return nil
}

func (s *SQLStore) put(ctx context.Context, col, id string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec := DocumentRecord{
		Path:       col + "/" + id,
		Collection: col,
		DocID:      id,
		Body:       datatypes.JSON(body),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"body": rec.Body, "updated_at": time.Now()}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("write document %s: %w", rec.Path, err)
	}
	s.changed(ctx, rec.Path)
	return nil
}

func (s *SQLStore) changed(ctx context.Context, path string) {
	if s.rdb == nil {
		s.refresh(ctx, path)
		return
	}
	if err := s.rdb.Publish(ctx, ChangesChannel, path).Err(); err != nil {
		s.logger.Warn("DOCSTORE", "Change fan-out failed, refreshing locally", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		s.refresh(ctx, path)
	}
}

// refresh re-reads and re-emits the snapshot of every subscription the
// changed path belongs to.
func (s *SQLStore) refresh(ctx context.Context, path string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return
	}
	col := path[:idx]
	for _, w := range s.reg.matching(path, col) {
		err := s.reg.reload(w, func() ([]Document, error) {
			if w.docPath != "" {
				return s.one(ctx, path)
			}
			return s.query(ctx, w.query)
		})
		if err != nil {
			s.logger.Error("DOCSTORE", "Snapshot refresh failed", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
}

func (s *SQLStore) one(ctx context.Context, path string) ([]Document, error) {
	var rec DocumentRecord
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	d, err := toDocument(rec)
	if err != nil {
		return nil, err
	}
	return []Document{d}, nil
}

func (s *SQLStore) query(ctx context.Context, q Query) ([]Document, error) {
	var recs []DocumentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ?", q.Collection).
		Order("created_at ASC, path ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	out := make([]Document, 0, len(recs))
	for _, rec := range recs {
		d, err := toDocument(rec)
		if err != nil {
			s.logger.Warn("DOCSTORE", "Skipping undecodable document", map[string]interface{}{
				"path":  rec.Path,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, d)
	}
	sortDocs(out, q)
	return out, nil
}

func toDocument(rec DocumentRecord) (Document, error) {
	data := map[string]any{}
	if len(rec.Body) > 0 {
		if err := json.Unmarshal(rec.Body, &data); err != nil {
			return Document{}, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, rec.Path, err)
		}
	}
	return Document{Path: rec.Path, ID: rec.DocID, Data: data}, nil
}
