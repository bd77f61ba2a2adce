package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memDoc struct {
	collection string
	id         string
	data       map[string]any
	seq        uint64
}

// MemoryStore is an in-process Store. It backs tests and local runs without
// Postgres.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memDoc
	seq  uint64
	reg  *registry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*memDoc),
		reg:  newRegistry(),
	}
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	col, err := checkCollection(q.Collection)
	if err != nil {
		return nil, err
	}
	q.Collection = col

	s.mu.Lock()
	defer s.mu.Unlock()
	w := &watcher{query: q}
	sub := s.reg.open(ctx, w)
	s.reg.deliver(w, s.collectionLocked(q))
	return sub, nil
}

func (s *MemoryStore) Watch(ctx context.Context, docPath string) (*Subscription, error) {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return nil, err
	}
	path := col + "/" + id

	s.mu.Lock()
	defer s.mu.Unlock()
	w := &watcher{docPath: path}
	sub := s.reg.open(ctx, w)
	s.reg.deliver(w, s.docLocked(path))
	return sub, nil
}

func (s *MemoryStore) Get(_ context.Context, docPath string) (Document, error) {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docLocked(col + "/" + id)
	if len(docs) == 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, docPath)
	}
	return docs[0], nil
}

func (s *MemoryStore) Set(_ context.Context, docPath string, data map[string]any) error {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(col, id, data)
	return nil
}

func (s *MemoryStore) Add(_ context.Context, collection string, data map[string]any) (string, error) {
	col, err := checkCollection(collection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(col, id, data)
	return id, nil
}

func (s *MemoryStore) Delete(_ context.Context, docPath string) error {
	col, id, err := SplitDoc(docPath)
	if err != nil {
		return err
	}
	path := col + "/" + id
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; !ok {
		return nil
	}
	delete(s.docs, path)
	s.notifyLocked(path, col)
	return nil
}

func (s *MemoryStore) putLocked(col, id string, data map[string]any) {
	path := col + "/" + id
	d, ok := s.docs[path]
	if !ok {
		s.seq++
		d = &memDoc{collection: col, id: id, seq: s.seq}
		s.docs[path] = d
	}
	d.data = copyData(data)
	s.notifyLocked(path, col)
}

func (s *MemoryStore) notifyLocked(path, col string) {
	for _, w := range s.reg.matching(path, col) {
		if w.docPath != "" {
			s.reg.deliver(w, s.docLocked(path))
		} else {
			s.reg.deliver(w, s.collectionLocked(w.query))
		}
	}
}

func (s *MemoryStore) docLocked(path string) []Document {
	d, ok := s.docs[path]
	if !ok {
		return []Document{}
	}
	return []Document{{Path: path, ID: d.id, Data: copyData(d.data)}}
}

func (s *MemoryStore) collectionLocked(q Query) []Document {
	var found []*memDoc
	for _, d := range s.docs {
		if d.collection == q.Collection {
			found = append(found, d)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]Document, 0, len(found))
	for _, d := range found {
		out = append(out, Document{Path: d.collection + "/" + d.id, ID: d.id, Data: copyData(d.data)})
	}
	sortDocs(out, q)
	return out
}
