package recommend

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"cymbal-assist-be/pkg/catalog"
)

// Slot is one merchandising row. Placeholder stays true, with
// PlaceholderSize empty products, until the slot resolves or fails.
type Slot struct {
	Key         string            `json:"key"`
	Kind        Kind              `json:"-"`
	Placeholder bool              `json:"placeholder"`
	Products    []catalog.Product `json:"products"`
	Error       string            `json:"error,omitempty"`
}

// Page is the set of slots of one consuming view. Each key is requested at
// most once for the page's lifetime; slots resolve independently.
type Page struct {
	agg    *Aggregator
	ctx    context.Context
	cancel context.CancelFunc
	g      errgroup.Group

	mu    sync.Mutex
	order []string
	slots map[string]*Slot
	// OnChange runs with the page locked each time a slot changes.
	onChange func(Slot)
}

func (a *Aggregator) NewPage(ctx context.Context, onChange func(Slot)) *Page {
	ctx, cancel := context.WithCancel(ctx)
	return &Page{
		agg:      a,
		ctx:      ctx,
		cancel:   cancel,
		slots:    make(map[string]*Slot),
		onChange: onChange,
	}
}

// Request starts the slot's pipeline. It reports false, and does nothing,
// when the key was already requested on this page.
func (p *Page) Request(key string, kind Kind, userID string, seeds []string) bool {
	p.mu.Lock()
	if _, ok := p.slots[key]; ok {
		p.mu.Unlock()
		return false
	}
	s := &Slot{
		Key:         key,
		Kind:        kind,
		Placeholder: true,
		Products:    catalog.Placeholder(PlaceholderSize),
	}
	p.slots[key] = s
	p.order = append(p.order, key)
	p.changedLocked(s)
	p.mu.Unlock()

	seeds = CapSeeds(seeds)
	p.g.Go(func() error {
		products, err := p.agg.Recommend(p.ctx, kind, userID, seeds)
		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			if p.ctx.Err() != nil {
				return nil
			}
			p.agg.Logger.Error("RECOMMEND", "Slot failed", map[string]interface{}{
				"slot":                key,
				"recommendation_type": kind.RecommendationType,
				"error":               err.Error(),
			})
			s.Error = err.Error()
			p.changedLocked(s)
			return nil
		}
		s.Placeholder = false
		s.Products = products
		p.changedLocked(s)
		return nil
	})
	return true
}

func (p *Page) changedLocked(s *Slot) {
	if p.onChange != nil {
		p.onChange(s.snapshot())
	}
}

func (s *Slot) snapshot() Slot {
	out := *s
	out.Products = make([]catalog.Product, len(s.Products))
	copy(out.Products, s.Products)
	return out
}

// Slots returns the slots in request order.
func (p *Page) Slots() []Slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Slot, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.slots[k].snapshot())
	}
	return out
}

func (p *Page) Slot(key string) (Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[key]
	if !ok {
		return Slot{}, false
	}
	return s.snapshot(), true
}

// Wait blocks until every requested slot has settled.
func (p *Page) Wait() {
	_ = p.g.Wait()
}

// Close abandons slots still resolving. Their placeholders stay in place.
func (p *Page) Close() {
	p.cancel()
}
