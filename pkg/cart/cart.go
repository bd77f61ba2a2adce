// Package cart keeps a user's cart line items. The total is never stored; it
// is summed from the items in integer cents every time it is read.
package cart

import (
	"sync"

	"cymbal-assist-be/pkg/catalog"
)

type Cart struct {
	mu    sync.RWMutex
	items []catalog.Product
}

func New(items ...catalog.Product) *Cart {
	c := &Cart{}
	c.items = append(c.items, items...)
	return c
}

func (c *Cart) Add(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, p)
}

// Remove drops the first line item with the given product id and reports
// whether one was found.
func (c *Cart) Remove(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.items {
		if string(p.ID) == productID {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Items() []catalog.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Product, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cart) Total() catalog.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Sum(c.items)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Last returns the most recently added item.
func (c *Cart) Last() (catalog.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return catalog.Product{}, false
	}
	return c.items[len(c.items)-1], true
}

func Sum(items []catalog.Product) catalog.Money {
	var total catalog.Money
	for _, p := range items {
		total += p.Price
	}
	return total
}
