package state

import (
	"sync"

	"github.com/billy1976-servant/screenloom/internal/screen/palette"
)

// PaletteStore owns the active palette selection, with the same reactive
// subscription shape as the other stores.
type PaletteStore struct {
	mu        sync.Mutex
	active    *palette.Palette
	listeners map[int]func()
	nextKey   int
}

// NewPaletteStore returns a store holding the default palette.
func NewPaletteStore() *PaletteStore {
	return &PaletteStore{
		active:    palette.Default(),
		listeners: map[int]func(){},
	}
}

// Palette returns the active palette.
func (p *PaletteStore) Palette() *palette.Palette {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SetName switches the active palette by built-in name and notifies
// subscribers.
func (p *PaletteStore) SetName(name string) {
	p.mu.Lock()
	p.active = palette.ByName(name)
	listeners := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()
	notify(listeners)
}

// Subscribe registers a listener invoked synchronously after every change.
func (p *PaletteStore) Subscribe(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.nextKey
	p.nextKey++
	p.listeners[key] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, key)
	}
}
