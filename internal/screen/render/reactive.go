package render

import (
	"sync"

	"github.com/billy1976-servant/screenloom/internal/state"
)

// Root keeps a rendered result current against the three reactive stores.
// Any store notification triggers a synchronous re-render, so reads after a
// dispatch always observe the post-dispatch tree.
type Root struct {
	mu      sync.Mutex
	render  func() Result
	result  Result
	cancels []func()
}

// subscribable is the synchronous store subscription primitive Root
// consumes. The state store's Derived-payload subscription adapts to it in
// NewRoot.
type subscribable interface {
	Subscribe(fn func()) func()
}

// NewRoot renders once and re-renders whenever any source notifies. Sources
// are the layout and palette stores, plus any other store adapted to the
// plain subscription shape.
func NewRoot(render func() Result, sources ...subscribable) *Root {
	root := &Root{render: render}
	root.result = render()
	for _, source := range sources {
		cancel := source.Subscribe(root.refresh)
		root.cancels = append(root.cancels, cancel)
	}
	return root
}

func (r *Root) refresh() {
	result := r.render()
	r.mu.Lock()
	r.result = result
	r.mu.Unlock()
}

// Result returns the last rendered tree.
func (r *Root) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Close detaches from all sources.
func (r *Root) Close() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

// StateSource adapts the event store's snapshot subscription to the plain
// subscription shape Root consumes.
type StateSource struct {
	Store *state.Store
}

func (s StateSource) Subscribe(fn func()) func() {
	return s.Store.Subscribe(func(state.Derived) { fn() })
}
