package state

import (
	"sync"

	"github.com/billy1976-servant/screenloom/internal/screen/region"
)

// LayoutStore owns per-screen region policy state: region enablement and
// nav placement overrides. It follows the same reactive single-writer
// pattern as the event store, but it is plain mutable state, not an
// append-only log, because policy toggles are presentation preferences
// rather than replayable intent history.
type LayoutStore struct {
	mu        sync.Mutex
	policies  map[string]region.PolicyState
	listeners map[int]func()
	nextKey   int
}

// NewLayoutStore returns an empty layout store.
func NewLayoutStore() *LayoutStore {
	return &LayoutStore{
		policies:  map[string]region.PolicyState{},
		listeners: map[int]func(){},
	}
}

// Policy returns the policy state for a screen. The zero value means no
// overrides.
func (l *LayoutStore) Policy(screenKey string) region.PolicyState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clonePolicy(l.policies[screenKey])
}

// SetRegionEnabled records an explicit enable/disable decision for a region.
func (l *LayoutStore) SetRegionEnabled(screenKey string, key region.Key, enabled bool) {
	l.mutate(screenKey, func(policy *region.PolicyState) {
		if policy.Regions == nil {
			policy.Regions = map[region.Key]bool{}
		}
		policy.Regions[key] = enabled
	})
}

// SetNavEnabled overrides nav enablement for a screen.
func (l *LayoutStore) SetNavEnabled(screenKey string, enabled bool) {
	l.mutate(screenKey, func(policy *region.PolicyState) {
		value := enabled
		policy.NavEnabled = &value
	})
}

// SetNavPlacement overrides nav placement for a screen.
func (l *LayoutStore) SetNavPlacement(screenKey string, placement region.NavPlacement) {
	l.mutate(screenKey, func(policy *region.PolicyState) {
		policy.Nav = placement
	})
}

// Clear drops all overrides for a screen.
func (l *LayoutStore) Clear(screenKey string) {
	l.mu.Lock()
	delete(l.policies, screenKey)
	listeners := l.snapshotListeners()
	l.mu.Unlock()
	notify(listeners)
}

// Subscribe registers a listener invoked synchronously after every change.
func (l *LayoutStore) Subscribe(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.nextKey
	l.nextKey++
	l.listeners[key] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, key)
	}
}

func (l *LayoutStore) mutate(screenKey string, change func(*region.PolicyState)) {
	l.mu.Lock()
	policy := clonePolicy(l.policies[screenKey])
	change(&policy)
	l.policies[screenKey] = policy
	listeners := l.snapshotListeners()
	l.mu.Unlock()
	notify(listeners)
}

func (l *LayoutStore) snapshotListeners() []func() {
	listeners := make([]func(), 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

func clonePolicy(policy region.PolicyState) region.PolicyState {
	out := region.PolicyState{Nav: policy.Nav}
	if policy.NavEnabled != nil {
		value := *policy.NavEnabled
		out.NavEnabled = &value
	}
	if policy.Regions != nil {
		out.Regions = make(map[region.Key]bool, len(policy.Regions))
		for key, enabled := range policy.Regions {
			out.Regions[key] = enabled
		}
	}
	return out
}
