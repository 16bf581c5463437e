// Package loader reads screen documents from a directory, keeps them
// parsed in memory, and hot-reloads them on file changes.
package loader

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
)

// Source serves parsed screen documents from a directory of JSON files.
// Reloads are last-write-wins per screen: a slow load that finishes after a
// newer one never clobbers the newer document.
type Source struct {
	dir string

	mu         sync.Mutex
	screens    map[string]entry
	generation uint64
	listeners  map[int]func(key string)
	nextKey    int
}

type entry struct {
	doc        node.Document
	generation uint64
}

// New returns a source over dir. The directory must exist.
func New(dir string) (*Source, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("screen directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat screen directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("screen path %s is not a directory", dir)
	}
	return &Source{
		dir:       dir,
		screens:   map[string]entry{},
		listeners: map[int]func(string){},
	}, nil
}

// LoadAll reads every .json file in the directory. Files that fail to parse
// or validate are replaced by an error screen so the rest of the set stays
// servable.
func (s *Source) LoadAll(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read screen directory: %w", err)
	}
	for _, dirEntry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".json") {
			continue
		}
		s.loadFile(filepath.Join(s.dir, dirEntry.Name()))
	}
	return nil
}

// Screen returns the parsed document for a key.
func (s *Source) Screen(key string) (node.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.screens[key]
	if !ok {
		return node.Document{}, false
	}
	return stored.doc, true
}

// Keys returns the loaded screen keys sorted.
func (s *Source) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.screens))
	for key := range s.screens {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers a listener invoked after a screen is installed or
// removed. The returned function removes the listener.
func (s *Source) Subscribe(fn func(key string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextKey
	s.nextKey++
	s.listeners[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
	}
}

// Watch reloads screens on file changes until ctx is done.
func (s *Source) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				s.remove(screenKeyForPath(event.Name))
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				s.loadFile(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("loader: watch error: %v", err)
		}
	}
}

// loadFile reads, parses, and installs one screen file. The generation is
// claimed before the read so a stale load loses against any newer one.
func (s *Source) loadFile(path string) {
	generation := s.claimGeneration()
	key := screenKeyForPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("loader: read %s: %v", path, err)
		s.install(key, errorScreen(key, err), generation)
		return
	}
	doc, err := parseScreen(key, data)
	if err != nil {
		log.Printf("loader: parse %s: %v", path, err)
		s.install(key, errorScreen(key, err), generation)
		return
	}
	if doc.Key != "" {
		key = doc.Key
	}
	s.install(key, doc, generation)
}

func parseScreen(key string, data []byte) (node.Document, error) {
	if err := node.ValidateDocument(data); err != nil {
		return node.Document{}, fmt.Errorf("validate screen %s: %w", key, err)
	}
	doc, err := node.Parse(data)
	if err != nil {
		return node.Document{}, fmt.Errorf("parse screen %s: %w", key, err)
	}
	return doc, nil
}

func (s *Source) claimGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// install stores the document unless a newer generation already won.
func (s *Source) install(key string, doc node.Document, generation uint64) {
	s.mu.Lock()
	current, ok := s.screens[key]
	if ok && current.generation > generation {
		s.mu.Unlock()
		return
	}
	s.screens[key] = entry{doc: doc, generation: generation}
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(key)
	}
}

func (s *Source) remove(key string) {
	s.mu.Lock()
	if _, ok := s.screens[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.screens, key)
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(key)
	}
}

func (s *Source) snapshotListeners() []func(string) {
	listeners := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func screenKeyForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".json")
}

// errorScreen is served in place of a screen that failed to load, so the
// failure is visible where the screen would render.
func errorScreen(key string, cause error) node.Document {
	return node.Document{
		Key:   key,
		Title: "Screen failed to load",
		Sections: []node.Node{
			{
				Type: "Section",
				Role: "content",
				Children: []node.Node{
					{
						Type:    "Text",
						Content: map[string]any{"text": fmt.Sprintf("screen %s failed to load: %v", key, cause)},
					},
				},
			},
		},
	}
}
