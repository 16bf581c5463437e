// Package mcp parses MCP command flags and starts the stdio tool server.
package mcp

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/billy1976-servant/screenloom/internal/loader"
	"github.com/billy1976-servant/screenloom/internal/mcpserver"
	entrypoint "github.com/billy1976-servant/screenloom/internal/platform/cmd"
	"github.com/billy1976-servant/screenloom/internal/screen/layout"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/screen/template"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	ScreensDir string `env:"SCREENLOOM_SCREENS_DIR" envDefault:"screens"`
	DBPath     string `env:"SCREENLOOM_DB_PATH"     envDefault:"data/screenloom.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ScreensDir, "screens-dir", cfg.ScreensDir, "Directory of screen JSON documents")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP tool server on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		store, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close storage: %v", err)
			}
		}()

		source, err := loader.New(cfg.ScreensDir)
		if err != nil {
			return fmt.Errorf("init screen source: %w", err)
		}
		if err := source.LoadAll(ctx); err != nil {
			return fmt.Errorf("load screens: %w", err)
		}

		stateStore := state.New(state.WithPersister(store))
		stateStore.Restore(ctx)

		syncScreens(ctx, source, store, stateStore)

		profiles, err := template.BuiltIn()
		if err != nil {
			return fmt.Errorf("load template profiles: %w", err)
		}
		renderer := render.New(render.BuiltIn(), profiles, layout.BuiltIn())

		server, err := mcpserver.NewServer(mcpserver.Config{
			Source:   source,
			Store:    stateStore,
			Renderer: renderer,
			Querier:  store,
		})
		if err != nil {
			return fmt.Errorf("init MCP server: %w", err)
		}
		return server.Serve(ctx)
	})
}

// openStore opens the SQLite store, creating the parent directory when needed.
func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// syncScreens mirrors loaded screens into the query store so the listing tool
// can filter against the same documents the render tool serves, and seeds
// the default view from each document's state hint.
func syncScreens(ctx context.Context, source *loader.Source, store *sqlite.Store, states *state.Store) {
	for _, key := range source.Keys() {
		doc, ok := source.Screen(key)
		if !ok {
			continue
		}
		if doc.State != nil {
			states.SeedCurrentView(ctx, doc.State.CurrentView)
		}
		data, err := json.Marshal(doc)
		if err != nil {
			log.Printf("encode screen %s: %v", key, err)
			continue
		}
		record := storage.ScreenRecord{
			Key:       key,
			Document:  data,
			UpdatedAt: time.Now().UTC(),
		}
		if err := store.PutScreen(ctx, record); err != nil {
			log.Printf("sync screen %s: %v", key, err)
		}
	}
}
