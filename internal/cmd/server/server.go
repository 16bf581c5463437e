// Package server parses server command flags and starts the development server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/billy1976-servant/screenloom/internal/loader"
	entrypoint "github.com/billy1976-servant/screenloom/internal/platform/cmd"
	"github.com/billy1976-servant/screenloom/internal/screen/layout"
	"github.com/billy1976-servant/screenloom/internal/screen/render"
	"github.com/billy1976-servant/screenloom/internal/screen/template"
	"github.com/billy1976-servant/screenloom/internal/state"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/sqlite"
	"github.com/billy1976-servant/screenloom/internal/web"
)

// Config holds the server command configuration.
type Config struct {
	HTTPAddr   string `env:"SCREENLOOM_HTTP_ADDR" envDefault:"localhost:8080"`
	ScreensDir string `env:"SCREENLOOM_SCREENS_DIR" envDefault:"screens"`
	DBPath     string `env:"SCREENLOOM_DB_PATH" envDefault:"data/screenloom.db"`
	Watch      bool   `env:"SCREENLOOM_WATCH" envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.ScreensDir, "screens-dir", cfg.ScreensDir, "Directory of screen JSON documents")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Reload screens on file changes")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the screen development server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
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
		unsubscribe := source.Subscribe(func(key string) {
			syncScreen(ctx, source, store, stateStore, key)
		})
		defer unsubscribe()

		profiles, err := template.BuiltIn()
		if err != nil {
			return fmt.Errorf("load template profiles: %w", err)
		}
		renderer := render.New(render.BuiltIn(), profiles, layout.BuiltIn())

		grants, err := loadGrants()
		if err != nil {
			return err
		}

		handler, err := web.NewHandler(web.HandlerConfig{
			Source:   source,
			Store:    stateStore,
			Renderer: renderer,
			Querier:  store,
			Grants:   grants,
		})
		if err != nil {
			return fmt.Errorf("init handler: %w", err)
		}
		server, err := web.NewServer(web.Config{HTTPAddr: cfg.HTTPAddr}, handler)
		if err != nil {
			return fmt.Errorf("init server: %w", err)
		}

		if cfg.Watch {
			go func() {
				if err := source.Watch(ctx); err != nil {
					log.Printf("watch screens: %v", err)
				}
			}()
		}

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
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

// loadGrants reads the editor grant keys when configured. A fully unset
// environment disables the layout endpoint instead of failing startup.
func loadGrants() (*web.EditorGrantConfig, error) {
	if os.Getenv("SCREENLOOM_EDITOR_GRANT_ISSUER") == "" &&
		os.Getenv("SCREENLOOM_EDITOR_GRANT_AUDIENCE") == "" &&
		os.Getenv("SCREENLOOM_EDITOR_GRANT_PUBLIC_KEY") == "" {
		return nil, nil
	}
	cfg, err := web.LoadEditorGrantConfigFromEnv(nil)
	if err != nil {
		return nil, fmt.Errorf("load editor grant config: %w", err)
	}
	return &cfg, nil
}

func syncScreens(ctx context.Context, source *loader.Source, store *sqlite.Store, states *state.Store) {
	for _, key := range source.Keys() {
		syncScreen(ctx, source, store, states, key)
	}
}

// syncScreen mirrors one loaded screen into the query store so filtered
// listings see the same documents the renderer serves, and seeds the
// default view from the document's state hint.
func syncScreen(ctx context.Context, source *loader.Source, store *sqlite.Store, states *state.Store, key string) {
	doc, ok := source.Screen(key)
	if !ok {
		if err := store.DeleteScreen(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("remove screen %s: %v", key, err)
		}
		return
	}
	if doc.State != nil {
		states.SeedCurrentView(ctx, doc.State.CurrentView)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		log.Printf("encode screen %s: %v", key, err)
		return
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
