// Package appcatalog holds the set of portal applications that delegated
// tokens may target. The catalog file is watched and reloaded in place,
// so adding an application does not need a restart.
package appcatalog

import (
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// App is one portal application entry.
type App struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Icon        string `mapstructure:"icon"`
	Description string `mapstructure:"description"`
}

type snapshot struct {
	apps []App
	byID map[string]App
}

// Catalog is a read-mostly view over the catalog file. An empty catalog
// places no restriction on app ids.
type Catalog struct {
	path    string
	current atomic.Value
	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *zap.Logger
}

func newSnapshot(apps []App) *snapshot {
	byID := make(map[string]App, len(apps))
	for _, app := range apps {
		byID[strings.ToLower(app.ID)] = app
	}
	return &snapshot{apps: apps, byID: byID}
}

// New loads the catalog from path. An empty path yields a permanently
// empty catalog.
func New(path string, log *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		path: path,
		done: make(chan struct{}),
		log:  log.Named("appcatalog"),
	}
	c.current.Store(newSnapshot(nil))

	if path == "" {
		return c, nil
	}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	v := viper.New()
	v.SetConfigFile(c.path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	var apps []App
	if err := v.UnmarshalKey("apps", &apps); err != nil {
		return err
	}

	c.current.Store(newSnapshot(apps))
	c.log.Info("app catalog loaded", zap.Int("apps", len(apps)))
	return nil
}

// Watch starts reloading the catalog on file changes. Editors replace the
// file rather than writing in place, so the parent directory is watched.
func (c *Catalog) Watch() error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return err
	}
	c.watcher = watcher

	go func() {
		target := filepath.Clean(c.path)
		for {
			select {
			case <-c.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := c.reload(); err != nil {
					// A half-written file is retried on the next event;
					// the previous snapshot stays in effect.
					c.log.Warn("app catalog reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Warn("app catalog watcher", zap.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (c *Catalog) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// Apps returns the current catalog entries.
func (c *Catalog) Apps() []App {
	return c.current.Load().(*snapshot).apps
}

// Lookup finds an app by id, case-insensitively.
func (c *Catalog) Lookup(id string) (App, bool) {
	app, ok := c.current.Load().(*snapshot).byID[strings.ToLower(strings.TrimSpace(id))]
	return app, ok
}

// Resolve maps an app id to its display name. With a non-empty catalog
// unknown ids are rejected; an empty catalog admits any id and echoes
// the caller-supplied name.
func (c *Catalog) Resolve(id, fallbackName string) (string, bool) {
	if len(c.Apps()) == 0 {
		return fallbackName, true
	}
	app, ok := c.Lookup(id)
	if !ok {
		return "", false
	}
	return app.Name, true
}
