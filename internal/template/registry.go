package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pagecraft/internal/logging"
	"pagecraft/internal/page"
)

// templateFile is the on-disk shape of one canonical template.
type templateFile struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	Document *page.Document `json:"document"`
}

// Registry resolves templates from a directory of JSON files (<id>.json).
// Loaded templates are cached; fsnotify write events invalidate the cache so
// edited templates take effect without a restart. Concurrent loads of the
// same id collapse into one read.
type Registry struct {
	dir     string
	log     *zap.Logger
	group   singleflight.Group
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	cache map[string]*Template

	done chan struct{}
}

// NewRegistry opens a template registry over dir and starts watching it.
func NewRegistry(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir %s is not a directory", dir)
	}

	r := &Registry{
		dir:   dir,
		log:   logging.Get(logging.CategoryReconcile),
		cache: map[string]*Template{},
		done:  make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	r.watcher = watcher
	go r.watch()

	return r, nil
}

// GetTemplate resolves a template by id, loading and caching on first use.
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	if t, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return t, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(id, func() (any, error) {
		t, err := r.load(id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[id] = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Template), nil
}

// load reads and validates one template file. The canonical document is
// sanitized against its own kind's allow-list and given stable ids so every
// consumer sees a structurally legal base.
func (r *Registry) load(id string) (*Template, error) {
	path := filepath.Join(r.dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", id, err)
	}

	var tf templateFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	if tf.Document == nil {
		return nil, fmt.Errorf("template %s has no document", id)
	}
	if tf.ID == "" {
		tf.ID = id
	}
	switch tf.Kind {
	case KindSalesPDP, KindListicle, KindNone:
	default:
		return nil, fmt.Errorf("template %s has unknown kind %q", id, tf.Kind)
	}

	page.SanitizeDocument(tf.Document, AllowedTypes(tf.Kind))
	page.AssignIDs(tf.Document)

	return &Template{ID: tf.ID, Kind: tf.Kind, Document: tf.Document}, nil
}

// watch invalidates cached templates when their files change.
func (r *Registry) watch() {
	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")
			r.mu.Lock()
			delete(r.cache, id)
			r.mu.Unlock()
			r.log.Debug("template cache invalidated", zap.String("template", id))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("template watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (r *Registry) Close() error {
	close(r.done)
	return r.watcher.Close()
}
