// Package assets handles client data file access and caching.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Faultbox/erinn/pkg/encoding"
)

// ErrNotFound is returned when no layer holds the requested file.
var ErrNotFound = errors.New("file not found")

// Manager reads files from one or more data layers.
// Layers are searched in reverse order (last added = highest priority).
type Manager struct {
	layers []fs.FS
	cache  *Cache
	mu     sync.RWMutex

	reads atomic.Int64
}

// NewManager creates a new asset manager with no layers.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a data folder on disk as a layer.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening data folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening data folder %s: not a directory", dir)
	}
	m.AddFS(os.DirFS(dir))
	return nil
}

// AddFS adds a file system as a layer.
func (m *Manager) AddFS(fsys fs.FS) {
	m.mu.Lock()
	m.layers = append(m.layers, fsys)
	m.mu.Unlock()
}

// Empty reports whether no layer has been added.
func (m *Manager) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers) == 0
}

// Clean converts a client reference into a slash separated fs path.
func Clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if name == "." {
		return ""
	}
	return name
}

// Load reads a file, serving repeats from the cache.
func (m *Manager) Load(name string) ([]byte, error) {
	key := encoding.NormalizePath(Clean(name))
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	data, err := m.read(name)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, data)
	return data, nil
}

// ReadFile reads a file without caching it. Descriptor sources that are
// parsed once per load go through here.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	return m.read(name)
}

// read reads a file from the highest priority layer that has it,
// retrying with a lower-case name for case-sensitive file systems.
func (m *Manager) read(name string) ([]byte, error) {
	name = Clean(name)
	if !fs.ValidPath(name) || name == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := []string{name}
	if lower := strings.ToLower(name); lower != name {
		candidates = append(candidates, lower)
	}

	for i := len(m.layers) - 1; i >= 0; i-- {
		for _, c := range candidates {
			data, err := fs.ReadFile(m.layers[i], c)
			if err == nil {
				m.reads.Add(1)
				return data, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Exists reports whether any layer holds name. It does not touch the cache.
func (m *Manager) Exists(name string) bool {
	_, ok := m.stat(Clean(name))
	return ok
}

func (m *Manager) stat(name string) (fs.FileInfo, bool) {
	if !fs.ValidPath(name) || name == "" {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.layers) - 1; i >= 0; i-- {
		if info, err := fs.Stat(m.layers[i], name); err == nil {
			return info, true
		}
		if lower := strings.ToLower(name); lower != name {
			if info, err := fs.Stat(m.layers[i], lower); err == nil {
				return info, true
			}
		}
	}
	return nil, false
}

// Find walks dir recursively and returns the first file whose base name
// matches fileName, ignoring case. Walk order is lexical.
func (m *Manager) Find(dir, fileName string) (string, bool) {
	want := strings.ToLower(fileName)
	var found string
	m.Walk(dir, func(p string) bool {
		if strings.ToLower(path.Base(p)) == want {
			found = p
			return false
		}
		return true
	})
	return found, found != ""
}

// Walk calls fn for every regular file under dir, highest priority layer first.
// Returning false from fn stops the walk. Missing directories are skipped.
func (m *Manager) Walk(dir string, fn func(name string) bool) {
	dir = Clean(dir)
	if dir == "" {
		dir = "."
	}

	m.mu.RLock()
	layers := append([]fs.FS(nil), m.layers...)
	m.mu.RUnlock()

	stop := errors.New("stop")
	for i := len(layers) - 1; i >= 0; i-- {
		err := fs.WalkDir(layers[i], dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == dir {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !fn(p) {
				return stop
			}
			return nil
		})
		if err == stop {
			return
		}
	}
}

// Reads returns how many files were read from the layers.
func (m *Manager) Reads() int64 {
	return m.reads.Load()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Purge drops cached file contents.
func (m *Manager) Purge() {
	m.cache.Clear()
}

// Close drops all layers and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
