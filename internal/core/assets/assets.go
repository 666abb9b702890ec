package assets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

// ID identifies an asset across sessions.
type ID = uuid.UUID

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidAsset  = errors.New("invalid asset id")
)

// Ref is the lightweight, serializable reference to an asset stored inside
// component data. Decoding a Ref never loads the asset.
type Ref struct {
	ID   ID     `cbor:"1,keyasint" yaml:"id"`
	Hint string `cbor:"2,keyasint,omitempty" yaml:"hint,omitempty"`
}

func (r Ref) IsValid() bool { return r.ID != uuid.Nil }

type asset struct {
	name      string
	refs      int
	loaded    bool
	loadCount int
}

// Manager keeps reference counts for assets. An asset is loaded when its
// count goes from zero to one and unloaded when it drops back to zero.
type Manager struct {
	mu     sync.Mutex
	assets map[ID]*asset
	logger log.Log
}

func NewManager(logger log.Log) *Manager {
	return &Manager{
		assets: make(map[ID]*asset),
		logger: logger,
	}
}

// Register declares an asset so it can be pinned or loaded.
// Registering an existing id only updates its name.
func (m *Manager) Register(id ID, name string) error {
	if id == uuid.Nil {
		return ErrInvalidAsset
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		a.name = name
		return nil
	}
	m.assets[id] = &asset{name: name}
	return nil
}

// Pin takes a reference on the asset. The returned handle must be released.
func (m *Manager) Pin(id ID) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	a.refs++
	if !a.loaded {
		m.loadLocked(id, a)
	}
	return &Handle{manager: m, id: id}, nil
}

// Load makes sure the asset data is resident without taking a reference.
// It is what a deserializer calls for asset refs when loading is allowed.
func (m *Manager) Load(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if !a.loaded {
		m.loadLocked(id, a)
	}
	return nil
}

func (m *Manager) loadLocked(id ID, a *asset) {
	a.loaded = true
	a.loadCount++
	m.logger.Debug("asset loaded",
		log.String("asset_id", id.String()),
		log.String("asset_name", a.name),
		log.Int("load_count", a.loadCount),
	)
}

func (m *Manager) release(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.refs == 0 {
		return
	}
	a.refs--
	if a.refs == 0 && a.loaded {
		a.loaded = false
		m.logger.Debug("asset unloaded",
			log.String("asset_id", id.String()),
			log.String("asset_name", a.name),
		)
	}
}

func (m *Manager) RefCount(id ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		return a.refs
	}
	return 0
}

// LoadCount reports how many times the asset went from unloaded to loaded.
func (m *Manager) LoadCount(id ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[id]; ok {
		return a.loadCount
	}
	return 0
}

func (m *Manager) IsLoaded(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	return ok && a.loaded
}

// Handle is a held reference on an asset.
type Handle struct {
	manager  *Manager
	id       ID
	released bool
}

func (h *Handle) ID() ID { return h.id }

// Release drops the reference. Calling it more than once is a no-op.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.manager.release(h.id)
}
