package numerical

import "sync"

// Manager is the process-wide numerical-domain selector (spec §5: one
// numerical back-end configuration shared by every concurrently analyzed
// function). Guarded by sync.RWMutex the way kanso's internal/lsp guards its
// shared document maps.
type Manager struct {
	mu   sync.RWMutex
	kind Kind
}

var global = &Manager{kind: KindInterval}

// Default returns the process-wide manager.
func Default() *Manager { return global }

// SetKind switches the backing domain kind (set once at startup from CLI
// configuration; analyses already in flight keep using States built before
// the switch).
func (m *Manager) SetKind(k Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = k
}

func (m *Manager) Kind() Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kind
}

// Top returns the top element of the configured domain.
func (m *Manager) Top() State {
	if m.Kind() == KindOctagon {
		return TopOctagon()
	}
	return TopBox()
}

// Bottom returns the bottom element of the configured domain.
func (m *Manager) Bottom() State {
	if m.Kind() == KindOctagon {
		return BottomOctagon()
	}
	return BottomBox()
}
