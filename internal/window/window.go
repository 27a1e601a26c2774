// ABOUTME: Window Manager: popup visibility/position/size state machine,
// ABOUTME: pin override, and focus-loss auto-hide (§4.5)

package window

import (
	"sync"

	"github.com/askanywhere/assistant-core/internal/winapi"
)

// State is one of the popup's three visibility states.
type State string

const (
	Hidden   State = "hidden"
	Compact  State = "compact"
	Expanded State = "expanded"
)

const compactHeight = 200

// Geometry is the popup's on-screen rectangle.
type Geometry struct {
	X, Y, W, H int
}

// Manager owns the popup's visibility, geometry, and pin state. Pin state
// is process-scoped, never persisted (§4.5).
type Manager struct {
	mu       sync.Mutex
	state    State
	geometry Geometry
	pinned   bool

	popupWidth     int
	maxPopupHeight int
}

// New constructs a hidden Manager sized per the config's popup dimensions.
func New(popupWidth, maxPopupHeight int) *Manager {
	return &Manager{state: Hidden, popupWidth: popupWidth, maxPopupHeight: maxPopupHeight}
}

// SetDimensions updates the configured popup width and max height, taking
// effect on the next Show or Expand (an in-flight Compact/Expanded window
// is resized live via Resize, per resize_popup_window).
func (m *Manager) SetDimensions(popupWidth, maxPopupHeight int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popupWidth = popupWidth
	m.maxPopupHeight = maxPopupHeight
}

// Show transitions Hidden → Compact, horizontally centered on cursorX with
// its top edge at cursorY, unless the popup is pinned and has a remembered
// position.
func (m *Manager) Show(cursorX, cursorY int) Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Hidden {
		if m.pinned && (m.geometry != Geometry{}) {
			m.geometry.W, m.geometry.H = m.popupWidth, compactHeight
		} else {
			m.geometry = Geometry{X: cursorX - m.popupWidth/2, Y: cursorY, W: m.popupWidth, H: compactHeight}
		}
		m.state = Compact
	}
	return m.geometry
}

// Expand transitions Compact → Expanded, growing to (popup_width,
// max_popup_height). A no-op if already Expanded or still Hidden.
func (m *Manager) Expand() Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Compact {
		m.geometry.W, m.geometry.H = m.popupWidth, m.maxPopupHeight
		m.state = Expanded
	}
	return m.geometry
}

// Hide transitions to Hidden unconditionally. Callers enforce the "unless
// pinned" rule for focus-loss (see OnFocusLost); explicit hide commands
// and ESC always hide regardless of pin state.
func (m *Manager) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Hidden
}

// OnFocusLost hides the popup unless it is pinned.
func (m *Manager) OnFocusLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pinned {
		m.state = Hidden
	}
}

// Resize sets an explicit geometry, e.g. from resize_popup_window.
func (m *Manager) Resize(w, h int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry.W, m.geometry.H = w, h
}

// SetPinned sets the pin override.
func (m *Manager) SetPinned(pinned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = pinned
}

// Pinned reports the current pin state.
func (m *Manager) Pinned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned
}

// State returns the current visibility state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Geometry returns the current popup rectangle.
func (m *Manager) Geometry() Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

// SelectorGeometry returns the full-screen geometry for the screenshot
// region selector, covering the primary display (§4.5). The selector's
// rendering is an external-collaborator concern; the backend only
// supplies the rectangle it should cover.
func SelectorGeometry() Geometry {
	w, h := winapi.PrimaryDisplayBounds()
	return Geometry{X: 0, Y: 0, W: int(w), H: int(h)}
}
